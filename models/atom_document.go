package models

import (
	"encoding/xml"
	"fmt"
	"github.com/pkppln/depositor/constants"
	"io/ioutil"
	"time"
)

// AtomDocument is the protocol metadata document that accompanies a
// deposit: who the tenant is, where the archive lives, how big it is
// and what it hashes to, the bibliographic span of its members, and a
// snapshot of the license terms in force when it was built. One goes
// out per deposit, regenerated on every successful packaging run
// because the size and checksum change with the archive.
type AtomDocument struct {
	XMLName       xml.Name    `xml:"entry"`
	Xmlns         string      `xml:"xmlns,attr"`
	XmlnsPkp      string      `xml:"xmlns:pkp,attr"`
	Title         string      `xml:"title"`
	Id            string      `xml:"id"`
	Updated       string      `xml:"updated"`
	AuthorName    string      `xml:"author>name"`
	AuthorEmail   string      `xml:"author>email"`
	JournalUrl    string      `xml:"pkp:journalUrl"`
	Issn          string      `xml:"pkp:issn"`
	PublisherName string      `xml:"pkp:publisherName"`
	PublisherUrl  string      `xml:"pkp:publisherUrl"`
	AppVersion    string      `xml:"pkp:appVersion"`
	Content       AtomContent `xml:"pkp:content"`
	License       AtomLicense `xml:"pkp:license"`
}

// AtomContent points at the archive and describes it well enough for
// the network to verify its own copy after retrieval.
type AtomContent struct {
	Size            int64  `xml:"size,attr"`
	ChecksumType    string `xml:"checksumType,attr"`
	ChecksumValue   string `xml:"checksumValue,attr"`
	Volume          string `xml:"volume,attr,omitempty"`
	Issue           string `xml:"issue,attr,omitempty"`
	EarliestPubDate string `xml:"firstPubDate,attr,omitempty"`
	LatestPubDate   string `xml:"lastPubDate,attr,omitempty"`
	Url             string `xml:",chardata"`
}

type AtomLicense struct {
	AgreedAt string            `xml:"agreedAt,attr,omitempty"`
	Terms    []AtomLicenseTerm `xml:"pkp:term"`
}

type AtomLicenseTerm struct {
	Key     string `xml:"key,attr"`
	Updated string `xml:"updated,attr,omitempty"`
	Text    string `xml:",chardata"`
}

// NewAtomDocument builds the metadata document for one packaged
// deposit. Param archiveUrl is the stable URL the network will fetch
// the archive from; algorithm, size and checksum describe the
// archive as built, which may differ from the tenant state when no
// algorithm has been negotiated yet.
func NewAtomDocument(tenant *Tenant, state *TenantState, deposit *Deposit,
	members []*DepositObject, archiveUrl, algorithm string, size int64,
	checksum string) *AtomDocument {
	doc := &AtomDocument{
		Xmlns:         "http://www.w3.org/2005/Atom",
		XmlnsPkp:      "http://pkp.sfu.ca/SWORD",
		Title:         tenant.Title,
		Id:            fmt.Sprintf("urn:uuid:%s", deposit.UUID),
		Updated:       time.Now().UTC().Format(time.RFC3339),
		AuthorName:    tenant.Title,
		AuthorEmail:   tenant.Email,
		JournalUrl:    tenant.BaseUrl,
		Issn:          tenant.Issn,
		PublisherName: tenant.PublisherName,
		PublisherUrl:  tenant.PublisherUrl,
		AppVersion:    fmt.Sprintf("%s/%s", constants.AppName, constants.AppVersion),
		Content: AtomContent{
			Size:          size,
			ChecksumType:  algorithm,
			ChecksumValue: checksum,
			Url:           archiveUrl,
		},
	}
	doc.setBibliographicFacts(members)
	doc.setLicense(state)
	return doc
}

// setBibliographicFacts fills in volume/issue (when the deposit is a
// single issue) and the earliest and latest publication dates among
// the members.
func (doc *AtomDocument) setBibliographicFacts(members []*DepositObject) {
	if len(members) == 1 && members[0].ContentKind == constants.ContentIssue {
		doc.Content.Volume = members[0].Volume
		doc.Content.Issue = members[0].Issue
	}
	var earliest, latest time.Time
	for _, member := range members {
		if member.PublishedAt.IsZero() {
			continue
		}
		if earliest.IsZero() || member.PublishedAt.Before(earliest) {
			earliest = member.PublishedAt
		}
		if latest.IsZero() || member.PublishedAt.After(latest) {
			latest = member.PublishedAt
		}
	}
	if !earliest.IsZero() {
		doc.Content.EarliestPubDate = earliest.Format("2006-01-02")
		doc.Content.LatestPubDate = latest.Format("2006-01-02")
	}
}

func (doc *AtomDocument) setLicense(state *TenantState) {
	if !state.TermsAgreedAt.IsZero() {
		doc.License.AgreedAt = state.TermsAgreedAt.UTC().Format(time.RFC3339)
	}
	for _, term := range state.Terms {
		licenseTerm := AtomLicenseTerm{
			Key:  term.Key,
			Text: term.Text,
		}
		if !term.UpdatedAt.IsZero() {
			licenseTerm.Updated = term.UpdatedAt.Format(time.RFC3339)
		}
		doc.License.Terms = append(doc.License.Terms, licenseTerm)
	}
}

// WriteToFile serializes the document to path.
func (doc *AtomDocument) WriteToFile(path string) error {
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("Cannot serialize atom document: %v", err)
	}
	data = append([]byte(xml.Header), data...)
	err = ioutil.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("Cannot write atom document to %s: %v", path, err)
	}
	return nil
}
