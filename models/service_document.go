package models

import (
	"encoding/xml"
	"fmt"
	"github.com/pkppln/depositor/constants"
	"strings"
	"time"
)

// ServiceDocument is the capability document the staging server
// returns from its sd-iri. It tells us, per tenant: whether the
// network is accepting deposits, how big an upload may be, which
// checksum algorithm to use, and the current terms of use with
// per-clause revision timestamps.
type ServiceDocument struct {
	XMLName       xml.Name `xml:"service"`
	Version       string   `xml:"version"`
	MaxUploadSize int64    `xml:"maxUploadSize"`
	ChecksumType  string   `xml:"uploadChecksumType"`
	Accepting     struct {
		IsAccepting string `xml:"is_accepting,attr"`
		Message     string `xml:",chardata"`
	} `xml:"pln_accepting"`
	TermsOfUse struct {
		Terms []serviceTerm `xml:",any"`
	} `xml:"terms_of_use"`
}

// serviceTerm captures one clause of the terms block. The staging
// server names each element after the clause's key, so we keep the
// XMLName instead of matching a fixed tag.
type serviceTerm struct {
	XMLName xml.Name
	Updated string `xml:"updated,attr"`
	Text    string `xml:",chardata"`
}

// ParseServiceDocument unmarshals the sd-iri response body.
func ParseServiceDocument(data []byte) (*ServiceDocument, error) {
	doc := &ServiceDocument{}
	err := xml.Unmarshal(data, doc)
	if err != nil {
		return nil, fmt.Errorf("Cannot parse service document: %v", err)
	}
	return doc, nil
}

// IsAccepting reports whether the network will take deposits from
// this tenant right now.
func (doc *ServiceDocument) IsAccepting() bool {
	return strings.EqualFold(doc.Accepting.IsAccepting, "yes")
}

// Algorithm normalizes the advertised checksum type to one of
// constants.ChecksumAlgorithms. The server spells them "SHA-1" and
// "MD5"; anything unrecognized is an error rather than a silent
// fallback, since a wrong algorithm invalidates every manifest.
func (doc *ServiceDocument) Algorithm() (string, error) {
	normalized := strings.ToLower(strings.Replace(doc.ChecksumType, "-", "", -1))
	switch normalized {
	case "sha1":
		return constants.AlgSha1, nil
	case "md5":
		return constants.AlgMd5, nil
	case "":
		return constants.AlgSha1, nil
	}
	return "", fmt.Errorf("Service document advertises unsupported checksum type '%s'",
		doc.ChecksumType)
}

// TermList converts the raw terms block into TermOfUse records.
// Clauses with unparseable timestamps keep a zero UpdatedAt rather
// than failing the whole document.
func (doc *ServiceDocument) TermList() []*TermOfUse {
	terms := make([]*TermOfUse, 0, len(doc.TermsOfUse.Terms))
	for _, raw := range doc.TermsOfUse.Terms {
		term := &TermOfUse{
			Key:  raw.XMLName.Local,
			Text: strings.TrimSpace(raw.Text),
		}
		if raw.Updated != "" {
			updated, err := time.Parse(time.RFC3339, raw.Updated)
			if err == nil {
				term.UpdatedAt = updated.UTC()
			}
		}
		terms = append(terms, term)
	}
	return terms
}
