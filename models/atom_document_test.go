package models_test

import (
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/models"
	"github.com/pkppln/depositor/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewAtomDocument(t *testing.T) {
	tenant := testutil.MakeTenant()
	state := testutil.MakeTenantState(tenant.UUID)
	deposit := testutil.MakeDeposit(tenant.UUID)
	member := testutil.MakeDepositObject(tenant.UUID, constants.ContentIssue, 88)

	doc := models.NewAtomDocument(tenant, state, deposit,
		[]*models.DepositObject{member},
		"http://example.com/pln/deposits/"+deposit.UUID,
		state.ChecksumType, 54321, "abc123")

	assert.Equal(t, tenant.Title, doc.Title)
	assert.Equal(t, "urn:uuid:"+deposit.UUID, doc.Id)
	assert.Equal(t, tenant.Email, doc.AuthorEmail)
	assert.Equal(t, tenant.BaseUrl, doc.JournalUrl)
	assert.Equal(t, tenant.Issn, doc.Issn)
	assert.Equal(t, tenant.PublisherName, doc.PublisherName)
	assert.Contains(t, doc.AppVersion, constants.AppName)
	assert.Contains(t, doc.AppVersion, constants.AppVersion)

	assert.EqualValues(t, 54321, doc.Content.Size)
	assert.Equal(t, constants.AlgSha1, doc.Content.ChecksumType)
	assert.Equal(t, "abc123", doc.Content.ChecksumValue)
	assert.Equal(t, "http://example.com/pln/deposits/"+deposit.UUID, doc.Content.Url)
}

func TestAtomDocumentUsesResolvedAlgorithm(t *testing.T) {
	tenant := testutil.MakeTenant()
	state := testutil.MakeTenantState(tenant.UUID)
	state.ChecksumType = ""
	deposit := testutil.MakeDeposit(tenant.UUID)
	member := testutil.MakeDepositObject(tenant.UUID, constants.ContentIssue, 1)

	// The algorithm the archive was actually checksummed with wins,
	// even when the tenant state hasn't negotiated one yet.
	doc := models.NewAtomDocument(tenant, state, deposit,
		[]*models.DepositObject{member}, "http://example.com/x",
		constants.AlgSha1, 1, "c")
	assert.Equal(t, constants.AlgSha1, doc.Content.ChecksumType)
}

func TestAtomDocumentSingleIssueGetsVolumeAndIssue(t *testing.T) {
	tenant := testutil.MakeTenant()
	state := testutil.MakeTenantState(tenant.UUID)
	deposit := testutil.MakeDeposit(tenant.UUID)
	member := testutil.MakeDepositObject(tenant.UUID, constants.ContentIssue, 1)
	member.Volume = "12"
	member.Issue = "3"

	doc := models.NewAtomDocument(tenant, state, deposit,
		[]*models.DepositObject{member}, "http://example.com/x",
		state.ChecksumType, 1, "c")
	assert.Equal(t, "12", doc.Content.Volume)
	assert.Equal(t, "3", doc.Content.Issue)
}

func TestAtomDocumentArticleBatchOmitsVolumeAndIssue(t *testing.T) {
	tenant := testutil.MakeTenant()
	state := testutil.MakeTenantState(tenant.UUID)
	deposit := testutil.MakeDeposit(tenant.UUID)
	members := []*models.DepositObject{
		testutil.MakeDepositObject(tenant.UUID, constants.ContentArticle, 1),
		testutil.MakeDepositObject(tenant.UUID, constants.ContentArticle, 2),
	}

	doc := models.NewAtomDocument(tenant, state, deposit, members,
		"http://example.com/x",
		state.ChecksumType, 1, "c")
	assert.Empty(t, doc.Content.Volume)
	assert.Empty(t, doc.Content.Issue)
}

func TestAtomDocumentPubDateSpan(t *testing.T) {
	tenant := testutil.MakeTenant()
	state := testutil.MakeTenantState(tenant.UUID)
	deposit := testutil.MakeDeposit(tenant.UUID)

	older := testutil.MakeDepositObject(tenant.UUID, constants.ContentArticle, 1)
	older.PublishedAt = time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := testutil.MakeDepositObject(tenant.UUID, constants.ContentArticle, 2)
	newer.PublishedAt = time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC)

	doc := models.NewAtomDocument(tenant, state, deposit,
		[]*models.DepositObject{newer, older}, "http://example.com/x",
		state.ChecksumType, 1, "c")
	assert.Contains(t, doc.Content.EarliestPubDate, "2020-03-01")
	assert.Contains(t, doc.Content.LatestPubDate, "2024-11-30")
}

func TestAtomDocumentLicense(t *testing.T) {
	tenant := testutil.MakeTenant()
	state := testutil.MakeTenantState(tenant.UUID)
	deposit := testutil.MakeDeposit(tenant.UUID)
	member := testutil.MakeDepositObject(tenant.UUID, constants.ContentIssue, 1)

	doc := models.NewAtomDocument(tenant, state, deposit,
		[]*models.DepositObject{member}, "http://example.com/x",
		state.ChecksumType, 1, "c")
	require.Equal(t, len(state.Terms), len(doc.License.Terms))
	assert.Equal(t, state.Terms[0].Key, doc.License.Terms[0].Key)
	assert.NotEmpty(t, doc.License.AgreedAt)
}

func TestAtomDocumentWriteToFile(t *testing.T) {
	tempDir, err := ioutil.TempDir("", "atom_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tenant := testutil.MakeTenant()
	state := testutil.MakeTenantState(tenant.UUID)
	deposit := testutil.MakeDeposit(tenant.UUID)
	member := testutil.MakeDepositObject(tenant.UUID, constants.ContentIssue, 1)

	doc := models.NewAtomDocument(tenant, state, deposit,
		[]*models.DepositObject{member}, "http://example.com/x",
		state.ChecksumType, 999, "deadbeef")
	atomPath := filepath.Join(tempDir, deposit.UUID+constants.AtomDocSuffix)
	require.NoError(t, doc.WriteToFile(atomPath))

	data, err := ioutil.ReadFile(atomPath)
	require.NoError(t, err)
	xmlString := string(data)
	assert.Contains(t, xmlString, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, xmlString, "urn:uuid:"+deposit.UUID)
	assert.Contains(t, xmlString, `checksumValue="deadbeef"`)
	assert.Contains(t, xmlString, `size="999"`)
}
