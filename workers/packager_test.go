package workers_test

import (
	"archive/tar"
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/models"
	"github.com/pkppln/depositor/util/fileutil"
	"github.com/pkppln/depositor/util/testutil"
	"github.com/pkppln/depositor/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func savedDepositWithMembers(t *testing.T, env *testEnv, kind string, count int) (*models.Deposit, []*models.DepositObject) {
	deposit := testutil.MakeDeposit(env.tenant.UUID)
	require.NoError(t, env.ctx.Store.SaveDeposit(deposit))
	members := make([]*models.DepositObject, count)
	for i := 0; i < count; i++ {
		obj := testutil.MakeDepositObject(env.tenant.UUID, kind, i+1)
		obj.DepositId = deposit.Id
		require.NoError(t, env.ctx.Store.SaveDepositObject(obj))
		members[i] = obj
	}
	return deposit, members
}

func tarEntryNames(t *testing.T, archivePath string) []string {
	file, err := os.Open(archivePath)
	require.NoError(t, err)
	defer file.Close()
	reader := tar.NewReader(file)
	names := make([]string, 0)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, header.Name)
	}
	return names
}

func containsEntry(names []string, suffix string) bool {
	for _, name := range names {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func TestPackageDeposit(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	// An export that references a real local file so the copy path runs.
	refFile := filepath.Join(env.tempDir, "galley.pdf")
	require.NoError(t, ioutil.WriteFile(refFile, []byte("%PDF-1.4 fake"), 0644))
	env.publisher.refFile = refFile

	deposit, members := savedDepositWithMembers(t, env, constants.ContentIssue, 1)
	state := testutil.MakeTenantState(env.tenant.UUID)
	packager := workers.NewPackager(env.ctx)

	err := packager.PackageDeposit(env.tenant, state, deposit, members)
	require.NoError(t, err)
	assert.True(t, deposit.Status.IsPackaged())
	assert.Empty(t, deposit.ExportError)

	archivePath := packager.ArchivePath(deposit)
	atomPath := packager.AtomDocPath(deposit)
	require.True(t, fileutil.FileExists(archivePath))
	require.True(t, fileutil.FileExists(atomPath))

	names := tarEntryNames(t, archivePath)
	for _, name := range names {
		assert.True(t, strings.HasPrefix(name, deposit.UUID+"/"), name)
	}
	assert.True(t, containsEntry(names, "/data/issue.xml"))
	assert.True(t, containsEntry(names, "/data/files/001-galley.pdf"))
	assert.True(t, containsEntry(names, "/data/schemas/content-export.xsd"))
	assert.True(t, containsEntry(names, "/data/"+constants.TermsFileName))
	assert.True(t, containsEntry(names, "/bag-info.txt"))
	assert.True(t, containsEntry(names, "/bagit.txt"))
	assert.True(t, containsEntry(names, "/manifest-sha1.txt"))

	// Only the archive and the metadata document remain on disk; the
	// untarred bag and the export scratch files are gone.
	depositDir := env.ctx.Config.DepositDirectory(deposit)
	remaining, err := ioutil.ReadDir(depositDir)
	require.NoError(t, err)
	assert.Equal(t, 2, len(remaining))

	// The metadata document describes the archive as built.
	checksum, err := fileutil.CalculateChecksum(archivePath, constants.AlgSha1)
	require.NoError(t, err)
	atomData, err := ioutil.ReadFile(atomPath)
	require.NoError(t, err)
	assert.Contains(t, string(atomData), checksum)
	assert.Contains(t, string(atomData), "urn:uuid:"+deposit.UUID)
	assert.Contains(t, string(atomData), env.tenant.BaseUrl)
}

func TestPackageDepositRewritesHrefs(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	refFile := filepath.Join(env.tempDir, "galley.pdf")
	require.NoError(t, ioutil.WriteFile(refFile, []byte("pdf"), 0644))
	env.publisher.refFile = refFile

	deposit, members := savedDepositWithMembers(t, env, constants.ContentIssue, 1)
	state := testutil.MakeTenantState(env.tenant.UUID)
	packager := workers.NewPackager(env.ctx)
	require.NoError(t, packager.PackageDeposit(env.tenant, state, deposit, members))

	// The packaged export document points at the flat payload name,
	// not at the original absolute path.
	archivePath := packager.ArchivePath(deposit)
	file, err := os.Open(archivePath)
	require.NoError(t, err)
	defer file.Close()
	reader := tar.NewReader(file)
	var exportBody string
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if strings.HasSuffix(header.Name, "/data/issue.xml") {
			data, err := ioutil.ReadAll(reader)
			require.NoError(t, err)
			exportBody = string(data)
		}
	}
	require.NotEmpty(t, exportBody)
	assert.Contains(t, exportBody, `href="files/001-galley.pdf"`)
	assert.NotContains(t, exportBody, refFile)
}

func TestPackageDepositNoMembers(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	deposit := testutil.MakeDeposit(env.tenant.UUID)
	require.NoError(t, env.ctx.Store.SaveDeposit(deposit))
	state := testutil.MakeTenantState(env.tenant.UUID)
	packager := workers.NewPackager(env.ctx)

	err := packager.PackageDeposit(env.tenant, state, deposit, nil)
	require.Error(t, err)
	assert.False(t, deposit.Status.IsPackaged())
	assert.Contains(t, deposit.ExportError, "no content")
	assert.True(t, deposit.ReadyToPackage())
}

func TestPackageDepositExportFailure(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()
	env.publisher.exportStatus = 500

	deposit, members := savedDepositWithMembers(t, env, constants.ContentIssue, 1)
	state := testutil.MakeTenantState(env.tenant.UUID)
	packager := workers.NewPackager(env.ctx)

	err := packager.PackageDeposit(env.tenant, state, deposit, members)
	require.Error(t, err)
	assert.False(t, deposit.Status.IsPackaged())
	assert.NotEmpty(t, deposit.ExportError)
	assert.False(t, deposit.LastStatusChangeAt.IsZero())

	// Partial artifacts are discarded so the next run starts clean.
	assert.False(t, fileutil.FileExists(env.ctx.Config.DepositDirectory(deposit)))
}

func TestPackageDepositBatchedArticles(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	deposit, members := savedDepositWithMembers(t, env, constants.ContentArticle, 3)
	state := testutil.MakeTenantState(env.tenant.UUID)
	packager := workers.NewPackager(env.ctx)

	require.NoError(t, packager.PackageDeposit(env.tenant, state, deposit, members))
	assert.True(t, deposit.Status.IsPackaged())

	// One export call covers the whole batch.
	assert.Equal(t, 1, env.publisher.exports)
	names := tarEntryNames(t, packager.ArchivePath(deposit))
	assert.True(t, containsEntry(names, "/data/article.xml"))
	assert.False(t, containsEntry(names, "/data/issue.xml"))
}

func TestPackageDepositUsesNegotiatedAlgorithm(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	deposit, members := savedDepositWithMembers(t, env, constants.ContentIssue, 1)
	state := testutil.MakeTenantState(env.tenant.UUID)
	state.ChecksumType = constants.AlgMd5
	packager := workers.NewPackager(env.ctx)

	require.NoError(t, packager.PackageDeposit(env.tenant, state, deposit, members))
	names := tarEntryNames(t, packager.ArchivePath(deposit))
	assert.True(t, containsEntry(names, "/manifest-md5.txt"))
	atomData, err := ioutil.ReadFile(packager.AtomDocPath(deposit))
	require.NoError(t, err)
	assert.Contains(t, string(atomData), `checksumType="md5"`)
}

func TestPackageDepositFallsBackToSha1(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	deposit, members := savedDepositWithMembers(t, env, constants.ContentIssue, 1)
	state := testutil.MakeTenantState(env.tenant.UUID)
	state.ChecksumType = ""
	packager := workers.NewPackager(env.ctx)

	// No negotiated algorithm yet: the archive is checksummed with
	// sha1 and the metadata document says so.
	require.NoError(t, packager.PackageDeposit(env.tenant, state, deposit, members))
	names := tarEntryNames(t, packager.ArchivePath(deposit))
	assert.True(t, containsEntry(names, "/manifest-sha1.txt"))
	atomData, err := ioutil.ReadFile(packager.AtomDocPath(deposit))
	require.NoError(t, err)
	assert.Contains(t, string(atomData), `checksumType="sha1"`)
}

func TestPackageDepositRejectsOversizeArchive(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()

	deposit, members := savedDepositWithMembers(t, env, constants.ContentIssue, 1)
	state := testutil.MakeTenantState(env.tenant.UUID)
	state.MaxUploadSize = 1
	packager := workers.NewPackager(env.ctx)

	err := packager.PackageDeposit(env.tenant, state, deposit, members)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts at most 1")
	assert.Contains(t, deposit.ExportError, "accepts at most")
	assert.True(t, deposit.ReadyToPackage())
	assert.False(t, fileutil.FileExists(env.ctx.Config.DepositDirectory(deposit)))
}

func TestPackageDepositHostedArchive(t *testing.T) {
	env, cleanup := newTestEnv(t)
	defer cleanup()
	publisher := &recordingPublisher{baseUrl: "https://archives.example.org/pln"}
	env.ctx.Publisher = publisher

	deposit, members := savedDepositWithMembers(t, env, constants.ContentIssue, 1)
	state := testutil.MakeTenantState(env.tenant.UUID)
	packager := workers.NewPackager(env.ctx)

	require.NoError(t, packager.PackageDeposit(env.tenant, state, deposit, members))
	objectName := env.tenant.UUID + "/" + deposit.UUID + constants.ArchiveSuffix
	require.Equal(t, []string{objectName}, publisher.published)

	// The metadata document points at the hosted copy, not the
	// tenant's gateway.
	atomData, err := ioutil.ReadFile(packager.AtomDocPath(deposit))
	require.NoError(t, err)
	assert.Contains(t, string(atomData), publisher.baseUrl+"/"+objectName)

	// Discarding the artifacts also deletes the hosted tarball.
	packager.DiscardArtifacts(deposit)
	assert.Equal(t, []string{objectName}, publisher.removed)
	assert.False(t, fileutil.FileExists(env.ctx.Config.DepositDirectory(deposit)))
}
