package workers_test

// Fixtures shared by the packager and depositor tests: a fake
// staging server speaking the SWORD surface, a fake publisher
// serving content listings and exports, and a Context wired to both.

import (
	"fmt"
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/context"
	"github.com/pkppln/depositor/models"
	"github.com/pkppln/depositor/network"
	"github.com/pkppln/depositor/util/logger"
	"github.com/pkppln/depositor/util/storage"
	"github.com/pkppln/depositor/util/testutil"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// swordFixture fakes the staging server. Deposits exist remotely
// once something has been POSTed to the collection; their state
// resource then reports the configured tokens.
type swordFixture struct {
	mu              sync.Mutex
	created         bool
	processingState string
	lockssState     string
	statementStatus int // overrides normal behavior when non-zero
	accepting       string
	termsXml        string
	creates         int
	updates         int
	statements      int
}

func newSwordFixture() *swordFixture {
	return &swordFixture{
		processingState: constants.StateDeposited,
		accepting:       "Yes",
	}
}

func (fixture *swordFixture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixture.mu.Lock()
		defer fixture.mu.Unlock()
		switch {
		case r.URL.Path == constants.ServiceDocumentPath:
			fmt.Fprintf(w, `<service>
  <version>2.0</version>
  <maxUploadSize>1073741824</maxUploadSize>
  <uploadChecksumType>SHA-1</uploadChecksumType>
  <pln_accepting is_accepting="%s">Message here.</pln_accepting>
  <terms_of_use>%s</terms_of_use>
</service>`, fixture.accepting, fixture.termsXml)
		case strings.HasSuffix(r.URL.Path, "/state"):
			fixture.statements++
			if fixture.statementStatus != 0 {
				w.WriteHeader(fixture.statementStatus)
				return
			}
			if !fixture.created {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			lockssCategory := ""
			if fixture.lockssState != "" {
				lockssCategory = fmt.Sprintf(
					`<category scheme="%s" term="%s"/>`,
					constants.LockssStateScheme, fixture.lockssState)
			}
			fmt.Fprintf(w, `<entry>
  <category scheme="%s" term="%s"/>
  %s
</entry>`, constants.ProcessingStateScheme, fixture.processingState, lockssCategory)
		case r.Method == "POST":
			fixture.creates++
			fixture.created = true
			w.WriteHeader(http.StatusCreated)
		case r.Method == "PUT":
			fixture.updates++
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// publisherFixture fakes the tenant's site: a content listing per
// kind and an export endpoint. Exports reference refFile when set,
// so packaging exercises the file-copy path.
type publisherFixture struct {
	mu           sync.Mutex
	content      map[string][]*network.ContentSummary
	refFile      string
	exportStatus int
	exports      int
}

func newPublisherFixture() *publisherFixture {
	return &publisherFixture{
		content: make(map[string][]*network.ContentSummary),
	}
}

func (fixture *publisherFixture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fixture.mu.Lock()
		defer fixture.mu.Unlock()
		kind := r.URL.Query().Get("kind")
		switch r.URL.Path {
		case constants.ContentListPath:
			listing := fixture.content[kind]
			fmt.Fprint(w, "[")
			for i, item := range listing {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w,
					`{"id": %d, "volume": "%s", "issue": "%s", "published_at": "%s", "modified_at": "%s"}`,
					item.Id, item.Volume, item.Issue,
					item.PublishedAt.Format("2006-01-02T15:04:05Z"),
					item.ModifiedAt.Format("2006-01-02T15:04:05Z"))
			}
			fmt.Fprint(w, "]")
		case constants.ContentExportPath:
			fixture.exports++
			if fixture.exportStatus != 0 {
				w.WriteHeader(fixture.exportStatus)
				return
			}
			fileRef := ""
			if fixture.refFile != "" {
				fileRef = fmt.Sprintf(`<file href="%s" mimetype="application/pdf"/>`,
					fixture.refFile)
			}
			fmt.Fprintf(w, `<export kind="%s"><item id="1"><title>Test</title>%s</item></export>`,
				kind, fileRef)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

// testEnv wires a Context to the two fixtures, with a real bolt
// store and staging tree under a temp dir.
type testEnv struct {
	ctx       *context.Context
	tenant    *models.Tenant
	sword     *swordFixture
	publisher *publisherFixture
	tempDir   string
	notified  []string
}

// recordingPublisher stands in for archive hosting, capturing the
// object names that were published and removed.
type recordingPublisher struct {
	baseUrl   string
	published []string
	removed   []string
}

func (publisher *recordingPublisher) Publish(objectName, filePath string) (string, error) {
	publisher.published = append(publisher.published, objectName)
	return publisher.baseUrl + "/" + objectName, nil
}

func (publisher *recordingPublisher) Remove(objectName string) error {
	publisher.removed = append(publisher.removed, objectName)
	return nil
}

type recordingNotifier struct {
	env *testEnv
}

func (notifier *recordingNotifier) NotifyManagers(tenantUUID, eventKind string) {
	notifier.env.notified = append(notifier.env.notified, eventKind)
}

func newTestEnv(t *testing.T) (*testEnv, func()) {
	tempDir, err := ioutil.TempDir("", "depositor_test")
	require.NoError(t, err)

	schemaDir := filepath.Join(tempDir, "schemas")
	require.NoError(t, os.MkdirAll(schemaDir, 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(schemaDir, "content-export.xsd"),
		[]byte(`<xs:schema xmlns:xs="http://www.w3.org/2001/XMLSchema"/>`), 0644))

	env := &testEnv{
		sword:     newSwordFixture(),
		publisher: newPublisherFixture(),
		tempDir:   tempDir,
		notified:  make([]string, 0),
	}
	swordServer := httptest.NewServer(env.sword.handler())
	publisherServer := httptest.NewServer(env.publisher.handler())

	env.tenant = testutil.MakeTenant()
	env.tenant.BaseUrl = publisherServer.URL

	config := &models.Config{
		NetworkUrl:       swordServer.URL,
		StagingDirectory: filepath.Join(tempDir, "staging"),
		SchemaDirectory:  schemaDir,
		DataFilePath:     filepath.Join(tempDir, "depositor.db"),
		BatchSize:        5,
		Tenants:          []*models.Tenant{env.tenant},
	}
	require.NoError(t, os.MkdirAll(config.StagingDirectory, 0755))

	messageLog := logger.DiscardLogger("depositor_test")
	plnClient, err := network.NewPLNRestClient(config.NetworkUrl, messageLog)
	require.NoError(t, err)
	store, err := storage.NewBoltStore(config.DataFilePath)
	require.NoError(t, err)

	env.ctx = &context.Context{
		Config:       config,
		MessageLog:   messageLog,
		PLNClient:    plnClient,
		ExportClient: network.NewExportClient(messageLog),
		Store:        store,
		Notifier:     &recordingNotifier{env: env},
	}
	cleanup := func() {
		store.Close()
		swordServer.Close()
		publisherServer.Close()
		os.RemoveAll(tempDir)
	}
	return env, cleanup
}

// saveReadyDeposit stores a packaged-looking deposit with one issue
// member and real on-disk artifacts, so transfer and poll stages can
// run without the packaging stage.
func saveReadyDeposit(t *testing.T, env *testEnv) *models.Deposit {
	deposit := testutil.MakeDeposit(env.tenant.UUID)
	deposit.SetPackaged()
	require.NoError(t, env.ctx.Store.SaveDeposit(deposit))

	obj := testutil.MakeDepositObject(env.tenant.UUID, constants.ContentIssue, deposit.Id)
	obj.DepositId = deposit.Id
	require.NoError(t, env.ctx.Store.SaveDepositObject(obj))

	depositDir := env.ctx.Config.DepositDirectory(deposit)
	require.NoError(t, os.MkdirAll(depositDir, 0755))
	require.NoError(t, ioutil.WriteFile(
		filepath.Join(depositDir, deposit.UUID+constants.ArchiveSuffix),
		[]byte("tar bytes"), 0644))
	require.NoError(t, ioutil.WriteFile(
		filepath.Join(depositDir, deposit.UUID+constants.AtomDocSuffix),
		[]byte("<entry></entry>"), 0644))
	return deposit
}
