package workers

import (
	"fmt"
	"github.com/APTrust/bagins"
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/context"
	"github.com/pkppln/depositor/models"
	"github.com/pkppln/depositor/tarfile"
	"github.com/pkppln/depositor/util/fileutil"
	"io/ioutil"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// hrefPattern matches embedded file references in publisher export
// documents. Only references that resolve to local files get
// rewritten; anything else (http URLs, dangling paths) passes
// through untouched.
var hrefPattern = regexp.MustCompile(`href="([^"]+)"`)

// fileCopy records one file an export document refers to, and the
// flat name it takes inside the deposit payload.
type fileCopy struct {
	SourcePath string
	TargetName string
}

// Packager builds the on-disk artifacts for one deposit: a tarred
// BagIt bag holding the exported content, and the Atom metadata
// document describing it. The bag payload is self-describing: export
// documents, every file they reference, the reference schemas, and a
// snapshot of the terms of use the tenant agreed to.
type Packager struct {
	Context *context.Context
}

func NewPackager(_context *context.Context) *Packager {
	return &Packager{
		Context: _context,
	}
}

// ArchivePath returns the full path to the deposit's tar archive.
func (packager *Packager) ArchivePath(deposit *models.Deposit) string {
	return filepath.Join(packager.Context.Config.DepositDirectory(deposit),
		deposit.UUID+constants.ArchiveSuffix)
}

// AtomDocPath returns the full path to the deposit's Atom metadata
// document.
func (packager *Packager) AtomDocPath(deposit *models.Deposit) string {
	return filepath.Join(packager.Context.Config.DepositDirectory(deposit),
		deposit.UUID+constants.AtomDocSuffix)
}

// PackageDeposit builds the archive and metadata document for one
// deposit. On success, the deposit is marked packaged with its error
// cleared. On failure, the error is recorded on the deposit, partial
// artifacts are discarded, and the deposit stays eligible for
// repackaging on the next run. The caller is responsible for saving
// the deposit.
func (packager *Packager) PackageDeposit(tenant *models.Tenant, state *models.TenantState,
	deposit *models.Deposit, members []*models.DepositObject) error {
	err := packager.buildArtifacts(tenant, state, deposit, members)
	if err != nil {
		deposit.RecordError("Packaging failed: %v", err)
		packager.DiscardArtifacts(deposit)
		return err
	}
	deposit.SetPackaged()
	packager.Context.MessageLog.Info("Packaged deposit %s for tenant %s",
		deposit.UUID, deposit.TenantUUID)
	return nil
}

func (packager *Packager) buildArtifacts(tenant *models.Tenant, state *models.TenantState,
	deposit *models.Deposit, members []*models.DepositObject) error {
	if len(members) == 0 {
		return fmt.Errorf("deposit %s has no content objects", deposit.UUID)
	}
	depositDir := packager.Context.Config.DepositDirectory(deposit)
	err := packager.freshDirectory(depositDir)
	if err != nil {
		return err
	}

	copies := make([]fileCopy, 0)
	scratchFiles, err := packager.exportContent(tenant, deposit, members, &copies)
	if err != nil {
		return err
	}

	algorithm := state.ChecksumType
	if algorithm == "" {
		algorithm = constants.AlgSha1
	}
	err = packager.assembleBag(depositDir, state, scratchFiles, copies, algorithm, deposit)
	if err != nil {
		return err
	}

	archivePath := packager.ArchivePath(deposit)
	err = packager.tarBag(depositDir, deposit.UUID, archivePath)
	if err != nil {
		return err
	}
	packager.removeScratch(depositDir, scratchFiles)

	size, err := fileutil.FileSize(archivePath)
	if err != nil {
		return err
	}
	if state.MaxUploadSize > 0 && size > state.MaxUploadSize {
		return fmt.Errorf("archive is %d bytes; network accepts at most %d",
			size, state.MaxUploadSize)
	}
	checksum, err := fileutil.CalculateChecksum(archivePath, algorithm)
	if err != nil {
		return err
	}

	archiveUrl, err := packager.archiveUrl(tenant, deposit, archivePath)
	if err != nil {
		return err
	}

	atomDoc := models.NewAtomDocument(tenant, state, deposit, members, archiveUrl,
		algorithm, size, checksum)
	return atomDoc.WriteToFile(packager.AtomDocPath(deposit))
}

// exportContent asks the publisher for one export document per
// content kind present in this deposit, then rewrites embedded file
// references into the flat payload namespace. Returns the names of
// the export documents written into the deposit directory.
func (packager *Packager) exportContent(tenant *models.Tenant, deposit *models.Deposit,
	members []*models.DepositObject, copies *[]fileCopy) ([]string, error) {
	depositDir := packager.Context.Config.DepositDirectory(deposit)
	scratchFiles := make([]string, 0)
	for _, kind := range constants.ContentKinds {
		ids := contentIdsForKind(members, kind)
		if len(ids) == 0 {
			continue
		}
		data, err := packager.Context.ExportClient.Export(tenant, kind, ids)
		if err != nil {
			return nil, err
		}
		rewritten := rewriteFileReferences(data, copies)
		scratchName := kind + "-export.xml"
		err = ioutil.WriteFile(filepath.Join(depositDir, scratchName), rewritten, 0644)
		if err != nil {
			return nil, err
		}
		scratchFiles = append(scratchFiles, scratchName)
	}
	if len(scratchFiles) == 0 {
		return nil, fmt.Errorf("no exportable content for deposit %s", deposit.UUID)
	}
	return scratchFiles, nil
}

func contentIdsForKind(members []*models.DepositObject, kind string) []int {
	ids := make([]int, 0)
	for _, member := range members {
		if member.ContentKind == kind {
			ids = append(ids, member.ContentId)
		}
	}
	return ids
}

// rewriteFileReferences replaces each href that points at a readable
// local file with a flat name under files/, recording the copy the
// bag assembly step must perform. References that don't resolve
// locally are left as-is.
func rewriteFileReferences(data []byte, copies *[]fileCopy) []byte {
	return hrefPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		sourcePath := string(hrefPattern.FindSubmatch(match)[1])
		if !fileutil.FileExists(sourcePath) {
			return match
		}
		targetName := fmt.Sprintf("files/%03d-%s", len(*copies)+1, filepath.Base(sourcePath))
		*copies = append(*copies, fileCopy{SourcePath: sourcePath, TargetName: targetName})
		return []byte(fmt.Sprintf(`href="%s"`, targetName))
	})
}

// assembleBag builds the BagIt bag under the deposit directory. The
// payload gets the export documents, every referenced file, the
// reference schemas, and a terms-of-use snapshot. One tag file
// records who built the bag and with what.
func (packager *Packager) assembleBag(depositDir string, state *models.TenantState,
	scratchFiles []string, copies []fileCopy, algorithm string, deposit *models.Deposit) error {
	bag, err := bagins.NewBag(depositDir, constants.BagName, []string{algorithm}, true)
	if err != nil {
		return fmt.Errorf("cannot create bag: %v", err)
	}
	for _, scratchName := range scratchFiles {
		payloadName := strings.TrimSuffix(scratchName, "-export.xml") + ".xml"
		err = bag.AddFile(filepath.Join(depositDir, scratchName), payloadName)
		if err != nil {
			return err
		}
	}
	for _, copy := range copies {
		err = bag.AddFile(copy.SourcePath, copy.TargetName)
		if err != nil {
			return err
		}
	}
	err = packager.addSchemas(bag)
	if err != nil {
		return err
	}
	err = packager.addTermsSnapshot(bag, depositDir, state)
	if err != nil {
		return err
	}
	err = packager.addBagDeclaration(bag)
	if err != nil {
		return err
	}
	err = packager.addBagInfo(bag, deposit)
	if err != nil {
		return err
	}
	errs := bag.Save()
	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, saveErr := range errs {
			messages[i] = saveErr.Error()
		}
		return fmt.Errorf("cannot save bag: %s", strings.Join(messages, "; "))
	}
	return nil
}

// addSchemas copies the fixed reference schemas into the payload so
// the archive validates without external fetches.
func (packager *Packager) addSchemas(bag *bagins.Bag) error {
	schemaDir := packager.Context.Config.SchemaDirectory
	if schemaDir == "" {
		return nil
	}
	schemaFiles, err := fileutil.RecursiveFileList(schemaDir)
	if err != nil {
		return fmt.Errorf("cannot read schema directory %s: %v", schemaDir, err)
	}
	for _, schemaFile := range schemaFiles {
		err = bag.AddFile(schemaFile, filepath.Join("schemas", filepath.Base(schemaFile)))
		if err != nil {
			return err
		}
	}
	return nil
}

// addTermsSnapshot writes the currently agreed terms of use into the
// payload, so the preservation record captures what the tenant
// consented to at deposit time.
func (packager *Packager) addTermsSnapshot(bag *bagins.Bag, depositDir string,
	state *models.TenantState) error {
	snapshot := struct {
		Terms         []*models.TermOfUse `json:"terms"`
		TermsAgreedAt time.Time           `json:"terms_agreed_at"`
	}{
		Terms:         state.Terms,
		TermsAgreedAt: state.TermsAgreedAt,
	}
	scratchPath := filepath.Join(depositDir, constants.TermsFileName)
	err := fileutil.ObjectToJsonFile(scratchPath, snapshot)
	if err != nil {
		return err
	}
	return bag.AddFile(scratchPath, constants.TermsFileName)
}

func (packager *Packager) addBagDeclaration(bag *bagins.Bag) error {
	err := bag.AddTagfile("bagit.txt")
	if err != nil {
		return err
	}
	bagit, err := bag.TagFile("bagit.txt")
	if err != nil {
		return err
	}
	bagit.Data.AddField(*bagins.NewTagField("BagIt-Version", "0.97"))
	bagit.Data.AddField(*bagins.NewTagField("Tag-File-Character-Encoding", "UTF-8"))
	return nil
}

func (packager *Packager) addBagInfo(bag *bagins.Bag, deposit *models.Deposit) error {
	err := bag.AddTagfile("bag-info.txt")
	if err != nil {
		return err
	}
	bagInfo, err := bag.TagFile("bag-info.txt")
	if err != nil {
		return err
	}
	bagInfo.Data.AddField(*bagins.NewTagField("External-Identifier", deposit.UUID))
	bagInfo.Data.AddField(*bagins.NewTagField("Bagging-Date",
		time.Now().UTC().Format(time.RFC3339)))
	bagInfo.Data.AddField(*bagins.NewTagField("Bag-Software-Agent",
		fmt.Sprintf("%s/%s", constants.AppName, constants.AppVersion)))
	return nil
}

// tarBag writes the saved bag into a tar archive with all paths
// rooted at the deposit UUID, then removes the untarred bag.
func (packager *Packager) tarBag(depositDir, depositUUID, archivePath string) error {
	bagDir := filepath.Join(depositDir, constants.BagName)
	bagFiles, err := fileutil.RecursiveFileList(bagDir)
	if err != nil {
		return err
	}
	writer := tarfile.NewWriter(archivePath)
	err = writer.Open()
	if err != nil {
		return err
	}
	for _, bagFile := range bagFiles {
		relPath, err := filepath.Rel(bagDir, bagFile)
		if err != nil {
			writer.Close()
			return err
		}
		err = writer.AddToArchive(bagFile, filepath.Join(depositUUID, relPath))
		if err != nil {
			writer.Close()
			return err
		}
	}
	err = writer.Close()
	if err != nil {
		return err
	}
	return os.RemoveAll(bagDir)
}

func (packager *Packager) removeScratch(depositDir string, scratchFiles []string) {
	for _, scratchName := range scratchFiles {
		os.Remove(filepath.Join(depositDir, scratchName))
	}
	os.Remove(filepath.Join(depositDir, constants.TermsFileName))
}

// archiveUrl returns the stable URL the preservation network will
// fetch the archive from. With an archive publisher configured, the
// tarball is uploaded and served from the bucket; otherwise the
// tenant's own gateway serves it.
func (packager *Packager) archiveUrl(tenant *models.Tenant, deposit *models.Deposit,
	archivePath string) (string, error) {
	if packager.Context.Publisher != nil {
		return packager.Context.Publisher.Publish(archiveObjectName(deposit), archivePath)
	}
	return strings.TrimRight(tenant.BaseUrl, "/") +
		fmt.Sprintf(constants.ArchiveGatewayPath, deposit.UUID), nil
}

// archiveObjectName is the bucket key a deposit's tarball is hosted
// under when an archive publisher is configured.
func archiveObjectName(deposit *models.Deposit) string {
	return fmt.Sprintf("%s/%s%s", deposit.TenantUUID, deposit.UUID,
		constants.ArchiveSuffix)
}

// DiscardArtifacts removes the deposit's staging directory and, when
// archive hosting is configured, the hosted copy of the tarball.
// Called after a failed packaging attempt, and again once the remote
// side confirms it holds the archive.
func (packager *Packager) DiscardArtifacts(deposit *models.Deposit) {
	if packager.Context.Publisher != nil {
		err := packager.Context.Publisher.Remove(archiveObjectName(deposit))
		if err != nil {
			packager.Context.MessageLog.Warning("Cannot remove hosted archive for %s: %v",
				deposit.UUID, err)
		}
	}
	depositDir := packager.Context.Config.DepositDirectory(deposit)
	if !fileutil.FileExists(depositDir) {
		return
	}
	if !fileutil.LooksSafeToDelete(depositDir, 12, 3) {
		packager.Context.MessageLog.Warning("Not deleting %s: path looks too shallow",
			depositDir)
		return
	}
	err := os.RemoveAll(depositDir)
	if err != nil {
		packager.Context.MessageLog.Warning("Cannot delete %s: %v", depositDir, err)
	}
}

func (packager *Packager) freshDirectory(depositDir string) error {
	if fileutil.FileExists(depositDir) {
		if !fileutil.LooksSafeToDelete(depositDir, 12, 3) {
			return fmt.Errorf("refusing to clear %s: path looks too shallow", depositDir)
		}
		err := os.RemoveAll(depositDir)
		if err != nil {
			return err
		}
	}
	return os.MkdirAll(depositDir, 0755)
}
