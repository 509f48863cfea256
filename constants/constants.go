// Common vars and constants, shared by many parts of the depositor.
package constants

// AppName identifies this application in bag tags and in the
// metadata documents we send to the preservation network.
const AppName = "pln-depositor"

// AppVersion goes into every bag we build, so the network can tell
// which release of the depositor produced a given archive.
const AppVersion = "2.0.4"

// Content kinds a tenant can preserve. Issues go out one per deposit.
// Articles are grouped into fixed-size batches.
const (
	ContentIssue   = "issue"
	ContentArticle = "article"
)

var ContentKinds []string = []string{
	ContentIssue,
	ContentArticle,
}

// Checksum algorithms the network negotiates through the service
// document. The algorithm applies both to the bag's payload manifest
// and to the archive checksum in the metadata document.
const (
	AlgMd5  = "md5"
	AlgSha1 = "sha1"
)

var ChecksumAlgorithms []string = []string{
	AlgMd5,
	AlgSha1,
}

// DefaultBatchSize is the number of articles grouped into one deposit
// when the config file doesn't say otherwise. Only complete batches
// become deposits; the remainder waits for more content.
const DefaultBatchSize = 10

// SWORD 2.0 resource paths on the preservation network's staging server.
const (
	ServiceDocumentPath = "/api/sword/2.0/sd-iri"
	CollectionPath      = "/api/sword/2.0/col-iri/%s"
	StatementPath       = "/api/sword/2.0/cont-iri/%s/%s/state"
	EditPath            = "/api/sword/2.0/cont-iri/%s/%s/edit"
)

// Resource paths on the publisher's site: the content listing and
// export endpoints the depositor reads from, and the gateway URL the
// network fetches archives through when hosted storage isn't
// configured.
const (
	ContentListPath    = "/pln/content"
	ContentExportPath  = "/pln/export"
	ArchiveGatewayPath = "/pln/deposits/%s"
)

// Category schemes in the statement XML the staging server returns.
// Each statement carries up to two category elements: one describing
// where the deposit is in the staging pipeline, and one describing
// its standing in the LOCKSS preservation layer.
const (
	ProcessingStateScheme = "http://pkp.sfu.ca/SWORD/terms/processingState"
	LockssStateScheme     = "http://pkp.sfu.ca/SWORD/terms/lockssState"
)

// Processing state tokens reported by the staging server. The -error
// variants mean the deposit reached that stage and failed there.
const (
	StateDepositedByJournal = "depositedByJournal"
	StateHarvested          = "harvested"
	StateHarvestError       = "harvest-error"
	StatePayloadValidated   = "payload-validated"
	StatePayloadError       = "payload-error"
	StateBagValidated       = "bag-validated"
	StateBagError           = "bag-error"
	StateXmlValidated       = "xml-validated"
	StateXmlError           = "xml-error"
	StateVirusChecked       = "virus-checked"
	StateVirusError         = "virus-error"
	StateDeposited          = "deposited"
	StateDepositError       = "deposit-error"
)

// LOCKSS state tokens. Agreement is the terminal success state:
// the preservation layer has reached durable consensus on the archive.
const (
	LockssInProgress = "inProgress"
	LockssAgreement  = "agreement"
)

// Event kinds for manager notifications. Each fires at most once per
// tenant while its condition holds.
const (
	EventPluginDisabled    = "preservation-disabled"
	EventIssnMissing       = "issn-missing"
	EventStagingUnwritable = "staging-unwritable"
	EventTermsUpdated      = "terms-updated"
)

var EventKinds []string = []string{
	EventPluginDisabled,
	EventIssnMissing,
	EventStagingUnwritable,
	EventTermsUpdated,
}

// Names of the on-disk artifacts a packaged deposit leaves in its
// staging directory: <uuid>.tar and <uuid>-atom.xml.
const (
	ArchiveSuffix = ".tar"
	AtomDocSuffix = "-atom.xml"
)

// BagName is the name of the bag directory we assemble before tarring.
const BagName = "bag"

// TermsFileName is the payload file holding the snapshot of the
// terms of use the tenant agreed to at deposit time.
const TermsFileName = "terms-of-use.json"

// Media type of the metadata documents we POST and PUT.
const AtomContentType = "application/atom+xml"
