package models

import (
	"fmt"
	"github.com/pkppln/depositor/constants"
	"github.com/satori/go.uuid"
	"time"
)

// DepositStatus is a bitfield describing how far a deposit has moved
// through its lifecycle. Each bit is a milestone; later milestones
// never clear earlier ones. The only way to lose a bit is ResetToNew
// on the owning Deposit.
type DepositStatus uint

const (
	// StatusNew means no work has been done yet. It's the absence
	// of all other bits, not a bit of its own.
	StatusNew DepositStatus = 0x00

	// StatusPackaged: the archive and its metadata document have
	// been built locally.
	StatusPackaged DepositStatus = 0x01

	// StatusTransferred: the metadata document was posted to (or
	// updated on) the staging server.
	StatusTransferred DepositStatus = 0x02

	// StatusReceived: the staging server confirmed it retrieved
	// the archive.
	StatusReceived DepositStatus = 0x04

	// StatusValidated: the staging server's payload, bag, schema
	// and virus checks all passed.
	StatusValidated DepositStatus = 0x08

	// StatusSent: the staging server handed the archive off to the
	// LOCKSS preservation layer.
	StatusSent DepositStatus = 0x10

	// 0x20 is reserved. An earlier release assigned it to a remote
	// milestone that no longer exists, and external reporting tools
	// still key on these numeric values, so the gap stays.

	// StatusLockssReceived: the preservation layer confirmed receipt.
	StatusLockssReceived DepositStatus = 0x40

	// StatusLockssAgreement: the preservation layer reached durable
	// consensus on the archive. Terminal success.
	StatusLockssAgreement DepositStatus = 0x80
)

func (status DepositStatus) IsNew() bool {
	return status == StatusNew
}

func (status DepositStatus) IsPackaged() bool {
	return status&StatusPackaged != 0
}

func (status DepositStatus) IsTransferred() bool {
	return status&StatusTransferred != 0
}

func (status DepositStatus) IsReceived() bool {
	return status&StatusReceived != 0
}

func (status DepositStatus) IsValidated() bool {
	return status&StatusValidated != 0
}

func (status DepositStatus) IsSent() bool {
	return status&StatusSent != 0
}

func (status DepositStatus) IsLockssReceived() bool {
	return status&StatusLockssReceived != 0
}

func (status DepositStatus) IsLockssAgreement() bool {
	return status&StatusLockssAgreement != 0
}

// processingStates maps each staging-pipeline token to the full set of
// bits a deposit in that state has earned. Later stages are supersets
// of earlier ones, so applying a state can never regress a deposit.
// The -error tokens map to the same bits as their success counterparts:
// the deposit reached that stage, and the failure detail lives in the
// error message, not the bits.
var processingStates = map[string]DepositStatus{
	constants.StateDepositedByJournal: StatusTransferred,
	constants.StateHarvested:          StatusTransferred | StatusReceived,
	constants.StateHarvestError:       StatusTransferred | StatusReceived,
	constants.StatePayloadValidated:   StatusTransferred | StatusReceived | StatusValidated,
	constants.StatePayloadError:       StatusTransferred | StatusReceived | StatusValidated,
	constants.StateBagValidated:       StatusTransferred | StatusReceived | StatusValidated,
	constants.StateBagError:           StatusTransferred | StatusReceived | StatusValidated,
	constants.StateXmlValidated:       StatusTransferred | StatusReceived | StatusValidated,
	constants.StateXmlError:           StatusTransferred | StatusReceived | StatusValidated,
	constants.StateVirusChecked:       StatusTransferred | StatusReceived | StatusValidated,
	constants.StateVirusError:         StatusTransferred | StatusReceived | StatusValidated,
	constants.StateDeposited:          StatusTransferred | StatusReceived | StatusValidated | StatusSent,
	constants.StateDepositError:       StatusTransferred | StatusReceived | StatusValidated | StatusSent,
}

// lockssStates maps LOCKSS layer tokens to bit-sets the same way.
// The empty token is valid and means the preservation layer hasn't
// reported anything yet.
var lockssStates = map[string]DepositStatus{
	constants.LockssInProgress: StatusReceived | StatusValidated | StatusSent | StatusLockssReceived,
	constants.LockssAgreement: StatusReceived | StatusValidated | StatusSent |
		StatusLockssReceived | StatusLockssAgreement,
}

// Deposit is one archival unit sent to the preservation network.
// It packages one issue or one batch of articles belonging to a
// single tenant.
type Deposit struct {
	// Id is the local record id, assigned by the store.
	Id int `json:"id"`

	// UUID is client-generated and globally unique. The staging
	// server knows the deposit by this identifier.
	UUID string `json:"uuid"`

	// TenantUUID identifies the journal this deposit belongs to.
	TenantUUID string `json:"tenant_uuid"`

	// Status is the lifecycle bitfield. Only the mutators below
	// touch it; nothing else manipulates the raw bits.
	Status DepositStatus `json:"status"`

	// StagingState and LockssState hold the last remote state tokens
	// we observed. They're informational; branching logic runs on
	// Status, never on these.
	StagingState string `json:"staging_state"`
	LockssState  string `json:"lockss_state"`

	// ExportError is the last human-readable failure message, or
	// empty when the last operation succeeded.
	ExportError string `json:"export_error"`

	LastStatusChangeAt time.Time `json:"last_status_change_at"`
	CreatedAt          time.Time `json:"created_at"`
	ModifiedAt         time.Time `json:"modified_at"`

	// PreservedAt is set once, when the LOCKSS layer confirms
	// agreement.
	PreservedAt time.Time `json:"preserved_at"`
}

func NewDeposit(tenantUUID string) *Deposit {
	now := time.Now().UTC()
	return &Deposit{
		UUID:       uuid.NewV4().String(),
		TenantUUID: tenantUUID,
		Status:     StatusNew,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// ReadyToPackage is true whenever the Packaged bit is clear, whatever
// the other bits say. That covers both first-time packaging and
// repackaging after a reset.
func (deposit *Deposit) ReadyToPackage() bool {
	return !deposit.Status.IsPackaged()
}

// ReadyToTransfer is true when the archive exists locally but the
// metadata document hasn't been accepted remotely.
func (deposit *Deposit) ReadyToTransfer() bool {
	return deposit.Status.IsPackaged() && !deposit.Status.IsTransferred()
}

// ReadyForRemoteUpdate selects deposits worth polling: anything not
// yet terminal that has been transferred at least once, plus brand
// new deposits (the poll on those is how we learn the remote side
// lost track of a deposit we thought we'd sent).
func (deposit *Deposit) ReadyForRemoteUpdate() bool {
	if deposit.Status.IsNew() {
		return true
	}
	return deposit.Status.IsTransferred() && !deposit.Status.IsLockssAgreement()
}

// ResetToNew wipes the deposit back to its freshly-created state:
// all bits cleared, error cleared, remote tokens cleared, status
// timestamp cleared. Used when content changes after transfer, or
// when the remote side reports it no longer knows the deposit.
func (deposit *Deposit) ResetToNew() {
	deposit.Status = StatusNew
	deposit.ExportError = ""
	deposit.StagingState = ""
	deposit.LockssState = ""
	deposit.LastStatusChangeAt = time.Time{}
	deposit.ModifiedAt = time.Now().UTC()
}

// SetPackaged records a successful local packaging run.
func (deposit *Deposit) SetPackaged() {
	deposit.Status |= StatusPackaged
	deposit.ExportError = ""
	deposit.TouchStatus()
}

// SetTransferred records a successful post or update of the metadata
// document.
func (deposit *Deposit) SetTransferred() {
	deposit.Status |= StatusTransferred
	deposit.ExportError = ""
	deposit.TouchStatus()
}

// ApplyProcessingState folds the staging server's processing token
// into the status bits. Unknown tokens change nothing and come back
// as an error carrying the raw token, so an operator can see what
// the server actually said.
func (deposit *Deposit) ApplyProcessingState(token string) error {
	bits, ok := processingStates[token]
	if !ok {
		return fmt.Errorf("Unknown processing state '%s' from staging server", token)
	}
	deposit.Status |= bits
	deposit.StagingState = token
	return nil
}

// ApplyLockssState folds the LOCKSS layer's token into the status
// bits. An empty token is normal: the preservation layer hasn't
// weighed in yet. On agreement, PreservedAt is stamped once.
func (deposit *Deposit) ApplyLockssState(token string) error {
	if token == "" {
		return nil
	}
	bits, ok := lockssStates[token]
	if !ok {
		return fmt.Errorf("Unknown LOCKSS state '%s' from staging server", token)
	}
	deposit.Status |= bits
	deposit.LockssState = token
	if deposit.Status.IsLockssAgreement() && deposit.PreservedAt.IsZero() {
		deposit.PreservedAt = time.Now().UTC()
	}
	return nil
}

// RecordError stores a failure message and stamps the status
// timestamp without changing any bits, so the deposit stays in the
// same "ready" state and retries next run.
func (deposit *Deposit) RecordError(format string, a ...interface{}) {
	deposit.ExportError = fmt.Sprintf(format, a...)
	deposit.TouchStatus()
}

// TouchStatus stamps LastStatusChangeAt so "last checked" stays
// observable even when a poll changed nothing.
func (deposit *Deposit) TouchStatus() {
	now := time.Now().UTC()
	deposit.LastStatusChangeAt = now
	deposit.ModifiedAt = now
}
