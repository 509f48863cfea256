package workers

import (
	"fmt"
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/context"
	"github.com/pkppln/depositor/models"
	"github.com/pkppln/depositor/network"
	"github.com/pkppln/depositor/util/fileutil"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"
)

// Depositor runs the full deposit pipeline. One call to Run works
// every configured tenant through a fixed sequence of stages, each
// isolated so a failure in one stage (or one tenant) never blocks
// the rest: preconditions, service document refresh, content
// discovery, staleness checks, batching, packaging, transfer and
// status polling. Garbage collection runs once, after all tenants,
// so objects still waiting to be batched are never mistaken for
// orphans.
type Depositor struct {
	Context  *context.Context
	Packager *Packager
}

// TenantResult collects the per-stage outcomes of one tenant's run.
// A skipped tenant carries the reason; stages that never ran are nil.
type TenantResult struct {
	Tenant        *models.Tenant
	Skipped       bool
	SkipReason    string
	Preconditions *models.WorkSummary
	ServiceDoc    *models.WorkSummary
	Discovery     *models.WorkSummary
	Staleness     *models.WorkSummary
	Batching      *models.WorkSummary
	Packaging     *models.WorkSummary
	Transfer      *models.WorkSummary
	Polling       *models.WorkSummary
}

// HasErrors returns true if any stage of this tenant's run recorded
// an error.
func (result *TenantResult) HasErrors() bool {
	summaries := []*models.WorkSummary{
		result.Preconditions, result.ServiceDoc, result.Discovery,
		result.Staleness, result.Batching, result.Packaging,
		result.Transfer, result.Polling,
	}
	for _, summary := range summaries {
		if summary != nil && summary.HasErrors() {
			return true
		}
	}
	return false
}

func NewDepositor(_context *context.Context) *Depositor {
	return &Depositor{
		Context:  _context,
		Packager: NewPackager(_context),
	}
}

// Run processes every configured tenant, then collects garbage
// across all of them. This is the only function a cron job needs to
// call.
func (depositor *Depositor) Run() []*TenantResult {
	results := make([]*TenantResult, 0, len(depositor.Context.Config.Tenants))
	for _, tenant := range depositor.Context.Config.Tenants {
		result := depositor.ProcessTenant(tenant)
		depositor.logResult(result)
		results = append(results, result)
	}
	gcSummary := depositor.CollectGarbage()
	if gcSummary.HasErrors() {
		depositor.Context.MessageLog.Error("Garbage collection: %s",
			gcSummary.AllErrorsAsString())
	}
	return results
}

// ProcessTenant runs the stage pipeline for one tenant. The tenant's
// persisted state is saved after every stage that touches it.
func (depositor *Depositor) ProcessTenant(tenant *models.Tenant) *TenantResult {
	result := &TenantResult{Tenant: tenant}
	state, err := depositor.loadState(tenant)
	if err != nil {
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("cannot load tenant state: %v", err)
		return result
	}

	result.Preconditions = depositor.checkPreconditions(tenant, state, result)
	depositor.saveState(state)
	if result.Skipped {
		return result
	}

	result.ServiceDoc = depositor.refreshServiceDocument(tenant, state, result)
	depositor.saveState(state)
	if result.Skipped || result.ServiceDoc.HasErrors() {
		return result
	}

	var contentByKind map[string][]*network.ContentSummary
	result.Discovery, contentByKind = depositor.discoverContent(tenant)
	result.Staleness = depositor.flagChangedContent(tenant, contentByKind)
	result.Batching = depositor.batchObjects(tenant)
	result.Packaging = depositor.packageDeposits(tenant, state)
	result.Transfer = depositor.transferDeposits(tenant)
	result.Polling = depositor.pollDeposits(tenant)
	return result
}

func (depositor *Depositor) loadState(tenant *models.Tenant) (*models.TenantState, error) {
	state, err := depositor.Context.Store.GetTenantState(tenant.UUID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = models.NewTenantState(tenant.UUID)
	}
	return state, nil
}

func (depositor *Depositor) saveState(state *models.TenantState) {
	state.UpdatedAt = time.Now().UTC()
	err := depositor.Context.Store.SaveTenantState(state)
	if err != nil {
		depositor.Context.MessageLog.Error("Cannot save state for tenant %s: %v",
			state.TenantUUID, err)
	}
}

// checkPreconditions decides whether the tenant can be worked at all
// this run. A failed precondition skips the tenant and notifies the
// journal managers once; the notification re-arms when the condition
// clears. These are standing conditions an operator must fix, not
// retriable errors, so they never land in the stage summary.
func (depositor *Depositor) checkPreconditions(tenant *models.Tenant,
	state *models.TenantState, result *TenantResult) *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	summary.Attempted = true
	defer summary.Finish()

	if !tenant.Enabled {
		depositor.skipTenant(result, state, constants.EventPluginDisabled,
			"preservation is disabled for this tenant")
		return summary
	}
	state.ClearNotified(constants.EventPluginDisabled)

	if err := depositor.probeStaging(tenant); err != nil {
		depositor.skipTenant(result, state, constants.EventStagingUnwritable,
			fmt.Sprintf("staging directory is not writable: %v", err))
		return summary
	}
	state.ClearNotified(constants.EventStagingUnwritable)

	if !tenant.HasIssn() {
		depositor.skipTenant(result, state, constants.EventIssnMissing,
			"tenant has no ISSN")
		return summary
	}
	state.ClearNotified(constants.EventIssnMissing)
	return summary
}

// probeStaging verifies we can actually create files under the
// tenant's staging area before any stage depends on it.
func (depositor *Depositor) probeStaging(tenant *models.Tenant) error {
	tenantDir := filepath.Join(depositor.Context.Config.StagingDirectory, tenant.UUID)
	err := os.MkdirAll(tenantDir, 0755)
	if err != nil {
		return err
	}
	probePath := filepath.Join(tenantDir, ".staging-probe")
	err = ioutil.WriteFile(probePath, []byte("ok"), 0644)
	if err != nil {
		return err
	}
	return os.Remove(probePath)
}

func (depositor *Depositor) skipTenant(result *TenantResult, state *models.TenantState,
	eventKind, reason string) {
	result.Skipped = true
	result.SkipReason = reason
	if !state.HasNotified(eventKind) {
		depositor.Context.NotifyManagers(state.TenantUUID, eventKind)
		state.SetNotified(eventKind)
	}
	depositor.Context.MessageLog.Info("Skipping tenant %s: %s", state.TenantUUID, reason)
}

// refreshServiceDocument pulls the staging server's capability
// document and updates the tenant's negotiated state: checksum
// algorithm, upload ceiling, acceptance flag and terms of use. The
// tenant is skipped for the rest of this run when the network isn't
// accepting or the current terms are unagreed.
func (depositor *Depositor) refreshServiceDocument(tenant *models.Tenant,
	state *models.TenantState, result *TenantResult) *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	summary.Attempted = true
	defer summary.Finish()

	resp := depositor.Context.PLNClient.ServiceDocument(tenant)
	if !resp.IsSuccess() {
		summary.AddError("Cannot fetch service document for tenant %s: %s",
			tenant.UUID, resp.ErrorMessage())
		return summary
	}
	doc, err := resp.ServiceDocument()
	if err != nil {
		summary.AddError("Tenant %s: %v", tenant.UUID, err)
		return summary
	}
	algorithm, err := doc.Algorithm()
	if err != nil {
		summary.AddError("Tenant %s: %v", tenant.UUID, err)
		return summary
	}
	state.ChecksumType = algorithm
	state.MaxUploadSize = doc.MaxUploadSize
	state.Accepting = doc.IsAccepting()
	state.AcceptingMessage = doc.Accepting.Message
	state.Terms = doc.TermList()

	if !state.Accepting {
		result.Skipped = true
		result.SkipReason = fmt.Sprintf("network is not accepting deposits: %s",
			state.AcceptingMessage)
		depositor.Context.MessageLog.Info("Skipping tenant %s: %s",
			tenant.UUID, result.SkipReason)
		return summary
	}
	if !state.TermsAgreed() {
		if !state.HasNotified(constants.EventTermsUpdated) {
			depositor.Context.NotifyManagers(tenant.UUID, constants.EventTermsUpdated)
			state.SetNotified(constants.EventTermsUpdated)
		}
		result.Skipped = true
		result.SkipReason = "current terms of use have not been agreed to"
		depositor.Context.MessageLog.Info("Skipping tenant %s: %s",
			tenant.UUID, result.SkipReason)
		return summary
	}
	state.ClearNotified(constants.EventTermsUpdated)
	return summary
}

// discoverContent lists the tenant's content and creates a
// DepositObject for every item we haven't seen before. The listings
// are returned so the staleness stage works from the same snapshot.
func (depositor *Depositor) discoverContent(tenant *models.Tenant) (*models.WorkSummary,
	map[string][]*network.ContentSummary) {
	summary := models.NewWorkSummary()
	summary.Start()
	summary.Attempted = true
	defer summary.Finish()

	contentByKind := make(map[string][]*network.ContentSummary)
	for _, kind := range constants.ContentKinds {
		listing, err := depositor.Context.ExportClient.ListContent(tenant, kind)
		if err != nil {
			summary.AddError("Cannot list %s content for tenant %s: %v",
				kind, tenant.UUID, err)
			continue
		}
		contentByKind[kind] = listing

		known, err := depositor.knownContentIds(tenant.UUID, kind)
		if err != nil {
			summary.AddError("Tenant %s: %v", tenant.UUID, err)
			continue
		}
		for _, item := range listing {
			if known[item.Id] {
				continue
			}
			obj := models.NewDepositObject(tenant.UUID, kind, item.Id, item.ModifiedAt)
			obj.Volume = item.Volume
			obj.Issue = item.Issue
			obj.PublishedAt = item.PublishedAt
			err = depositor.Context.Store.SaveDepositObject(obj)
			if err != nil {
				summary.AddError("Cannot save %s object %d for tenant %s: %v",
					kind, item.Id, tenant.UUID, err)
				continue
			}
			depositor.Context.MessageLog.Info("Discovered %s %d for tenant %s",
				kind, item.Id, tenant.UUID)
		}
	}
	return summary, contentByKind
}

func (depositor *Depositor) knownContentIds(tenantUUID, kind string) (map[int]bool, error) {
	objects, err := depositor.Context.Store.ObjectsForTenant(tenantUUID,
		func(obj *models.DepositObject) bool {
			return obj.ContentKind == kind
		})
	if err != nil {
		return nil, err
	}
	known := make(map[int]bool, len(objects))
	for _, obj := range objects {
		known[obj.ContentId] = true
	}
	return known, nil
}

// flagChangedContent refreshes DepositObjects whose underlying
// content changed since we last looked. If the owning deposit was
// already transferred, it gets reset to NEW so the changed content
// is repackaged and resent.
func (depositor *Depositor) flagChangedContent(tenant *models.Tenant,
	contentByKind map[string][]*network.ContentSummary) *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	summary.Attempted = true
	defer summary.Finish()

	for kind, listing := range contentByKind {
		byId := make(map[int]*network.ContentSummary, len(listing))
		for _, item := range listing {
			byId[item.Id] = item
		}
		objects, err := depositor.Context.Store.ObjectsForTenant(tenant.UUID,
			func(obj *models.DepositObject) bool {
				return obj.ContentKind == kind
			})
		if err != nil {
			summary.AddError("Tenant %s: %v", tenant.UUID, err)
			continue
		}
		for _, obj := range objects {
			item := byId[obj.ContentId]
			if item == nil || !item.ModifiedAt.After(obj.ModifiedAt) {
				continue
			}
			obj.ModifiedAt = item.ModifiedAt
			obj.Volume = item.Volume
			obj.Issue = item.Issue
			obj.PublishedAt = item.PublishedAt
			err = depositor.Context.Store.SaveDepositObject(obj)
			if err != nil {
				summary.AddError("Cannot save object %d for tenant %s: %v",
					obj.Id, tenant.UUID, err)
				continue
			}
			if obj.IsBatched() {
				depositor.resetChangedDeposit(obj, summary)
			}
		}
	}
	return summary
}

func (depositor *Depositor) resetChangedDeposit(obj *models.DepositObject,
	summary *models.WorkSummary) {
	deposit, err := depositor.Context.Store.GetDeposit(obj.DepositId)
	if err != nil {
		summary.AddError("Cannot load deposit %d: %v", obj.DepositId, err)
		return
	}
	if deposit == nil || !deposit.Status.IsTransferred() {
		return
	}
	deposit.ResetToNew()
	err = depositor.Context.Store.SaveDeposit(deposit)
	if err != nil {
		summary.AddError("Cannot save deposit %s: %v", deposit.UUID, err)
		return
	}
	depositor.Context.MessageLog.Info(
		"Content %d changed after transfer: deposit %s reset for repackaging",
		obj.ContentId, deposit.UUID)
}

// batchObjects assigns un-batched DepositObjects to new Deposits.
// Issues get one deposit each. Articles are grouped into batches of
// Config.BatchSize, and only complete batches become deposits; the
// remainder waits for more content.
func (depositor *Depositor) batchObjects(tenant *models.Tenant) *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	summary.Attempted = true
	defer summary.Finish()

	unbatched := func(kind string) ([]*models.DepositObject, error) {
		return depositor.Context.Store.ObjectsForTenant(tenant.UUID,
			func(obj *models.DepositObject) bool {
				return obj.ContentKind == kind && !obj.IsBatched()
			})
	}

	issues, err := unbatched(constants.ContentIssue)
	if err != nil {
		summary.AddError("Tenant %s: %v", tenant.UUID, err)
	} else {
		for _, issue := range issues {
			depositor.createDeposit(tenant, []*models.DepositObject{issue}, summary)
		}
	}

	articles, err := unbatched(constants.ContentArticle)
	if err != nil {
		summary.AddError("Tenant %s: %v", tenant.UUID, err)
		return summary
	}
	batchSize := depositor.Context.Config.BatchSize
	for len(articles) >= batchSize {
		depositor.createDeposit(tenant, articles[:batchSize], summary)
		articles = articles[batchSize:]
	}
	return summary
}

func (depositor *Depositor) createDeposit(tenant *models.Tenant,
	members []*models.DepositObject, summary *models.WorkSummary) {
	deposit := models.NewDeposit(tenant.UUID)
	err := depositor.Context.Store.SaveDeposit(deposit)
	if err != nil {
		summary.AddError("Cannot create deposit for tenant %s: %v", tenant.UUID, err)
		return
	}
	for _, member := range members {
		member.DepositId = deposit.Id
		err = depositor.Context.Store.SaveDepositObject(member)
		if err != nil {
			summary.AddError("Cannot assign object %d to deposit %s: %v",
				member.Id, deposit.UUID, err)
		}
	}
	depositor.Context.MessageLog.Info("Created deposit %s for tenant %s with %d %s object(s)",
		deposit.UUID, tenant.UUID, len(members), members[0].ContentKind)
}

// packageDeposits builds archives and metadata documents for every
// deposit still missing its packaged bit.
func (depositor *Depositor) packageDeposits(tenant *models.Tenant,
	state *models.TenantState) *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	summary.Attempted = true
	defer summary.Finish()

	deposits, err := depositor.Context.Store.DepositsForTenant(tenant.UUID,
		func(deposit *models.Deposit) bool {
			return deposit.ReadyToPackage()
		})
	if err != nil {
		summary.AddError("Tenant %s: %v", tenant.UUID, err)
		return summary
	}
	for _, deposit := range deposits {
		members, err := depositor.Context.Store.ObjectsForDeposit(deposit.Id)
		if err != nil {
			summary.AddError("Cannot load members of deposit %s: %v", deposit.UUID, err)
			continue
		}
		err = depositor.Packager.PackageDeposit(tenant, state, deposit, members)
		if err != nil {
			summary.AddError("Deposit %s: %v", deposit.UUID, err)
			depositor.Context.IncrementFailed()
		} else {
			depositor.Context.IncrementSucceeded()
		}
		saveErr := depositor.Context.Store.SaveDeposit(deposit)
		if saveErr != nil {
			summary.AddError("Cannot save deposit %s: %v", deposit.UUID, saveErr)
		}
	}
	return summary
}

// transferDeposits sends the metadata document for every packaged,
// untransferred deposit. An existence check on the deposit's state
// resource decides between create (POST to the collection) and
// update (PUT to the edit resource).
func (depositor *Depositor) transferDeposits(tenant *models.Tenant) *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	summary.Attempted = true
	defer summary.Finish()

	deposits, err := depositor.Context.Store.DepositsForTenant(tenant.UUID,
		func(deposit *models.Deposit) bool {
			return deposit.ReadyToTransfer()
		})
	if err != nil {
		summary.AddError("Tenant %s: %v", tenant.UUID, err)
		return summary
	}
	for _, deposit := range deposits {
		depositor.transferOne(tenant, deposit, summary)
	}
	return summary
}

func (depositor *Depositor) transferOne(tenant *models.Tenant, deposit *models.Deposit,
	summary *models.WorkSummary) {
	atomPath := depositor.Packager.AtomDocPath(deposit)
	if !fileutil.FileExists(atomPath) {
		deposit.ResetToNew()
		depositor.saveDeposit(deposit, summary)
		depositor.Context.MessageLog.Warning(
			"Metadata document missing for deposit %s: reset for repackaging", deposit.UUID)
		return
	}

	stateResp := depositor.Context.PLNClient.DepositStatement(tenant.UUID, deposit.UUID)
	var sendResp *network.PLNResponse
	switch stateResp.StatusClass() {
	case 2:
		sendResp = depositor.Context.PLNClient.UpdateDeposit(tenant.UUID, deposit.UUID, atomPath)
	case 4:
		sendResp = depositor.Context.PLNClient.CreateDeposit(tenant.UUID, atomPath)
	default:
		deposit.RecordError("Cannot check remote state: %s", stateResp.ErrorMessage())
		depositor.saveDeposit(deposit, summary)
		summary.AddError("Deposit %s: %s", deposit.UUID, stateResp.ErrorMessage())
		depositor.Context.IncrementFailed()
		return
	}

	if sendResp.IsSuccess() {
		deposit.SetTransferred()
		depositor.Context.IncrementSucceeded()
		depositor.Context.MessageLog.Info("Transferred deposit %s for tenant %s",
			deposit.UUID, tenant.UUID)
	} else {
		deposit.RecordError("Transfer failed: %s", sendResp.ErrorMessage())
		summary.AddError("Deposit %s: transfer failed: %s",
			deposit.UUID, sendResp.ErrorMessage())
		depositor.Context.IncrementFailed()
	}
	depositor.saveDeposit(deposit, summary)
}

// pollDeposits reconciles local status bits with the staging
// server's view for every deposit that's been transferred but hasn't
// reached durable preservation, plus new deposits the remote side
// may have lost track of. Every poll stamps the status timestamp
// whether or not anything changed.
func (depositor *Depositor) pollDeposits(tenant *models.Tenant) *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	summary.Attempted = true
	defer summary.Finish()

	deposits, err := depositor.Context.Store.DepositsForTenant(tenant.UUID,
		func(deposit *models.Deposit) bool {
			return deposit.ReadyForRemoteUpdate()
		})
	if err != nil {
		summary.AddError("Tenant %s: %v", tenant.UUID, err)
		return summary
	}
	for _, deposit := range deposits {
		depositor.pollOne(tenant, deposit, summary)
	}
	return summary
}

func (depositor *Depositor) pollOne(tenant *models.Tenant, deposit *models.Deposit,
	summary *models.WorkSummary) {
	resp := depositor.Context.PLNClient.DepositStatement(tenant.UUID, deposit.UUID)
	if !resp.IsSuccess() {
		if resp.StatusClass() == 4 {
			// The remote side no longer knows this deposit. A deposit
			// that's still new has nothing to reset, and resetting it
			// would wipe the packaging error worth keeping.
			if !deposit.Status.IsNew() {
				deposit.ResetToNew()
				depositor.Context.MessageLog.Warning(
					"Staging server no longer recognizes deposit %s: reset for repackaging",
					deposit.UUID)
			}
		} else {
			deposit.RecordError("Cannot poll deposit status: %s", resp.ErrorMessage())
			summary.AddError("Deposit %s: %s", deposit.UUID, resp.ErrorMessage())
		}
		deposit.TouchStatus()
		depositor.saveDeposit(deposit, summary)
		return
	}

	statement, err := resp.Statement()
	if err != nil {
		deposit.RecordError("%v", err)
		summary.AddError("Deposit %s: %v", deposit.UUID, err)
		deposit.TouchStatus()
		depositor.saveDeposit(deposit, summary)
		return
	}
	err = deposit.ApplyProcessingState(statement.ProcessingState())
	if err != nil {
		deposit.RecordError("%v", err)
		summary.AddError("Deposit %s: %v", deposit.UUID, err)
	}
	err = deposit.ApplyLockssState(statement.LockssState())
	if err != nil {
		deposit.RecordError("%v", err)
		summary.AddError("Deposit %s: %v", deposit.UUID, err)
	}

	if deposit.Status.IsReceived() {
		// The remote copy is authoritative now; reclaim local disk.
		depositor.Packager.DiscardArtifacts(deposit)
	} else if !fileutil.FileExists(depositor.Packager.AtomDocPath(deposit)) {
		deposit.ResetToNew()
		depositor.Context.MessageLog.Warning(
			"Local artifacts lost for deposit %s before remote receipt: reset", deposit.UUID)
	}
	deposit.TouchStatus()
	depositor.saveDeposit(deposit, summary)
}

func (depositor *Depositor) saveDeposit(deposit *models.Deposit,
	summary *models.WorkSummary) {
	err := depositor.Context.Store.SaveDeposit(deposit)
	if err != nil {
		summary.AddError("Cannot save deposit %s: %v", deposit.UUID, err)
	}
}

// CollectGarbage removes deposits whose tenant was deconfigured,
// along with their staging directories, and deletes DepositObjects
// whose tenant or deposit no longer exists. Runs after all tenants
// so nothing still pending batching looks like an orphan.
func (depositor *Depositor) CollectGarbage() *models.WorkSummary {
	summary := models.NewWorkSummary()
	summary.Start()
	summary.Attempted = true
	defer summary.Finish()

	deposits, err := depositor.Context.Store.AllDeposits()
	if err != nil {
		summary.AddError("Cannot list deposits: %v", err)
		return summary
	}
	liveDeposits := make(map[int]bool, len(deposits))
	for _, deposit := range deposits {
		if depositor.Context.Config.HasTenant(deposit.TenantUUID) {
			liveDeposits[deposit.Id] = true
			continue
		}
		depositor.Packager.DiscardArtifacts(deposit)
		err = depositor.Context.Store.DeleteDeposit(deposit.Id)
		if err != nil {
			summary.AddError("Cannot delete deposit %s: %v", deposit.UUID, err)
			continue
		}
		depositor.Context.MessageLog.Info("Deleted orphaned deposit %s (tenant %s gone)",
			deposit.UUID, deposit.TenantUUID)
	}

	objects, err := depositor.Context.Store.AllDepositObjects()
	if err != nil {
		summary.AddError("Cannot list deposit objects: %v", err)
		return summary
	}
	for _, obj := range objects {
		orphaned := !depositor.Context.Config.HasTenant(obj.TenantUUID) ||
			(obj.IsBatched() && !liveDeposits[obj.DepositId])
		if !orphaned {
			continue
		}
		err = depositor.Context.Store.DeleteDepositObject(obj.Id)
		if err != nil {
			summary.AddError("Cannot delete object %d: %v", obj.Id, err)
			continue
		}
		depositor.Context.MessageLog.Info("Deleted orphaned %s object %d (tenant %s)",
			obj.ContentKind, obj.Id, obj.TenantUUID)
	}
	return summary
}

func (depositor *Depositor) logResult(result *TenantResult) {
	log := depositor.Context.MessageLog
	if result.Skipped {
		log.Info("Tenant %s skipped: %s", result.Tenant.UUID, result.SkipReason)
		return
	}
	if result.HasErrors() {
		summaries := map[string]*models.WorkSummary{
			"preconditions":    result.Preconditions,
			"service document": result.ServiceDoc,
			"discovery":        result.Discovery,
			"staleness":        result.Staleness,
			"batching":         result.Batching,
			"packaging":        result.Packaging,
			"transfer":         result.Transfer,
			"polling":          result.Polling,
		}
		for stage, summary := range summaries {
			if summary != nil && summary.HasErrors() {
				log.Error("Tenant %s, %s: %s", result.Tenant.UUID, stage,
					summary.AllErrorsAsString())
			}
		}
		return
	}
	log.Info("Tenant %s processed without errors", result.Tenant.UUID)
}
