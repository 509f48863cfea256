package models

import (
	"time"
)

// Tenant is one journal whose content we preserve. Tenants are
// declared in the config file; their remote-negotiated state lives in
// TenantState, which the store persists between runs.
type Tenant struct {
	// UUID identifies the journal to the preservation network. It
	// goes out in the On-Behalf-Of header on every SWORD request.
	UUID string `json:"uuid"`

	// Title is the journal's name.
	Title string `json:"title"`

	// Issn is the identifying code the network requires before it
	// will accept deposits from this journal.
	Issn string `json:"issn"`

	// BaseUrl is the journal's public site. The content listing and
	// export endpoints hang off it, and it goes out in the
	// Journal-Url header on SWORD requests.
	BaseUrl string `json:"base_url"`

	// Email is the contact address included in metadata documents.
	Email string `json:"email"`

	// PublisherName and PublisherUrl describe who publishes the
	// journal, for the metadata document's provenance block.
	PublisherName string `json:"publisher_name"`
	PublisherUrl  string `json:"publisher_url"`

	// Enabled turns preservation on or off for this tenant.
	Enabled bool `json:"enabled"`
}

// HasIssn returns false when the tenant lacks the identifying code
// the network requires.
func (tenant *Tenant) HasIssn() bool {
	return tenant.Issn != ""
}

// TermOfUse is one clause of the network's terms, as published in the
// service document. Updated tells us when the network last changed
// the clause's wording.
type TermOfUse struct {
	Key       string    `json:"key"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TenantState is what we know about a tenant beyond its config entry:
// capabilities the network reported for it, the terms of use and
// when they were agreed to, and which one-time notifications have
// already gone out. The store persists one of these per tenant.
type TenantState struct {
	TenantUUID string `json:"tenant_uuid"`

	// ChecksumType is the algorithm the network negotiated for this
	// tenant (constants.AlgMd5 or constants.AlgSha1).
	ChecksumType string `json:"checksum_type"`

	// MaxUploadSize is the network's upload ceiling, in bytes.
	MaxUploadSize int64 `json:"max_upload_size"`

	// Accepting reports whether the network is currently taking
	// deposits from this tenant, with the network's explanation.
	Accepting        bool   `json:"accepting"`
	AcceptingMessage string `json:"accepting_message"`

	// Terms is the current terms-of-use text, one entry per clause.
	Terms []*TermOfUse `json:"terms"`

	// TermsAgreedAt is when a journal manager last agreed to the
	// terms. Zero means never.
	TermsAgreedAt time.Time `json:"terms_agreed_at"`

	// Notified latches one-time manager notifications by event kind,
	// so a standing precondition failure nags once, not every run.
	Notified map[string]bool `json:"notified"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewTenantState(tenantUUID string) *TenantState {
	return &TenantState{
		TenantUUID: tenantUUID,
		Terms:      make([]*TermOfUse, 0),
		Notified:   make(map[string]bool),
	}
}

// TermsAgreed returns true when the current terms have been agreed
// to. Any clause revised after the agreement makes the agreement
// stale. A tenant with no terms on record has nothing to agree to.
func (state *TenantState) TermsAgreed() bool {
	if len(state.Terms) == 0 {
		return true
	}
	if state.TermsAgreedAt.IsZero() {
		return false
	}
	for _, term := range state.Terms {
		if term.UpdatedAt.After(state.TermsAgreedAt) {
			return false
		}
	}
	return true
}

// HasNotified says whether the one-time notification for eventKind
// already went out.
func (state *TenantState) HasNotified(eventKind string) bool {
	return state.Notified != nil && state.Notified[eventKind]
}

// SetNotified latches the notification for eventKind.
func (state *TenantState) SetNotified(eventKind string) {
	if state.Notified == nil {
		state.Notified = make(map[string]bool)
	}
	state.Notified[eventKind] = true
}

// ClearNotified re-arms the notification for eventKind. Called when
// the underlying condition clears, so a later recurrence notifies
// again.
func (state *TenantState) ClearNotified(eventKind string) {
	if state.Notified != nil {
		delete(state.Notified, eventKind)
	}
}
