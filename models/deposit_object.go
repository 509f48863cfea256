package models

import (
	"time"
)

// DepositObject links one piece of tenant content (an issue or an
// article) to the deposit that packages it. Objects start unbatched
// and get a DepositId once enough content accumulates.
type DepositObject struct {
	// Id is the local record id, assigned by the store.
	Id int `json:"id"`

	// TenantUUID identifies the owning journal. Every object with a
	// non-zero DepositId must reference a deposit of the same tenant.
	TenantUUID string `json:"tenant_uuid"`

	// ContentId is the content's id in the publishing application.
	ContentId int `json:"content_id"`

	// ContentKind is constants.ContentIssue or constants.ContentArticle.
	ContentKind string `json:"content_kind"`

	// DepositId is zero until the object is batched into a deposit.
	DepositId int `json:"deposit_id"`

	// Bibliographic facts observed at discovery time. They feed the
	// metadata document, which wants the earliest and latest
	// publication dates among a deposit's members plus volume/issue
	// where applicable.
	Volume      string    `json:"volume"`
	Issue       string    `json:"issue"`
	PublishedAt time.Time `json:"published_at"`

	CreatedAt time.Time `json:"created_at"`

	// ModifiedAt records the content's own modification time as we
	// last observed it. When the publisher's copy is newer than this,
	// the content changed behind our back and the owning deposit has
	// to go around again.
	ModifiedAt time.Time `json:"modified_at"`
}

func NewDepositObject(tenantUUID, contentKind string, contentId int, modifiedAt time.Time) *DepositObject {
	return &DepositObject{
		TenantUUID:  tenantUUID,
		ContentId:   contentId,
		ContentKind: contentKind,
		CreatedAt:   time.Now().UTC(),
		ModifiedAt:  modifiedAt,
	}
}

// IsBatched returns true once the object has been assigned to a deposit.
func (obj *DepositObject) IsBatched() bool {
	return obj.DepositId != 0
}
