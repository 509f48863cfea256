package testutil

// Common factories for the depositor test packages.

import (
	"fmt"
	"github.com/icrowley/fake"
	"github.com/pkppln/depositor/constants"
	"github.com/pkppln/depositor/models"
	"github.com/satori/go.uuid"
	"math/rand"
	"time"
)

// RandomDateTime returns a random UTC datetime within roughly the
// last ten years.
func RandomDateTime() time.Time {
	now := time.Now().UTC()
	return now.AddDate(0, 0, -1*rand.Intn(3650))
}

// MakeTenant creates a mock tenant for testing. The tenant is
// enabled and carries an ISSN, so it passes pipeline preconditions.
func MakeTenant() *models.Tenant {
	return &models.Tenant{
		UUID:          uuid.NewV4().String(),
		Title:         fake.Title(),
		Issn:          "1234-5678",
		BaseUrl:       fmt.Sprintf("http://%s", fake.DomainName()),
		Email:         fake.EmailAddress(),
		PublisherName: fake.Company(),
		PublisherUrl:  fmt.Sprintf("http://%s", fake.DomainName()),
		Enabled:       true,
	}
}

// MakeTenantState creates a mock tenant state with sha1 checksums,
// the network accepting, and agreed terms.
func MakeTenantState(tenantUUID string) *models.TenantState {
	state := models.NewTenantState(tenantUUID)
	state.ChecksumType = constants.AlgSha1
	state.MaxUploadSize = 1024 * 1024 * 1024
	state.Accepting = true
	state.Terms = []*models.TermOfUse{
		&models.TermOfUse{
			Key:       "allow_preservation",
			Text:      fake.Sentence(),
			UpdatedAt: time.Now().UTC().Add(-24 * time.Hour),
		},
	}
	state.TermsAgreedAt = time.Now().UTC()
	return state
}

// MakeDeposit creates a mock deposit in the NEW state.
func MakeDeposit(tenantUUID string) *models.Deposit {
	return models.NewDeposit(tenantUUID)
}

// MakeDepositObject creates a mock unbatched deposit object.
func MakeDepositObject(tenantUUID, contentKind string, contentId int) *models.DepositObject {
	obj := models.NewDepositObject(tenantUUID, contentKind, contentId,
		time.Now().UTC().Add(-1*time.Hour))
	obj.Volume = "2"
	obj.Issue = "4"
	obj.PublishedAt = RandomDateTime()
	return obj
}
