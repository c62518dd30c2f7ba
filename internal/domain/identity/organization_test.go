package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrganization(t *testing.T) {
	t.Run("creates active organization", func(t *testing.T) {
		org, err := NewOrganization("acme-corp", "Acme Corp")
		require.NoError(t, err)

		assert.Equal(t, "acme-corp", org.Slug)
		assert.Equal(t, "Acme Corp", org.Name)
		assert.Equal(t, "starter", org.PlanCode)
		assert.Equal(t, OrganizationStatusActive, org.Status)
		assert.Equal(t, "USD", org.Settings.Currency)
		assert.True(t, org.IsActive())

		events := org.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeOrganizationRegistered, events[0].EventType())
	})

	t.Run("lowercases slug", func(t *testing.T) {
		org, err := NewOrganization("Acme-Corp", "Acme Corp")
		require.NoError(t, err)
		assert.Equal(t, "acme-corp", org.Slug)
	})

	t.Run("rejects invalid slugs", func(t *testing.T) {
		for _, slug := range []string{"", "with space", "under_score", "-leading", "trailing-", "dot.com"} {
			_, err := NewOrganization(slug, "Acme Corp")
			assert.Error(t, err, slug)
		}
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewOrganization("acme", "  ")
		require.Error(t, err)
	})
}

func TestNewTrialOrganization(t *testing.T) {
	org, err := NewTrialOrganization("acme", "Acme Corp", 14)
	require.NoError(t, err)

	assert.Equal(t, OrganizationStatusTrial, org.Status)
	require.NotNil(t, org.TrialEndsAt)
	assert.True(t, org.TrialEndsAt.After(time.Now().AddDate(0, 0, 13)))
	assert.True(t, org.IsActive())

	_, err = NewTrialOrganization("acme", "Acme Corp", 0)
	require.Error(t, err)
}

func TestOrganizationExpiredTrial(t *testing.T) {
	org, _ := NewTrialOrganization("acme", "Acme Corp", 14)
	past := time.Now().Add(-time.Hour)
	org.TrialEndsAt = &past

	assert.False(t, org.IsActive())
}

func TestOrganizationSuspend(t *testing.T) {
	org, _ := NewOrganization("acme", "Acme Corp")
	org.ClearDomainEvents()

	require.NoError(t, org.Suspend("payment failed"))
	assert.True(t, org.IsSuspended())
	assert.False(t, org.IsActive())
	require.NotNil(t, org.SuspendedAt)

	events := org.GetDomainEvents()
	require.Len(t, events, 1)
	event, ok := events[0].(*OrganizationSuspendedEvent)
	require.True(t, ok)
	assert.Equal(t, "payment failed", event.Reason)

	require.Error(t, org.Suspend("again"))

	require.NoError(t, org.Activate())
	assert.True(t, org.IsActive())
	assert.Nil(t, org.SuspendedAt)
}

func TestOrganizationSettings(t *testing.T) {
	org, _ := NewOrganization("acme", "Acme Corp")

	t.Run("valid settings", func(t *testing.T) {
		err := org.UpdateSettings(OrganizationSettings{
			Currency:          "EUR",
			Timezone:          "Europe/Berlin",
			LowStockThreshold: 25,
		})
		require.NoError(t, err)
		assert.Equal(t, "EUR", org.Settings.Currency)
		assert.Equal(t, 25, org.Settings.LowStockThreshold)
		assert.Equal(t, "{}", org.Settings.Settings)
	})

	t.Run("invalid currency", func(t *testing.T) {
		err := org.UpdateSettings(OrganizationSettings{Currency: "EURO"})
		require.Error(t, err)
	})

	t.Run("negative threshold", func(t *testing.T) {
		err := org.UpdateSettings(OrganizationSettings{LowStockThreshold: -1})
		require.Error(t, err)
	})
}

func TestOrganizationChangePlan(t *testing.T) {
	org, _ := NewOrganization("acme", "Acme Corp")

	require.NoError(t, org.ChangePlan("Growth"))
	assert.Equal(t, "growth", org.PlanCode)

	require.Error(t, org.ChangePlan("  "))
}
