package customer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomer(t *testing.T) {
	tenantID := uuid.New()

	t.Run("creates standard-tier customer", func(t *testing.T) {
		c, err := NewCustomer(tenantID, "cust-001", "Globex Inc")
		require.NoError(t, err)

		assert.Equal(t, "CUST-001", c.Code)
		assert.Equal(t, "Globex Inc", c.CompanyName)
		assert.Equal(t, TierStandard, c.Tier)
		assert.True(t, c.IsActive())

		events := c.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeCustomerCreated, events[0].EventType())
	})

	t.Run("rejects invalid code", func(t *testing.T) {
		_, err := NewCustomer(tenantID, "cust 001", "Globex")
		require.Error(t, err)
	})

	t.Run("rejects empty company name", func(t *testing.T) {
		_, err := NewCustomer(tenantID, "CUST-001", "  ")
		require.Error(t, err)
	})
}

func TestCustomerUpdate(t *testing.T) {
	tenantID := uuid.New()
	c, _ := NewCustomer(tenantID, "CUST-001", "Globex Inc")

	t.Run("updates contact info", func(t *testing.T) {
		err := c.Update("Globex Corporation", "Hank Scorpio", "Hank@Globex.com", "555-0100")
		require.NoError(t, err)
		assert.Equal(t, "Globex Corporation", c.CompanyName)
		assert.Equal(t, "hank@globex.com", c.ContactEmail)
	})

	t.Run("rejects bad email", func(t *testing.T) {
		err := c.Update("Globex", "Hank", "not-an-email", "")
		require.Error(t, err)
	})
}

func TestCustomerTierChange(t *testing.T) {
	tenantID := uuid.New()
	c, _ := NewCustomer(tenantID, "CUST-001", "Globex Inc")
	c.ClearDomainEvents()

	t.Run("changes tier and publishes event", func(t *testing.T) {
		require.NoError(t, c.ChangeTier(TierGold))
		assert.Equal(t, TierGold, c.Tier)

		events := c.GetDomainEvents()
		require.Len(t, events, 1)
		event, ok := events[0].(*CustomerTierChangedEvent)
		require.True(t, ok)
		assert.Equal(t, TierStandard, event.OldTier)
		assert.Equal(t, TierGold, event.NewTier)
	})

	t.Run("same tier is a no-op", func(t *testing.T) {
		c.ClearDomainEvents()
		require.NoError(t, c.ChangeTier(TierGold))
		assert.Empty(t, c.GetDomainEvents())
	})

	t.Run("rejects unknown tier", func(t *testing.T) {
		require.Error(t, c.ChangeTier(Tier("diamond")))
	})
}

func TestCustomerStatus(t *testing.T) {
	tenantID := uuid.New()
	c, _ := NewCustomer(tenantID, "CUST-001", "Globex Inc")

	require.NoError(t, c.Deactivate())
	assert.False(t, c.IsActive())
	require.Error(t, c.Deactivate())

	require.NoError(t, c.Activate())
	assert.True(t, c.IsActive())
	require.Error(t, c.Activate())
}
