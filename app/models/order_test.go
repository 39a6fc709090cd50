package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodle-app/foodle/app/models"
	"github.com/foodle-app/foodle/pkg/lifecycle"
)

func lines() models.LineItems {
	return models.LineItems{
		{MenuItemID: "dosa", Name: "Dosa", Price: decimal.NewFromInt(50), Quantity: 2},
		{MenuItemID: "coffee", Name: "Coffee", Price: decimal.NewFromInt(20), Quantity: 1},
	}
}

func TestNewOrder(t *testing.T) {
	o, err := models.NewOrder("u1", "S1", lines(), "less spicy", "0420")
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "120", o.TotalAmount.String())
	assert.Equal(t, lifecycle.Received, o.Status)
	assert.Equal(t, models.PaymentPending, o.PaymentStatus)
	assert.Equal(t, "0420", o.PickupCode)
}

func TestNewOrder_Invariants(t *testing.T) {
	_, err := models.NewOrder("u1", "S1", nil, "", "1234")
	assert.ErrorIs(t, err, models.ErrNoLineItems)

	bad := lines()
	bad[0].Quantity = 0
	_, err = models.NewOrder("u1", "S1", bad, "", "1234")
	assert.ErrorIs(t, err, models.ErrInvalidLineItem)

	bad = lines()
	bad[1].Price = decimal.NewFromInt(-1)
	_, err = models.NewOrder("u1", "S1", bad, "", "1234")
	assert.ErrorIs(t, err, models.ErrInvalidLineItem)

	_, err = models.NewOrder("u1", "S1", lines(), "", "")
	assert.ErrorIs(t, err, models.ErrMissingPickupCode)

	_, err = models.NewOrder("", "S1", lines(), "", "1234")
	assert.ErrorIs(t, err, models.ErrMissingAssociation)
}

func TestValidate_TotalMismatch(t *testing.T) {
	o, err := models.NewOrder("u1", "S1", lines(), "", "1234")
	require.NoError(t, err)

	o.TotalAmount = decimal.NewFromInt(119)
	assert.ErrorIs(t, o.Validate(), models.ErrTotalMismatch)
}

func TestTransition_StampsOnce(t *testing.T) {
	o, err := models.NewOrder("u1", "S1", lines(), "", "1234")
	require.NoError(t, err)

	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	_, err = o.Transition(lifecycle.Accept, t1)
	require.NoError(t, err)
	require.NotNil(t, o.AcceptedAt)
	assert.Equal(t, t1, *o.AcceptedAt)

	assert.False(t, o.Stamp(lifecycle.Preparing, t1.Add(time.Hour)))
	assert.Equal(t, t1, *o.AcceptedAt)

	_, err = o.Transition(lifecycle.Complete, t1)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	assert.Nil(t, o.CompletedAt)
	assert.Equal(t, "1234", o.PickupCode)
}

func TestForVendor_HidesPickupCode(t *testing.T) {
	o, err := models.NewOrder("u1", "S1", lines(), "", "9876")
	require.NoError(t, err)
	o.User = &models.User{Name: "Asha"}

	data, err := json.Marshal(o.ForVendor())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "9876")
	assert.Contains(t, string(data), `"customer_name":"Asha"`)
	assert.Contains(t, string(data), `"total_amount":120`)
}

func TestStallAvailability(t *testing.T) {
	s := models.Stall{IsOpen: true}
	assert.Equal(t, models.AvailabilityOpen, s.Availability())
	assert.True(t, s.CanOrder())

	s.IsSnoozed = true
	assert.Equal(t, "Busy - Back Soon", s.StatusLabel())
	assert.False(t, s.CanOrder())
	s.SnoozeMessage = "Back in 10"
	assert.Equal(t, "Back in 10", s.StatusLabel())

	s.IsOpen = false
	assert.Equal(t, models.AvailabilityClosed, s.Availability())
	assert.Equal(t, "Closed", s.StatusLabel())
}
