package main

import (
	"bytes"
	"testing"
	"time"

	billingdomain "github.com/brikx/coach/internal/billing/domain"
	mealplandomain "github.com/brikx/coach/internal/mealplan/domain"
	"github.com/brikx/coach/internal/mealplan/shoppinglist"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateFlagsRequest(t *testing.T) {
	req, err := allocateFlags{target: " 300 ", cutoff: "2024-01-31", invoiceNumber: " INV-1 "}.request()
	require.NoError(t, err)
	require.NotNil(t, req.TargetAmount)
	assert.Equal(t, "300", req.TargetAmount.String())
	assert.Equal(t, "INV-1", req.InvoiceNumber)

	req, err = allocateFlags{cutoff: "2024-01-31"}.request()
	require.NoError(t, err)
	assert.Nil(t, req.TargetAmount)

	_, err = allocateFlags{target: "lots", cutoff: "2024-01-31"}.request()
	assert.ErrorIs(t, err, billingdomain.ErrInvalidTargetAmount)
}

func TestWriteAllocation(t *testing.T) {
	number := "INV-7"
	target := decimal.NewFromInt(500)
	result := &billingdomain.AllocationResult{
		InvoiceNumber: &number,
		InvoiceDate:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Currency:      "EUR",
		TargetAmount:  &target,
		TotalAmount:   decimal.NewFromInt(480),
		Unallocated:   decimal.NewFromInt(20),
		Splits:        1,
		Lines: []billingdomain.AllocationLine{{
			EntryID:          "1",
			PhaseCode:        "design",
			OccurredOn:       time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			Rate:             decimal.NewFromInt(80),
			InvoicedMinutes:  45,
			RemainderMinutes: 75,
			Amount:           decimal.NewFromInt(60),
			Action:           billingdomain.LineActionSplit,
		}},
	}

	var out bytes.Buffer
	require.NoError(t, writeAllocation(&out, result))
	text := out.String()
	assert.Contains(t, text, "2024-01-05")
	assert.Contains(t, text, "split")
	assert.Contains(t, text, "invoiced 480.00 EUR")
	assert.Contains(t, text, "short of target by 20.00 EUR")

	out.Reset()
	require.NoError(t, writeAllocation(&out, &billingdomain.AllocationResult{AlreadyInvoiced: true, InvoiceNumber: &number}))
	assert.Contains(t, out.String(), "INV-7 was already allocated")
}

func TestWriteShoppingList(t *testing.T) {
	list := &mealplandomain.ShoppingListResponse{
		WeekStart: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		List: shoppinglist.List{
			Active: []shoppinglist.Group{{
				Category: "produce",
				Items: []shoppinglist.Item{
					{Name: "Tomato", Unit: "pcs", Quantity: decimal.NewFromInt(9), FromRecipes: true},
					{Name: "Basil", Quantity: decimal.NewFromInt(1), Manual: true},
				},
			}},
			Checked: []shoppinglist.Item{{Name: "Salt", Quantity: decimal.NewFromInt(1), Checked: true}},
		},
	}

	var out bytes.Buffer
	require.NoError(t, writeShoppingList(&out, list, false))
	assert.Contains(t, out.String(), "Week of 2024-01-15")
	assert.Contains(t, out.String(), "[ ] Tomato, 9 pcs")
	assert.Contains(t, out.String(), "[ ] Basil, 1 (added)")
	assert.NotContains(t, out.String(), "Salt")

	out.Reset()
	require.NoError(t, writeShoppingList(&out, list, true))
	assert.Contains(t, out.String(), "[x] Salt, 1")
}
