package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderDraftMissingFields(t *testing.T) {
	draft := OrderDraft{
		CustomerName: "Asha",
		Address:      "12 Beach Road",
		PhoneNumber:  "9876543210",
		District:     "Ernakulam",
		State:        "Kerala",
		Pincode:      "682001",
		Products:     []OrderDraftItem{{Product: "p1", Quantity: 1}},
	}
	assert.Empty(t, draft.MissingFields())

	draft.Pincode = "  "
	draft.Products = nil
	assert.Equal(t, []string{"pincode", "products"}, draft.MissingFields())
}

func TestReviewInputMissingFields(t *testing.T) {
	in := ReviewInput{ProductID: "p1", Name: "Ravi", Phone: "99", Rating: 4, Review: "ok"}
	assert.Empty(t, in.MissingFields())

	assert.ElementsMatch(t,
		[]string{"productId", "rating", "name", "phone", "review"},
		ReviewInput{}.MissingFields())
}

func TestOrderReference(t *testing.T) {
	assert.Equal(t, "C0FFEE", OrderReference("3f1b2a9e-0000-4000-8000-00000bc0ffee"))
	assert.Equal(t, "AB12", OrderReference("ab12"))
}

func TestEffectivePrice(t *testing.T) {
	price := decimal.NewFromInt(1000)

	assert.True(t, EffectivePrice(price, decimal.NullDecimal{}).Equal(price))
	sale := decimal.NewNullDecimal(decimal.NewFromInt(800))
	assert.True(t, EffectivePrice(price, sale).Equal(decimal.NewFromInt(800)))
}
