package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/basket-checkout/internal/core/domain"
)

func newValidator(store *mockStore) *CheckoutValidator {
	return NewCheckoutValidator(store.BasketContents(), store.Items(), domain.DefaultCostPolicy)
}

func TestValidate_AggregatesAndSums(t *testing.T) {
	store := newMockStore()
	user := store.addUser()
	pen := store.addItem("pen", 10, 100)
	ink := store.addItem("ink", 2.5, 100)
	basket := store.addBasket(user, false)
	store.addContent(basket, pen, 5)
	store.addContent(basket, ink, 4)
	store.addContent(basket, pen, 5)

	info, err := newValidator(store).Validate(context.Background(), basket)
	require.NoError(t, err)

	assert.Equal(t, 2, info.Contents.Len())
	line, ok := info.Contents.Get(pen)
	require.True(t, ok)
	assert.Equal(t, 10, line.Quantity)
	assert.InDelta(t, 110.0, info.TotalCost, 1e-9)
	assert.Equal(t, []int64{pen, ink}, []int64{info.Contents.Lines()[0].ItemID, info.Contents.Lines()[1].ItemID})
	assert.Zero(t, store.writes())
}

func TestValidate_DuplicatesMatchSingleLine(t *testing.T) {
	split := newMockStore()
	user := split.addUser()
	item := split.addItem("pen", 10, 100)
	b1 := split.addBasket(user, false)
	split.addContent(b1, item, 3)
	split.addContent(b1, item, 7)

	single := newMockStore()
	user = single.addUser()
	item = single.addItem("pen", 10, 100)
	b2 := single.addBasket(user, false)
	single.addContent(b2, item, 10)

	got1, err := newValidator(split).Validate(context.Background(), b1)
	require.NoError(t, err)
	got2, err := newValidator(single).Validate(context.Background(), b2)
	require.NoError(t, err)

	assert.Equal(t, got2.TotalCost, got1.TotalCost)
	l1, _ := got1.Contents.Get(item)
	l2, _ := got2.Contents.Get(item)
	assert.Equal(t, l2.Quantity, l1.Quantity)
}

func TestValidate_InsufficientAfterAggregation(t *testing.T) {
	store := newMockStore()
	user := store.addUser()
	item := store.addItem("pen", 10, 12)
	basket := store.addBasket(user, false)
	// each line alone fits, the sum does not
	store.addContent(basket, item, 7)
	store.addContent(basket, item, 7)

	_, err := newValidator(store).Validate(context.Background(), basket)
	assert.ErrorIs(t, err, domain.ErrInsufficientQuantity)
	assert.EqualError(t, err, "Insufficient quantity of pen")
}

func TestValidate_CostWindow(t *testing.T) {
	tests := []struct {
		name    string
		price   float64
		qty     int
		wantErr error
	}{
		{"exactly 100", 10, 10, nil},
		{"exactly 1500", 150, 10, nil},
		{"below 100", 9.9999, 10, domain.ErrCostTooLow},
		{"above 1500", 150.0001, 10, domain.ErrCostTooHigh},
		{"fraud 1600", 160, 10, domain.ErrCostTooHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			user := store.addUser()
			item := store.addItem("pen", tt.price, 100)
			basket := store.addBasket(user, false)
			store.addContent(basket, item, tt.qty)

			_, err := newValidator(store).Validate(context.Background(), basket)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidate_EmptyBasketIsTooLow(t *testing.T) {
	store := newMockStore()
	basket := store.addBasket(store.addUser(), false)

	_, err := newValidator(store).Validate(context.Background(), basket)
	assert.ErrorIs(t, err, domain.ErrCostTooLow)
}

func TestValidate_MissingItem(t *testing.T) {
	store := newMockStore()
	basket := store.addBasket(store.addUser(), false)
	store.addContent(basket, 4242, 1)

	_, err := newValidator(store).Validate(context.Background(), basket)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "Item with ID 4242 is not found", domain.MessageOf(err))
}

func TestValidate_ContentLoadFailure(t *testing.T) {
	store := newMockStore()
	basket := store.addBasket(store.addUser(), false)
	store.contentsErr = errors.New("connection reset")

	_, err := newValidator(store).Validate(context.Background(), basket)
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}
