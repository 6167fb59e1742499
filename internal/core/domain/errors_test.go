package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("checkout: %w", BasketNotFound(12))

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrAlreadyCheckedOut)
	assert.Equal(t, "Basket with ID 12 is not found", MessageOf(err))
}

func TestError_CostFamily(t *testing.T) {
	assert.NotErrorIs(t, InsufficientQuantity("apple"), ErrCostOutOfPolicy)
	assert.ErrorIs(t, DefaultCostPolicy.Check(1), ErrCostOutOfPolicy)
	assert.NotErrorIs(t, DefaultCostPolicy.Check(1), ErrCostTooHigh)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAlreadyCheckedOut, KindOf(AlreadyCheckedOut(1)))
	assert.Equal(t, KindInsufficientQuantity, KindOf(fmt.Errorf("wrap: %w", InsufficientQuantity("pen"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, "internal error", MessageOf(errors.New("dial tcp: refused")))
}

func TestInputValidation(t *testing.T) {
	validUser := UserInput{FirstName: "Ada", LastName: "Lovelace", Username: "ada", Email: "ada@example.com"}
	assert.NoError(t, validUser.Validate())

	bad := validUser
	bad.Email = "not-an-email"
	assert.EqualError(t, bad.Validate(), MsgEmailInvalid)

	bad = validUser
	bad.LastName = "  "
	assert.EqualError(t, bad.Validate(), MsgLastNameBlank)

	assert.EqualError(t, ItemInput{Name: "pen", Price: 0, Stock: 1}.Validate(), MsgPriceNegative)
	assert.EqualError(t, ItemInput{Name: "", Price: 1}.Validate(), MsgNameBlank)
	assert.EqualError(t, ItemInput{Name: "pen", Price: 1, Stock: -1}.Validate(), MsgStockNegative)
	assert.NoError(t, ItemInput{Name: "pen", Price: 1, Stock: 0}.Validate())

	assert.ErrorIs(t, BasketContentInput{BasketID: 1, ItemID: 1, Quantity: 0}.Validate(), ErrInvalidInput)
	assert.ErrorIs(t, BasketInput{}.Validate(), ErrInvalidInput)
}

func TestInputApply_OnlyWritableFields(t *testing.T) {
	b := Basket{ID: 4, UserID: 1, CheckedOut: true}
	BasketInput{UserID: 2}.Apply(&b)
	assert.Equal(t, Basket{ID: 4, UserID: 2, CheckedOut: true}, b)

	it := Item{ID: 9, Name: "old", Price: 1, Stock: 1}
	ItemInput{Name: "new", Price: 2, Stock: 3}.Apply(&it)
	assert.Equal(t, Item{ID: 9, Name: "new", Price: 2, Stock: 3}, it)
}
