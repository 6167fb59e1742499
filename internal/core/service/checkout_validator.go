package service

import (
	"context"
	"fmt"

	"github.com/rl1809/basket-checkout/internal/core/domain"
	"github.com/rl1809/basket-checkout/internal/port"
)

// CheckoutValidator builds the aggregated view of a basket and checks it
// against current stock and the cost policy. It never writes.
type CheckoutValidator struct {
	contents port.BasketContentRepository
	items    port.ItemRepository
	policy   domain.CostPolicy
}

func NewCheckoutValidator(contents port.BasketContentRepository, items port.ItemRepository, policy domain.CostPolicy) *CheckoutValidator {
	return &CheckoutValidator{
		contents: contents,
		items:    items,
		policy:   policy,
	}
}

// Validate fails on the first missing item, short item or out-of-policy
// total. Basket existence is the caller's concern.
func (v *CheckoutValidator) Validate(ctx context.Context, basketID int64) (*domain.CheckoutInfo, error) {
	rows, err := v.contents.FindByBasketID(ctx, basketID)
	if err != nil {
		return nil, fmt.Errorf("load basket contents: %w", err)
	}
	contents := domain.AggregateContents(rows)

	items, err := v.checkAvailability(ctx, contents)
	if err != nil {
		return nil, err
	}

	total := totalCost(contents, items)
	if err := v.policy.Check(total); err != nil {
		return nil, err
	}

	return &domain.CheckoutInfo{
		Contents:  contents,
		Items:     items,
		TotalCost: total,
	}, nil
}

func (v *CheckoutValidator) checkAvailability(ctx context.Context, contents *domain.AggregatedContents) (map[int64]domain.Item, error) {
	items := make(map[int64]domain.Item, contents.Len())
	for _, line := range contents.Lines() {
		item, err := v.items.GetItem(ctx, line.ItemID)
		if err != nil {
			return nil, fmt.Errorf("load item %d: %w", line.ItemID, err)
		}
		if line.Quantity > item.Stock {
			return nil, domain.InsufficientQuantity(item.Name)
		}
		items[item.ID] = *item
	}
	return items, nil
}

// totalCost sums in first-appearance order.
func totalCost(contents *domain.AggregatedContents, items map[int64]domain.Item) float64 {
	var total float64
	for _, line := range contents.Lines() {
		total += items[line.ItemID].Price * float64(line.Quantity)
	}
	return total
}
