package domain

import "time"

type CheckoutState string

const (
	CheckoutPending    CheckoutState = "pending"
	CheckoutValidating CheckoutState = "validating"
	CheckoutFinalizing CheckoutState = "finalizing"
	CheckoutCheckedOut CheckoutState = "checked_out"
	CheckoutAborted    CheckoutState = "aborted"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutPending:    {CheckoutValidating, CheckoutAborted},
	CheckoutValidating: {CheckoutFinalizing, CheckoutAborted},
	CheckoutFinalizing: {CheckoutCheckedOut, CheckoutAborted},
}

// CanTransition reports whether a checkout may move from one state to another.
// CheckedOut and Aborted are terminal.
func CanTransition(from, to CheckoutState) bool {
	for _, next := range checkoutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LineItem is the merged view of every basket line referencing one item.
// Content is the first line seen for the item; its Quantity holds the sum.
type LineItem struct {
	ItemID   int64
	Quantity int
	Content  BasketContent
}

// AggregatedContents maps item ids to merged lines and remembers the order in
// which each item first appeared.
type AggregatedContents struct {
	order []int64
	lines map[int64]*LineItem
}

// AggregateContents merges rows sharing an item id by summing quantities. Rows
// are walked in the given order.
func AggregateContents(rows []BasketContent) *AggregatedContents {
	agg := &AggregatedContents{lines: make(map[int64]*LineItem, len(rows))}
	for _, row := range rows {
		if line, ok := agg.lines[row.ItemID]; ok {
			line.Quantity += row.Quantity
			line.Content.Quantity = line.Quantity
			continue
		}
		agg.lines[row.ItemID] = &LineItem{ItemID: row.ItemID, Quantity: row.Quantity, Content: row}
		agg.order = append(agg.order, row.ItemID)
	}
	return agg
}

// Lines returns the merged lines in first-appearance order.
func (a *AggregatedContents) Lines() []LineItem {
	out := make([]LineItem, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.lines[id])
	}
	return out
}

func (a *AggregatedContents) Get(itemID int64) (LineItem, bool) {
	line, ok := a.lines[itemID]
	if !ok {
		return LineItem{}, false
	}
	return *line, true
}

func (a *AggregatedContents) Len() int { return len(a.order) }

// CostPolicy bounds the total cost of a basket. Both bounds are accepted.
type CostPolicy struct {
	Min float64
	Max float64
}

var DefaultCostPolicy = CostPolicy{Min: 100, Max: 1500}

func (p CostPolicy) Check(total float64) error {
	if total < p.Min {
		return newError(KindCostTooLow, MsgLowMoneyValue, p.Min)
	}
	if total > p.Max {
		return newError(KindCostTooHigh, MsgHighMoneyValue, p.Max)
	}
	return nil
}

// CheckoutInfo is the validated view of a basket handed to finalization.
type CheckoutInfo struct {
	Contents  *AggregatedContents
	Items     map[int64]Item
	TotalCost float64
}

type ReceiptLine struct {
	ItemID    int64   `json:"item_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// CheckoutReceipt records a completed checkout.
type CheckoutReceipt struct {
	BasketID     int64         `json:"basket_id"`
	UserID       int64         `json:"user_id"`
	Lines        []ReceiptLine `json:"lines"`
	TotalCost    float64       `json:"total_cost"`
	CheckedOutAt time.Time     `json:"checked_out_at"`
}
