package cart

import (
	"github.com/shopspring/decimal"
)

// SelectionSet is the set of merchandise ids the customer chose to pay for
// in this checkout pass.
type SelectionSet map[string]struct{}

// NewSelectionSet builds a SelectionSet from the given merchandise ids.
func NewSelectionSet(ids ...string) SelectionSet {
	s := make(SelectionSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether the set includes the given merchandise id.
func (s SelectionSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the members of the set in unspecified order.
func (s SelectionSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// FilterBySelection returns a new cart containing only the lines whose
// merchandise id is in the selection set, with the cost summary re-summed
// from the retained lines. The currency code is preserved.
//
// An empty set returns the cart unchanged: selection is advisory, not
// exclusionary, when absent, so a missing selection can never empty a valid
// checkout. The function is pure and idempotent:
// FilterBySelection(FilterBySelection(c, s), s) == FilterBySelection(c, s).
func FilterBySelection(c Cart, sel SelectionSet) Cart {
	if len(sel) == 0 {
		return c
	}

	kept := make([]Line, 0, len(c.Lines))
	subtotal := decimal.Zero
	for _, l := range c.Lines {
		if !sel.Contains(l.MerchandiseID) {
			continue
		}
		kept = append(kept, l)
		subtotal = subtotal.Add(ParseAmount(l.Total))
	}

	discount := ParseAmount(c.Cost.Discount)
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	out := c
	out.Lines = kept
	out.Cost = Summary{
		Subtotal: subtotal.String(),
		Discount: discount.String(),
		Total:    total.String(),
		Currency: c.Cost.Currency,
	}
	return out
}
