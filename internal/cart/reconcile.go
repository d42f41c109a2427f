package cart

import (
	"storefront/internal/shopify"
)

// LineDiff describes the mutations that turn the current cart into a desired
// line set. Apply in order Remove → Update → Add so an update never targets a
// line that is about to disappear.
type LineDiff struct {
	ToRemove []string                      // Line ids
	ToUpdate []shopify.CartLineUpdateInput // Existing lines with a new quantity
	ToAdd    []shopify.CartLineInput       // Merchandise not in the cart
}

// IsEmpty returns true if no line changes are needed.
func (d *LineDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// DiffLines computes the delta between current lines and desired lines.
// Matching is by merchandise id, not line id.
//
//   - desired quantities for the same merchandise are summed
//   - a desired quantity ≤ 0 means "not in the cart"
//   - when the cart holds several lines for one merchandise, the first is
//     kept and the rest removed
//
// Output order follows input order so results are deterministic.
func DiffLines(current []shopify.CartLine, desired []shopify.CartLineInput) *LineDiff {
	diff := &LineDiff{}

	wanted := make(map[string]int)
	var order []string
	for _, d := range desired {
		if _, seen := wanted[d.MerchandiseID]; !seen {
			order = append(order, d.MerchandiseID)
		}
		wanted[d.MerchandiseID] += d.Quantity
	}

	kept := make(map[string]bool)
	for _, line := range current {
		id := line.Merchandise.ID
		qty := wanted[id]
		switch {
		case qty <= 0 || kept[id]:
			diff.ToRemove = append(diff.ToRemove, line.ID)
		case line.Quantity != qty:
			diff.ToUpdate = append(diff.ToUpdate, shopify.CartLineUpdateInput{ID: line.ID, Quantity: qty})
			kept[id] = true
		default:
			kept[id] = true
		}
	}

	for _, id := range order {
		if qty := wanted[id]; qty > 0 && !kept[id] {
			diff.ToAdd = append(diff.ToAdd, shopify.CartLineInput{MerchandiseID: id, Quantity: qty})
		}
	}
	return diff
}
