package scope

import (
	"fmt"
	"sort"
)

// Row is a record that may exist both globally (nil Tenant) and per tenant.
// Rows with the same FallbackKey are the same logical entry.
type Row interface {
	FallbackKey() string
	Tenant() *string
	Ordinal() int
	Identifier() string
}

// Effective projects rows to one row per logical entry as seen by a tenant:
// the tenant's own row if it has one, else the global row. Rows of other
// tenants are never returned. With hasTenant false only global rows are
// visible.
//
// Duplicates within the same level (which unique indexes should prevent) are
// broken by ordinal then identifier, so the output is deterministic. The
// result is ordered by ordinal, fallback key, identifier.
func Effective[T Row](rows []T, tenantID string, hasTenant bool) []T {
	best := make(map[string]T)
	for _, r := range rows {
		if !visible(r, tenantID, hasTenant) {
			continue
		}
		cur, ok := best[r.FallbackKey()]
		if !ok || beats(r, cur) {
			best[r.FallbackKey()] = r
		}
	}

	out := make([]T, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return less(out[i], out[j], OrderOrdinal)
	})
	return out
}

func visible(r Row, tenantID string, hasTenant bool) bool {
	t := r.Tenant()
	if t == nil {
		return true
	}
	return hasTenant && *t == tenantID
}

func beats(a, b Row) bool {
	aTenant, bTenant := a.Tenant() != nil, b.Tenant() != nil
	if aTenant != bTenant {
		return aTenant
	}
	if a.Ordinal() != b.Ordinal() {
		return a.Ordinal() < b.Ordinal()
	}
	return a.Identifier() < b.Identifier()
}

//go:generate go run github.com/dmarkham/enumer -type Order -trimprefix Order -transform lower -output order.gen.go

// Order names the sort applied to a projected result.
type Order int

const (
	OrderOrdinal Order = iota
	OrderName
)

// ParseOrder parses an order query value; empty means OrderOrdinal.
func ParseOrder(s string) (Order, error) {
	if s == "" {
		return OrderOrdinal, nil
	}
	o, err := OrderString(s)
	if err != nil {
		return OrderOrdinal, fmt.Errorf("unsupported order %q", s)
	}
	return o, nil
}

func less(a, b Row, order Order) bool {
	if order == OrderName {
		if a.FallbackKey() != b.FallbackKey() {
			return a.FallbackKey() < b.FallbackKey()
		}
		return a.Identifier() < b.Identifier()
	}
	if a.Ordinal() != b.Ordinal() {
		return a.Ordinal() < b.Ordinal()
	}
	if a.FallbackKey() != b.FallbackKey() {
		return a.FallbackKey() < b.FallbackKey()
	}
	return a.Identifier() < b.Identifier()
}

// Page selects a window of a projected result. A zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
	Order  Order
}

func (p Page) Validate() error {
	if p.Limit < 0 || p.Offset < 0 {
		return fmt.Errorf("limit and offset must not be negative")
	}
	if !p.Order.IsAOrder() {
		return fmt.Errorf("unsupported order %s", p.Order)
	}
	return nil
}

// Paginate sorts an already projected result and applies the window. It must
// run after Effective so a tenant row can never be paged apart from the
// global row it shadows.
func Paginate[T Row](rows []T, page Page) []T {
	sorted := make([]T, len(rows))
	copy(sorted, rows)
	order := page.Order
	if !order.IsAOrder() {
		order = OrderOrdinal
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return less(sorted[i], sorted[j], order)
	})

	if page.Offset >= len(sorted) {
		return []T{}
	}
	sorted = sorted[page.Offset:]
	if page.Limit > 0 && page.Limit < len(sorted) {
		sorted = sorted[:page.Limit]
	}
	return sorted
}
