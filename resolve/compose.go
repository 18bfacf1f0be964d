package resolve

import (
	"maps"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/contrib/dataloader"
)

// ComposeKind is how many fetched rows an outer row receives.
type ComposeKind uint8

// Compose kinds.
const (
	// ComposeMany attaches every matching row.
	ComposeMany ComposeKind = iota
	// ComposeOne attaches exactly one matching row.
	ComposeOne
	// ComposeNoneOrOne attaches the matching row when there is one.
	ComposeNoneOrOne
)

// Compose attaches rows fetched in one batch to the outer rows they
// belong to. An outer row matches the fetched rows whose Internal value
// equals its External value. The Internal property is removed from the
// fetched rows.
type Compose struct {
	External string
	Internal string
	Property string
	Kind     ComposeKind
	// UseEmpty attaches an empty list instead of omitting the property
	// when ComposeMany finds no rows.
	UseEmpty bool
}

// Seeds returns the distinct non-null values of the external property, in
// first-seen order.
func Seeds(rows []Row, external string) []any {
	return dataloader.Distinct(rows, func(r Row) any { return key(r[external]) })
}

// Attach distributes fetched among rows. Every outer row receives its own
// copies of the fetched rows.
func (c Compose) Attach(rows []Row, fetched []Row) error {
	groups := dataloader.GroupByKey(fetched, func(r Row) any { return key(r[c.Internal]) })
	delete(groups, nil)
	for _, r := range fetched {
		delete(r, c.Internal)
	}
	keys := make([]any, len(rows))
	for i, r := range rows {
		keys[i] = key(r[c.External])
	}
	var errs []error
	for i, g := range dataloader.OrderGroupsByKeys(keys, groups) {
		r := rows[i]
		switch c.Kind {
		case ComposeOne, ComposeNoneOrOne:
			switch {
			case len(g) == 1:
				r[c.Property] = maps.Clone(g[0])
			case len(g) > 1:
				errs = append(errs, quarry.NewNotSingularError(c.Property, len(g)))
			case c.Kind == ComposeOne:
				errs = append(errs, quarry.NewNotFoundError(c.Property))
			}
		default:
			switch {
			case len(g) > 0:
				attached := make([]Row, len(g))
				for j, f := range g {
					attached[j] = maps.Clone(f)
				}
				r[c.Property] = attached
			case c.UseEmpty:
				r[c.Property] = []Row{}
			}
		}
	}
	return quarry.NewAggregateError(errs...)
}

// key makes a value usable as a map key.
func key(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
