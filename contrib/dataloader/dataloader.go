// Package dataloader provides the grouping helpers behind batched
// composition: one query fetches the children of many parents, and the
// results are regrouped per parent key.
//
//	seeds := dataloader.Distinct(parents, func(p Row) any { return p["id"] })
//	children := fetch(seeds)
//	groups := dataloader.GroupByKey(children, func(c Row) any { return c["parentId"] })
//	ordered := dataloader.OrderGroupsByKeys(seeds, groups)
//	// ordered[i] holds the children of seeds[i]
package dataloader

// KeyFunc extracts a key from a value.
type KeyFunc[K comparable, V any] func(V) K

// Distinct returns the keys of values without duplicates, in first-seen
// order. Values whose key is the zero value are skipped.
func Distinct[K comparable, V any](values []V, keyFn KeyFunc[K, V]) []K {
	var zero K
	seen := make(map[K]bool, len(values))
	keys := make([]K, 0, len(values))
	for _, v := range values {
		k := keyFn(v)
		if k == zero || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// GroupByKey groups values by key. Values keep their relative order
// within a group.
func GroupByKey[K comparable, V any](values []V, keyFn KeyFunc[K, V]) map[K][]V {
	result := make(map[K][]V)
	for _, v := range values {
		key := keyFn(v)
		result[key] = append(result[key], v)
	}
	return result
}

// OrderGroupsByKeys returns the group of each key, in key order. Keys
// without values get a nil group.
func OrderGroupsByKeys[K comparable, V any](keys []K, groups map[K][]V) [][]V {
	result := make([][]V, len(keys))
	for i, key := range keys {
		result[i] = groups[key]
	}
	return result
}
