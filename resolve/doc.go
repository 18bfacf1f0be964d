// Package resolve turns raw result rows into objects.
//
// Aggregated arrays arrive as JSON documents; DecodeArray parses them,
// converts each value to its category and applies the empty-array policy.
// Compose implements batched composition: the outer query runs first,
// Seeds collects the keys, one inner query fetches the rows of every key,
// and Attach regroups them per outer row.
package resolve
