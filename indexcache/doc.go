// Package indexcache builds similarity indexes over passage subsets and
// reuses them across queries.
//
// Entries are keyed by (filter key, metric, subset size). A corpus that
// changes size therefore gets a fresh index; a same-size replacement is not
// detected. Concurrent requests for one key share a single build, and an
// entry becomes visible only after its build has finished. Published entries
// are immutable.
//
// The cache is unbounded by default. Options.Capacity turns it into an LRU.
package indexcache
