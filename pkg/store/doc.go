// Package store provides scope store implementations for go-props.
//
// A store holds the values of one scope (node, flow or global). The core
// props package only depends on the two-method contract:
//
//	Get(ctx, key) (value, ok, err)
//	Set(ctx, key, value) error
//
// Sharing: a node store belongs to one Properties value. Flow and global
// stores are meant to be shared by passing the same instance to several
// nodes through props.WithStores; implementations therefore guard their own
// state. Writes are last-write-wins; there is no transactional isolation.
//
// Implementations:
//   - MemoryStore: map guarded by a sync.RWMutex, the default for every scope.
//   - sqlite.Store: durable values encoded as JSON in a SQLite table, with
//     namespaces so several flows can share one database file.
//
// The storetest package holds the contract suite every implementation runs.
package store
