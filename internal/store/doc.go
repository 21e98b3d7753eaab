// Package store holds conversation sessions and their turn history.
//
// # Contract
//
// SessionStore is keyed by an opaque session ID. GetOrCreate never adopts a
// caller-supplied ID: an empty or unknown ID always mints a fresh session, so
// an ID that was Reset cannot resurrect history. Append on an unknown ID is a
// silent no-op and Reset is idempotent. History reports ErrNotFound for IDs
// the store has never seen or has since reset.
//
// Turn content is stored exactly as given. Returned sessions and turns are
// copies; mutating them does not affect stored state.
//
// # Backends
//
//   - MemoryStore: map guarded by a RWMutex. Sessions live for the process
//     lifetime with no eviction. This is the default.
//   - SQLiteStore: modernc.org/sqlite (pure Go) with WAL mode. Turns are
//     ordered by an autoincrement sequence column so insertion order survives
//     identical timestamps.
//
// # Session IDs
//
// NewSessionID returns "conv_<unix millis>_<9 hex chars>". Both backends retry
// on the rare collision.
package store
