// Package storage implements the optional SQLite query index (C13): a
// local database rebuilt from the canonical CSV artifacts, offered to
// the query engine (internal/query) as an accelerated RecordSource.
package storage

import "errors"

// ErrStale indicates the index predates its source CSVs and must be
// rebuilt before use.
var ErrStale = errors.New("storage: index stale, rebuild required")
