// Package tsdb implements the per-tenant time-series store. Each active user
// owns one namespace, addressed by username; writes and queries go through a
// Handle scoped to a single namespace, so there is no cross-tenant path.
package tsdb

import (
	"strings"
	"time"

	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
)

// Wildcard selects all measurements in a query.
const Wildcard = "*"

// SafeNamespaceName reports whether a namespace name is safe to embed in a
// filesystem path or an object key. The registration workflow validates
// usernames before they ever become namespaces; this is the last line of
// defense for anything that bypasses it.
func SafeNamespaceName(name string) bool {
	return name != "" &&
		!strings.ContainsAny(name, `/\`) &&
		!strings.Contains(name, "..")
}

// Store is the contract the rest of the server programs against. The backing
// engine is deliberately unspecified; MemStore is the embedded implementation.
type Store interface {
	// Provision creates the namespace if it does not exist. Idempotent.
	Provision(namespace string) error

	// Exists reports whether the namespace has been provisioned.
	Exists(namespace string) bool

	// Namespace returns a handle scoped to one namespace, or
	// common.ErrNamespaceNotFound if it was never provisioned.
	Namespace(name string) (Handle, error)

	// Namespaces lists all provisioned namespace names.
	Namespaces() []string

	// Dump returns a deep copy of one namespace's data, keyed by measurement.
	Dump(namespace string) (map[string][]models.Point, error)
}

// Handle is a namespace-scoped view of the store.
type Handle interface {
	// Write appends points. Malformed points (empty measurement or no fields)
	// reject the whole batch with common.ErrWriteRejected.
	Write(points []models.Point) error

	// Query returns a columnar result for one field, optionally restricted to
	// one measurement (Wildcard matches all) and a time range. Zero start/end
	// mean the full retained range.
	Query(measurement, field string, start, end time.Time) (*models.QueryResult, error)
}
