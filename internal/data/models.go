// internal/data/models.go
package data

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/jmoiron/sqlx"
)

// queryTimeout bounds every database round-trip. A query that exceeds it is
// reported as a storage failure like any other collaborator error.
const queryTimeout = 3 * time.Second

// Models is a top-level container that groups all database model types together.
// It is passed around the application via applicationDependencies so every handler
// has access to the database without importing sqlx directly. Each field is an
// interface so handler tests can substitute in-memory stubs.
type Models struct {
	Books       BookStore       // CRUD operations on the books table
	Memberships MembershipStore // Role lookups and grants on the memberships table
	Stats       StatsStore      // Aggregate statistics over the books table
}

// NewModels constructs a Models value wired up to the given database connection pool.
// Call this once during application startup and store the result in applicationDependencies.
func NewModels(db *sqlx.DB, logger *slog.Logger) Models {
	return Models{
		Books:       BookModel{DB: db},
		Memberships: MembershipModel{DB: db},
		Stats:       StatsModel{DB: db, Logger: logger},
	}
}

// ErrRecordNotFound is returned when a query finds no matching row.
var ErrRecordNotFound = errors.New("record not found")

// StorageError is the uniform kind every unexpected storage-layer failure is
// translated into. The wrapped error keeps the driver's original message for
// server-side logging; callers only ever branch on the kind itself, never on
// whether the underlying failure was retryable.
type StorageError struct {
	Op  string // the repository operation that failed, e.g. "books.insert"
	Err error  // the underlying driver error
}

func (e *StorageError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// storageErr wraps a driver error into a StorageError, passing through the
// sentinel errors that callers are expected to handle themselves.
func storageErr(op string, err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// MaxPageSize is the hard upper bound on the number of records a single list
// request may return, regardless of the caller-supplied limit.
const MaxPageSize = 100

// Filters holds the normalized pagination, search, filter, and sorting
// parameters of a single list request. It is built by the list handler from
// validated query parameters, consumed by the query-plan builder, and
// discarded once the request completes.
type Filters struct {
	Page         int       // Current page number (1-indexed)
	Limit        int       // Requested records per page (clamped to MaxPageSize)
	Search       string    // Optional case-insensitive substring search
	ModuleType   string    // Optional module_type filter
	Status       string    // Optional status filter
	StartDate    time.Time // Optional lower bound on created_at
	EndDate      time.Time // Optional upper bound on created_at
	Sort         string    // Column name to sort by (prefix with "-" for DESC)
	SortSafeList []string  // Allowed sort columns to prevent SQL injection
}

// EffectiveLimit returns the page size actually applied after clamping.
// Callers use it for cache keys and pagination metadata so that a clamped
// request and an explicit request for the maximum share the same identity.
func (f Filters) EffectiveLimit() int {
	return f.limit()
}

// limit returns the SQL LIMIT value, clamped to MaxPageSize.
func (f Filters) limit() int {
	if f.Limit < 1 {
		return MaxPageSize
	}
	if f.Limit > MaxPageSize {
		return MaxPageSize
	}
	return f.Limit
}

// offset returns the SQL OFFSET value derived from Page and the clamped limit.
func (f Filters) offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.limit()
}

// Metadata contains pagination information returned alongside list responses.
type Metadata struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// calculateMetadata computes page metadata from the total record count and
// the normalized filter values. TotalPages is always ceil(total/limit).
func calculateMetadata(total int, f Filters) Metadata {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return Metadata{
		Page:       page,
		Limit:      f.limit(),
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(f.limit()))),
	}
}
