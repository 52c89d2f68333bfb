// Package data provides the data models and database interaction logic
// for the book management API.
package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bookbase-api/bookbase/internal/validator"
)

// Permitted values for the categorical book attributes. Anything outside
// these sets is rejected at validation time, never stored.
var (
	ModuleTypes = []string{"PERSONAL", "FAMILY", "TRAVEL", "BUSINESS"}
	Statuses    = []string{"ACTIVE", "ARCHIVED"}
)

// Defaults applied at creation when the client omits the field.
const (
	DefaultIcon   = "book"
	DefaultStatus = "ACTIVE"
)

// Book represents a single book record stored in the database.
// It maps directly to a row in the "books" table.
type Book struct {
	ID          string    `db:"id" json:"id"`                               // UUID assigned at creation, immutable
	Name        string    `db:"name" json:"name"`                           // Display name of the book
	ModuleType  string    `db:"module_type" json:"module_type"`             // Category, one of ModuleTypes
	Status      string    `db:"status" json:"status"`                       // Lifecycle status, one of Statuses
	Description string    `db:"description" json:"description,omitempty"`   // Optional free-text description
	Icon        string    `db:"icon" json:"icon"`                           // Icon identifier, defaulted when absent
	CreatorID   string    `db:"creator_id" json:"creator_id"`               // Principal that created the book
	CreatedAt   time.Time `db:"created_at" json:"created_at"`               // Set once at creation
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`               // Touched on every successful mutation
}

// CreateBookSchema declares the shape of a book-creation body. The schema is
// plain data evaluated at request time; see internal/validator.
var CreateBookSchema = validator.Schema{
	"name":        {Kind: validator.String, Required: true, MaxLen: 100},
	"module_type": {Kind: validator.String, Required: true, Enum: ModuleTypes},
	"status":      {Kind: validator.String, Enum: Statuses},
	"description": {Kind: validator.String, MaxLen: 500},
	"icon":        {Kind: validator.String, MaxLen: 50},
}

// UpdateBookSchema declares the shape of a partial update body. No field is
// required; a field absent from the body is left untouched on the record.
var UpdateBookSchema = validator.Schema{
	"name":        {Kind: validator.String, MaxLen: 100},
	"module_type": {Kind: validator.String, Enum: ModuleTypes},
	"status":      {Kind: validator.String, Enum: Statuses},
	"description": {Kind: validator.String, MaxLen: 500},
	"icon":        {Kind: validator.String, MaxLen: 50},
}

// ListBooksSchema declares the recognized list query parameters. Unknown
// parameters are ignored; the limit is clamped later rather than rejected.
var ListBooksSchema = validator.Schema{
	"page":        {Kind: validator.Int, Min: 1},
	"limit":       {Kind: validator.Int, Min: 1},
	"search":      {Kind: validator.String, MaxLen: 100},
	"module_type": {Kind: validator.String, Enum: ModuleTypes},
	"status":      {Kind: validator.String, Enum: Statuses},
	"start_date":  {Kind: validator.Date},
	"end_date":    {Kind: validator.Date},
	"sort":        {Kind: validator.String},
}

// BatchDeleteBooksSchema declares the shape of a batch-delete body. The
// minimum-length rule is checked by the handler, since an empty array is
// present but still unusable.
var BatchDeleteBooksSchema = validator.Schema{
	"ids": {Kind: validator.StringList, Required: true},
}

// BookSortSafeList enumerates every sort value the list endpoint accepts.
// A value outside this list silently falls back to the default sort.
var BookSortSafeList = []string{
	"name", "-name",
	"created_at", "-created_at",
	"updated_at", "-updated_at",
}

// NewBookFromInput assembles a Book from a validated creation body,
// applying the documented defaults for the optional fields.
func NewBookFromInput(vals map[string]any, creatorID string) *Book {
	book := &Book{
		Name:       vals["name"].(string),
		ModuleType: vals["module_type"].(string),
		Status:     DefaultStatus,
		Icon:       DefaultIcon,
		CreatorID:  creatorID,
	}
	if s, ok := vals["status"].(string); ok && s != "" {
		book.Status = s
	}
	if d, ok := vals["description"].(string); ok {
		book.Description = d
	}
	if i, ok := vals["icon"].(string); ok && i != "" {
		book.Icon = i
	}
	return book
}

// ApplyUpdate copies the fields present in a validated partial-update body
// onto the book. Absent fields are left as-is.
func (b *Book) ApplyUpdate(vals map[string]any) {
	if s, ok := vals["name"].(string); ok {
		b.Name = s
	}
	if s, ok := vals["module_type"].(string); ok {
		b.ModuleType = s
	}
	if s, ok := vals["status"].(string); ok {
		b.Status = s
	}
	if s, ok := vals["description"].(string); ok {
		b.Description = s
	}
	if s, ok := vals["icon"].(string); ok {
		b.Icon = s
	}
}

// BookStore is the interface the handlers depend on for book persistence.
// BookModel is the production implementation; tests substitute stubs.
type BookStore interface {
	Insert(ctx context.Context, book *Book) error
	Get(ctx context.Context, id string) (*Book, error)
	GetAll(ctx context.Context, filters Filters) ([]*Book, Metadata, error)
	Update(ctx context.Context, book *Book) error
	Delete(ctx context.Context, id string) error
}

// BookModel wraps a *sqlx.DB connection pool and provides methods for
// creating, reading, updating, and deleting book records.
type BookModel struct {
	DB *sqlx.DB
}

// Insert adds a new book record together with the creator's OWNER
// membership. Both inserts run in a single transaction: a book without an
// owner must never be observable, so a failed membership insert rolls the
// book back and the creation as a whole is reported as failed.
func (m BookModel) Insert(ctx context.Context, book *Book) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	book.ID = uuid.NewString()

	tx, err := m.DB.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("books.insert", err)
	}
	defer tx.Rollback()

	bookQuery := `
		INSERT INTO books (id, name, module_type, status, description, icon, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err = tx.QueryRowxContext(
		ctx,
		bookQuery,
		book.ID,
		book.Name,
		book.ModuleType,
		book.Status,
		book.Description,
		book.Icon,
		book.CreatorID,
	).Scan(&book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return storageErr("books.insert", err)
	}

	membershipQuery := `
		INSERT INTO memberships (book_id, principal_id, role)
		VALUES ($1, $2, $3)`

	_, err = tx.ExecContext(ctx, membershipQuery, book.ID, book.CreatorID, RoleOwner)
	if err != nil {
		return storageErr("books.insert", err)
	}

	if err := tx.Commit(); err != nil {
		return storageErr("books.insert", err)
	}

	return nil
}

// Get retrieves a single book by its identifier.
// Returns ErrRecordNotFound if no book with the given id exists.
func (m BookModel) Get(ctx context.Context, id string) (*Book, error) {
	if id == "" {
		return nil, ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT id, name, module_type, status, description, icon, creator_id, created_at, updated_at
		FROM books
		WHERE id = $1`

	var book Book
	err := m.DB.GetContext(ctx, &book, query, id)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, storageErr("books.get", err)
		}
	}
	return &book, nil
}

// GetAll retrieves a filtered, sorted, paginated list of books. The count
// plan runs first so the pagination metadata and the returned page are
// derived from the same predicate set.
func (m BookModel) GetAll(ctx context.Context, filters Filters) ([]*Book, Metadata, error) {
	dataPlan, countPlan, err := BuildBookQuery(filters)
	if err != nil {
		return nil, Metadata{}, storageErr("books.list", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int
	if err := m.DB.GetContext(ctx, &total, countPlan.SQL, countPlan.Args...); err != nil {
		return nil, Metadata{}, storageErr("books.list", err)
	}

	books := []*Book{}
	if err := m.DB.SelectContext(ctx, &books, dataPlan.SQL, dataPlan.Args...); err != nil {
		return nil, Metadata{}, storageErr("books.list", err)
	}

	return books, calculateMetadata(total, filters), nil
}

// Update saves the modified fields of book back to the database and scans
// the refreshed updated_at back into the struct.
// Returns ErrRecordNotFound if the book no longer exists.
func (m BookModel) Update(ctx context.Context, book *Book) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		UPDATE books
		SET name = $1, module_type = $2, status = $3, description = $4, icon = $5,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING updated_at`

	args := []any{
		book.Name,
		book.ModuleType,
		book.Status,
		book.Description,
		book.Icon,
		book.ID,
	}

	err := m.DB.QueryRowxContext(ctx, query, args...).Scan(&book.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return ErrRecordNotFound
		default:
			return storageErr("books.update", err)
		}
	}
	return nil
}

// Delete removes the book with the given id, along with its memberships.
// Returns ErrRecordNotFound if no matching record exists.
func (m BookModel) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := m.DB.BeginTxx(ctx, nil)
	if err != nil {
		return storageErr("books.delete", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE book_id = $1`, id); err != nil {
		return storageErr("books.delete", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return storageErr("books.delete", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storageErr("books.delete", err)
	}

	// If no rows were deleted, the book didn't exist.
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}

	if err := tx.Commit(); err != nil {
		return storageErr("books.delete", err)
	}

	return nil
}
