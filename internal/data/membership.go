// internal/data/membership.go
package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// Membership roles, lowest to highest privilege. Rank comparisons use
// roleRank; never compare the strings directly.
const (
	RoleViewer = "VIEWER"
	RoleEditor = "EDITOR"
	RoleOwner  = "OWNER"
)

var roleRank = map[string]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleOwner:  3,
}

// RoleAtLeast reports whether role carries at least the privilege of min.
// Unknown roles rank below every known one.
func RoleAtLeast(role, min string) bool {
	return roleRank[role] >= roleRank[min]
}

// Membership associates a principal with a book under a role. At most one
// membership exists per (book, principal) pair; every book has exactly one
// OWNER membership from the moment it is created.
type Membership struct {
	BookID      string    `db:"book_id" json:"book_id"`
	PrincipalID string    `db:"principal_id" json:"principal_id"`
	Role        string    `db:"role" json:"role"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MembershipStore is the interface the handlers depend on for membership
// checks and grants.
type MembershipStore interface {
	Grant(ctx context.Context, membership *Membership) error
	RoleFor(ctx context.Context, bookID, principalID string) (string, error)
}

// MembershipModel wraps a *sqlx.DB connection pool and provides methods
// for reading and writing membership rows.
type MembershipModel struct {
	DB *sqlx.DB
}

// Grant inserts or upgrades a membership for the (book, principal) pair.
// The upsert keeps the pair unique while allowing role changes.
func (m MembershipModel) Grant(ctx context.Context, membership *Membership) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO memberships (book_id, principal_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (book_id, principal_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING created_at`

	err := m.DB.QueryRowxContext(
		ctx,
		query,
		membership.BookID,
		membership.PrincipalID,
		membership.Role,
	).Scan(&membership.CreatedAt)
	if err != nil {
		return storageErr("memberships.grant", err)
	}
	return nil
}

// RoleFor returns the role the principal holds on the book.
// Returns ErrRecordNotFound when the principal has no membership.
func (m MembershipModel) RoleFor(ctx context.Context, bookID, principalID string) (string, error) {
	if bookID == "" || principalID == "" {
		return "", ErrRecordNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		SELECT role
		FROM memberships
		WHERE book_id = $1 AND principal_id = $2`

	var role string
	err := m.DB.GetContext(ctx, &role, query, bookID, principalID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return "", ErrRecordNotFound
		default:
			return "", storageErr("memberships.role_for", err)
		}
	}
	return role, nil
}
