// cmd/api/handlers_batch.go
// Batch variants of the book write operations. Items in a batch are
// processed independently with partial-failure semantics: the response is
// always 200/201 with per-item counts, even when every item failed, and
// there is no atomicity or rollback across items. Clients must inspect
// error_count.
package main

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/bookbase-api/bookbase/internal/batch"
	"github.com/bookbase-api/bookbase/internal/data"
)

// batchWorkers caps how many items of one batch are processed concurrently.
const batchWorkers = 4

// errStorage is the per-item reason reported for storage failures inside a
// batch; the real error is logged, never sent to the client.
var errStorage = errors.New("storage failure")

// errForbidden is the per-item reason for items the principal may not touch.
var errForbidden = errors.New("insufficient role")

// batchCreateBooksHandler handles POST /v1/books/batch.
// Body: {"items": [...creation bodies...]}. An absent or empty array is a
// validation error and no storage call is made.
func (app *applicationDependencies) batchCreateBooksHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Items []map[string]any `json:"items"`
	}
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if len(input.Items) == 0 {
		app.failedValidationResponse(w, r, map[string]string{"items": "must contain at least one item"})
		return
	}

	principal := app.principal(r)

	outcome := batch.Run(r.Context(), input.Items, batchWorkers,
		func(ctx context.Context, item map[string]any) (*data.Book, error) {
			vals, v := data.CreateBookSchema.ValidateBody(item)
			if !v.Valid() {
				return nil, errors.New(validationReason(v.Errors))
			}
			book := data.NewBookFromInput(vals, principal)
			if err := app.models.Books.Insert(ctx, book); err != nil {
				app.logError(r, err)
				return nil, errStorage
			}
			return book, nil
		})

	app.invalidateAfterBatch(r, bookIDs(outcome.Results))

	if err := app.writeSuccess(w, http.StatusCreated, outcome, nil, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// batchUpdateBooksHandler handles PUT /v1/books/batch.
// Body: {"items": [{"id": ..., ...partial fields...}]}. Each item applies
// the same validation, membership, and partial-update rules as the
// single-item endpoint.
func (app *applicationDependencies) batchUpdateBooksHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Items []map[string]any `json:"items"`
	}
	if err := app.readJSON(w, r, &input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if len(input.Items) == 0 {
		app.failedValidationResponse(w, r, map[string]string{"items": "must contain at least one item"})
		return
	}

	outcome := batch.Run(r.Context(), input.Items, batchWorkers,
		func(ctx context.Context, item map[string]any) (*data.Book, error) {
			id, _ := item["id"].(string)
			if id == "" {
				return nil, errors.New("id: must be provided")
			}

			vals, v := data.UpdateBookSchema.ValidateBody(item)
			if !v.Valid() {
				return nil, errors.New(validationReason(v.Errors))
			}

			book, err := app.models.Books.Get(ctx, id)
			if err != nil {
				return nil, app.itemError(r, err)
			}

			if ok, err := app.requireRoleCtx(ctx, id, app.principal(r), data.RoleEditor); err != nil {
				app.logError(r, err)
				return nil, errStorage
			} else if !ok {
				return nil, errForbidden
			}

			book.ApplyUpdate(vals)
			if err := app.models.Books.Update(ctx, book); err != nil {
				return nil, app.itemError(r, err)
			}
			return book, nil
		})

	app.invalidateAfterBatch(r, bookIDs(outcome.Results))

	if err := app.writeSuccess(w, http.StatusOK, outcome, nil, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteResult is the per-item success payload of a batch delete, matching
// the single-item delete confirmation.
type deleteResult struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// batchDeleteBooksHandler handles DELETE /v1/books/batch.
// Body: {"ids": [...]}. An absent or empty array is a validation error and
// no storage call is made. Per-item reasons follow the single-item
// taxonomy: a missing book reads as not found, never as a role failure.
func (app *applicationDependencies) batchDeleteBooksHandler(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := app.readJSON(w, r, &body); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	vals, v := data.BatchDeleteBooksSchema.ValidateBody(body)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}
	ids, _ := vals["ids"].([]string)
	if len(ids) == 0 {
		app.failedValidationResponse(w, r, map[string]string{"ids": "must contain at least one id"})
		return
	}

	outcome := batch.Run(r.Context(), ids, batchWorkers,
		func(ctx context.Context, id string) (deleteResult, error) {
			if _, err := app.models.Books.Get(ctx, id); err != nil {
				return deleteResult{}, app.itemError(r, err)
			}
			if ok, err := app.requireRoleCtx(ctx, id, app.principal(r), data.RoleOwner); err != nil {
				app.logError(r, err)
				return deleteResult{}, errStorage
			} else if !ok {
				return deleteResult{}, errForbidden
			}
			if err := app.models.Books.Delete(ctx, id); err != nil {
				return deleteResult{}, app.itemError(r, err)
			}
			return deleteResult{Deleted: true, ID: id}, nil
		})

	ids = make([]string, 0, len(outcome.Results))
	for _, res := range outcome.Results {
		ids = append(ids, res.ID)
	}
	app.invalidateAfterBatch(r, ids)

	if err := app.writeSuccess(w, http.StatusOK, outcome, nil, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// invalidateAfterBatch invalidates the item entries of every successfully
// written book plus the shared list prefix, but only when at least one item
// succeeded; an all-failed batch changed nothing.
func (app *applicationDependencies) invalidateAfterBatch(r *http.Request, ids []string) {
	if len(ids) == 0 {
		return
	}
	app.invalidateBookCaches(r.Context(), ids...)
}

// requireRoleCtx is requireRole for batch items, which carry their own
// context rather than the request's.
func (app *applicationDependencies) requireRoleCtx(ctx context.Context, bookID, principal, minRole string) (bool, error) {
	role, err := app.models.Memberships.RoleFor(ctx, bookID, principal)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return data.RoleAtLeast(role, minRole), nil
}

// itemError converts a repository error into a client-safe per-item reason.
func (app *applicationDependencies) itemError(r *http.Request, err error) error {
	if errors.Is(err, data.ErrRecordNotFound) {
		return data.ErrRecordNotFound
	}
	app.logError(r, err)
	return errStorage
}

// validationReason flattens a field-error map into a single deterministic
// reason string, e.g. "module_type: must be one of [...]; name: must be
// provided".
func validationReason(fieldErrors map[string]string) string {
	fields := make([]string, 0, len(fieldErrors))
	for field := range fieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+fieldErrors[field])
	}
	return strings.Join(parts, "; ")
}

// bookIDs collects the identifiers of successfully written books.
func bookIDs(books []*data.Book) []string {
	ids := make([]string, 0, len(books))
	for _, book := range books {
		ids = append(ids, book.ID)
	}
	return ids
}
