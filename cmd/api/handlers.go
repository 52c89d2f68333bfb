// cmd/api/handlers.go
// This file contains the single-item HTTP request handlers for the books
// resource. Each handler is a method on *applicationDependencies so it has
// access to the logger, database models, and cache store. Batch and
// statistics handlers live in their own files.
package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/bookbase-api/bookbase/internal/cache"
	"github.com/bookbase-api/bookbase/internal/data"
)

// defaultPageSize applies when the client does not supply a limit.
const defaultPageSize = 20

// healthcheckHandler reports liveness, the runtime environment, and the
// API version.
func (app *applicationDependencies) healthcheckHandler(w http.ResponseWriter, r *http.Request) {
	payload := map[string]string{
		"status":      "available",
		"environment": app.config.environment,
		"version":     appVersion,
	}
	if err := app.writeSuccess(w, http.StatusOK, payload, nil, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createBookHandler handles POST /v1/books.
// The body is checked against the declared creation schema; a valid body
// yields a new book with defaulted optional fields, persisted together
// with the creator's OWNER membership. List caches are invalidated only
// after the insert succeeded.
func (app *applicationDependencies) createBookHandler(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := app.readJSON(w, r, &body); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	vals, v := data.CreateBookSchema.ValidateBody(body)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	book := data.NewBookFromInput(vals, app.principal(r))

	if err := app.models.Books.Insert(r.Context(), book); err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.invalidateBookCaches(r.Context(), book.ID)

	if err := app.writeSuccess(w, http.StatusCreated, book, nil, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /v1/books/:id.
// The read goes through the response cache: a hit skips storage entirely
// and is marked with X-Cache: HIT. A missing record is never cached.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, hit, err := cache.Fetch(r.Context(), app.cache, cache.ItemKey(id), app.config.cache.itemTTL,
		func(ctx context.Context) (*data.Book, error) {
			return app.models.Books.Get(ctx, id)
		})
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if err := app.writeSuccess(w, http.StatusOK, book, nil, cacheHeader(hit)); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// bookList is the cached payload of a list read: the page contents and the
// pagination metadata travel together so a cache hit reproduces both.
type bookList struct {
	Books    []*data.Book  `json:"books"`
	Metadata data.Metadata `json:"metadata"`
}

// listBooksHandler handles GET /v1/books.
// Query parameters are validated against the declared list schema, folded
// into a normalized filter set, and used both as the cache key and as the
// input to the query-plan builder.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	vals, v := data.ListBooksSchema.ValidateQuery(r.URL.Query())

	filters := app.listFilters(vals)

	// The date range is the one cross-field rule the schema cannot express.
	if !filters.StartDate.IsZero() && !filters.EndDate.IsZero() {
		v.Check(!filters.EndDate.Before(filters.StartDate), "end_date", "must not be before start_date")
	}

	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	key := cache.QueryKey("list", listKeyParams(filters))

	payload, hit, err := cache.Fetch(r.Context(), app.cache, key, app.config.cache.ttl,
		func(ctx context.Context) (bookList, error) {
			books, metadata, err := app.models.Books.GetAll(ctx, filters)
			if err != nil {
				return bookList{}, err
			}
			return bookList{Books: books, Metadata: metadata}, nil
		})
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if err := app.writeSuccess(w, http.StatusOK, payload.Books, &payload.Metadata, cacheHeader(hit)); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// listFilters folds validated query parameters into the normalized filter
// set, applying the documented defaults.
func (app *applicationDependencies) listFilters(vals map[string]any) data.Filters {
	filters := data.Filters{
		Page:         1,
		Limit:        defaultPageSize,
		Sort:         "-created_at",
		SortSafeList: data.BookSortSafeList,
	}

	if n, ok := vals["page"].(int); ok {
		filters.Page = n
	}
	if n, ok := vals["limit"].(int); ok {
		filters.Limit = n
	}
	if s, ok := vals["search"].(string); ok {
		filters.Search = s
	}
	if s, ok := vals["module_type"].(string); ok {
		filters.ModuleType = s
	}
	if s, ok := vals["status"].(string); ok {
		filters.Status = s
	}
	if t, ok := vals["start_date"].(time.Time); ok {
		filters.StartDate = t
	}
	if t, ok := vals["end_date"].(time.Time); ok {
		filters.EndDate = t
	}
	if s, ok := vals["sort"].(string); ok {
		filters.Sort = s
	}

	return filters
}

// listKeyParams renders the normalized filters into the parameter map the
// cache key is built from. Only set filters appear, and the limit and sort
// are the effective values after clamping and safelist fallback, so
// equivalent requests share one cache entry.
func listKeyParams(f data.Filters) map[string]string {
	params := map[string]string{
		"page":  strconv.Itoa(f.Page),
		"limit": strconv.Itoa(f.EffectiveLimit()),
		"sort":  f.EffectiveSort(),
	}
	if f.Search != "" {
		params["search"] = f.Search
	}
	if f.ModuleType != "" {
		params["module_type"] = f.ModuleType
	}
	if f.Status != "" {
		params["status"] = f.Status
	}
	if !f.StartDate.IsZero() {
		params["start_date"] = f.StartDate.Format("2006-01-02")
	}
	if !f.EndDate.IsZero() {
		params["end_date"] = f.EndDate.Format("2006-01-02")
	}
	return params
}

// updateBookDispatch routes PUT /v1/books/batch to the batch handler and
// everything else to the single-item update. httprouter cannot register a
// static "batch" sibling next to the ":id" wildcard on the same tree.
func (app *applicationDependencies) updateBookDispatch(w http.ResponseWriter, r *http.Request) {
	if httprouter.ParamsFromContext(r.Context()).ByName("id") == "batch" {
		app.batchUpdateBooksHandler(w, r)
		return
	}
	app.updateBookHandler(w, r)
}

// deleteBookDispatch routes DELETE /v1/books/batch to the batch handler and
// everything else to the single-item delete.
func (app *applicationDependencies) deleteBookDispatch(w http.ResponseWriter, r *http.Request) {
	if httprouter.ParamsFromContext(r.Context()).ByName("id") == "batch" {
		app.batchDeleteBooksHandler(w, r)
		return
	}
	app.deleteBookHandler(w, r)
}

// bookSubresourceHandler serves the two-segment paths under /v1/books/.
// The only subresource today is stats/overview.
func (app *applicationDependencies) bookSubresourceHandler(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	if params.ByName("id") == "stats" && params.ByName("sub") == "overview" {
		app.statsOverviewHandler(w, r)
		return
	}
	app.notFoundResponse(w, r)
}

// updateBookHandler handles PUT /v1/books/:id.
// It reads a partial body (absent fields are left untouched), requires the
// principal to hold at least the EDITOR role on the book, and invalidates
// the affected cache entries after a successful write.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var body map[string]any
	if err := app.readJSON(w, r, &body); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	vals, v := data.UpdateBookSchema.ValidateBody(body)
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if ok, err := app.requireRole(r, id, data.RoleEditor); err != nil {
		app.serverErrorResponse(w, r, err)
		return
	} else if !ok {
		app.forbiddenResponse(w, r)
		return
	}

	// Apply only the fields that were actually provided in the request body.
	book.ApplyUpdate(vals)

	if err := app.models.Books.Update(r.Context(), book); err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.invalidateBookCaches(r.Context(), book.ID)

	if err := app.writeSuccess(w, http.StatusOK, book, nil, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /v1/books/:id.
// Deletion requires the OWNER role. Responds with a confirmation payload
// rather than an empty body so batch and single deletes look alike.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	if _, err := app.models.Books.Get(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if ok, err := app.requireRole(r, id, data.RoleOwner); err != nil {
		app.serverErrorResponse(w, r, err)
		return
	} else if !ok {
		app.forbiddenResponse(w, r)
		return
	}

	if err := app.models.Books.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.invalidateBookCaches(r.Context(), id)

	payload := map[string]any{"deleted": true, "id": id}
	if err := app.writeSuccess(w, http.StatusOK, payload, nil, nil); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// requireRole reports whether the request's principal holds at least the
// given role on the book. A missing membership is an authorization gap, not
// an error.
func (app *applicationDependencies) requireRole(r *http.Request, bookID, minRole string) (bool, error) {
	role, err := app.models.Memberships.RoleFor(r.Context(), bookID, app.principal(r))
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return data.RoleAtLeast(role, minRole), nil
}
