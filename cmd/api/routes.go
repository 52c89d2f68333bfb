// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes registers all HTTP endpoints and returns the configured router
// wrapped in the middleware chain (outermost → innermost):
//
//	recoverPanic → rateLimit → authenticate → router
//
// Current endpoints:
//
//	GET    /v1/healthcheck           – liveness and version info
//	GET    /v1/books                 – list books (filtered, sorted, paginated)
//	POST   /v1/books                 – create a new book
//	GET    /v1/books/:id             – retrieve a single book by ID
//	PUT    /v1/books/:id             – partially update an existing book
//	DELETE /v1/books/:id             – delete a book by ID
//	POST   /v1/books/batch           – create many books, partial-failure semantics
//	PUT    /v1/books/batch           – update many books, partial-failure semantics
//	DELETE /v1/books/batch           – delete many books, partial-failure semantics
//	GET    /v1/books/stats/overview  – aggregate statistics
//	GET    /metrics                  – prometheus metrics
//
// httprouter cannot mix a static child ("batch") with a wildcard (":id")
// under the same method tree, so the PUT/DELETE batch routes are dispatched
// inside the wildcard handlers, and the stats route rides on a second
// wildcard segment.
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	// Override the default httprouter error handlers to return JSON responses.
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	// Book CRUD routes
	router.HandlerFunc(http.MethodGet, "/v1/books", app.listBooksHandler)
	router.HandlerFunc(http.MethodPost, "/v1/books", app.createBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id", app.showBookHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id/:sub", app.bookSubresourceHandler)
	router.HandlerFunc(http.MethodPut, "/v1/books/:id", app.updateBookDispatch)
	router.HandlerFunc(http.MethodDelete, "/v1/books/:id", app.deleteBookDispatch)

	// Batch create has no wildcard sibling on the POST tree.
	router.HandlerFunc(http.MethodPost, "/v1/books/batch", app.batchCreateBooksHandler)

	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	// Wrap with middleware: recoverPanic is outermost so it catches panics
	// from the other middlewares and the router alike.
	return app.recoverPanic(app.rateLimit(app.authenticate(router)))
}
