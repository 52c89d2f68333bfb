// cmd/api/errors.go
// This file contains all error-response helpers for the application.
// Keeping error helpers in a dedicated file makes them easy to find and extend.
package main

import (
	"log/slog"
	"net/http"
	"time"
)

// Stable machine-readable error codes. Clients branch on these, so they are
// part of the API contract and must never change meaning.
const (
	codeValidationFailed = "VALIDATION_FAILED"
	codeNotFound         = "NOT_FOUND"
	codeForbidden        = "FORBIDDEN"
	codeStorageFailure   = "STORAGE_FAILURE"
	codeRateLimited      = "RATE_LIMITED"
	codeBadRequest       = "BAD_REQUEST"
	codeMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// logError logs an internal error at ERROR level with the request method and URL for context.
func (app *applicationDependencies) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(),
		slog.String("request_method", r.Method),
		slog.String("request_url", r.URL.String()),
	)
}

// errorResponse sends a failure envelope with the given status, code, and
// message. It is the low-level building block used by all the specific
// error helpers below; failure responses share the success envelope shape
// so clients always parse the same structure.
func (app *applicationDependencies) errorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	response := envelope{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Meta: &responseMeta{Timestamp: time.Now().UTC()},
	}
	err := app.writeJSON(w, status, response, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs a 500-level error and sends a generic message to
// the client. Full diagnostic detail stays server-side; the client never
// sees the underlying storage error.
func (app *applicationDependencies) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, codeStorageFailure,
		"the server encountered a problem and could not process your request", nil)
}

// notFoundResponse sends a 404 Not Found error.
func (app *applicationDependencies) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, codeNotFound,
		"the requested resource could not be found", nil)
}

// methodNotAllowedResponse sends a 405 Method Not Allowed error.
func (app *applicationDependencies) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "the " + r.Method + " method is not supported for this resource"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, message, nil)
}

// badRequestResponse sends a 400 Bad Request error with the error message from the caller.
func (app *applicationDependencies) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, codeBadRequest, err.Error(), nil)
}

// failedValidationResponse sends a 400 response carrying the field-level
// validation errors collected by a Validator in the details map.
func (app *applicationDependencies) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.errorResponse(w, r, http.StatusBadRequest, codeValidationFailed,
		"one or more fields failed validation", errors)
}

// forbiddenResponse sends a 403 Forbidden error.
func (app *applicationDependencies) forbiddenResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusForbidden, codeForbidden,
		"you do not have the required role for this resource", nil)
}

// rateLimitExceededResponse sends a 429 Too Many Requests error.
func (app *applicationDependencies) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded", nil)
}
