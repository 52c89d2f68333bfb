// cmd/api/helpers.go
// This file contains general-purpose helper functions for the application.
// Error-response helpers live in errors.go; only non-error utilities are here.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/julienschmidt/httprouter"

	"github.com/bookbase-api/bookbase/internal/cache"
	"github.com/bookbase-api/bookbase/internal/data"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope is the uniform top-level shape of every API response, success or
// failure, so clients can always parse the same structure.
type envelope struct {
	Success bool          `json:"success"`
	Data    any           `json:"data,omitempty"`
	Error   *apiError     `json:"error,omitempty"`
	Meta    *responseMeta `json:"meta,omitempty"`
}

// apiError carries a stable machine-readable code alongside the
// human-readable message. Details holds field-level validation errors.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// responseMeta carries response metadata: pagination for list endpoints and
// the server timestamp on every response.
type responseMeta struct {
	Pagination *data.Metadata `json:"pagination,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// readIDParam extracts and validates the ":id" URL parameter added by
// httprouter. Book identifiers are UUIDs; a value that cannot be a UUID can
// never match a record, so callers treat the error as not-found.
func (app *applicationDependencies) readIDParam(r *http.Request) (string, error) {
	params := httprouter.ParamsFromContext(r.Context())
	id := params.ByName("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", errors.New("invalid id parameter")
	}
	return id, nil
}

// writeJSON marshals the envelope, applies any custom headers, sets
// Content-Type, writes the status code, and streams the body to the client.
func (app *applicationDependencies) writeJSON(w http.ResponseWriter, status int, response envelope, headers http.Header) error {
	// jsoniter only supports space indentation; tabs make MarshalIndent panic.
	js, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return err
	}
	js = append(js, '\n') // Trailing newline makes curl output nicer.

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
	return nil
}

// writeSuccess sends a success envelope with the server timestamp and, for
// list responses, the pagination metadata.
func (app *applicationDependencies) writeSuccess(w http.ResponseWriter, status int, payload any, pagination *data.Metadata, headers http.Header) error {
	return app.writeJSON(w, status, envelope{
		Success: true,
		Data:    payload,
		Meta: &responseMeta{
			Pagination: pagination,
			Timestamp:  time.Now().UTC(),
		},
	}, headers)
}

// readJSON decodes a single JSON value from the request body into dst.
// It enforces a 1 MB size limit and ensures the body contains exactly one
// JSON value (no trailing data). Unknown fields are deliberately tolerated:
// the declared schemas simply ignore them, which keeps old clients working
// when new fields ship.
func (app *applicationDependencies) readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	// Cap the request body to 1 MB to prevent large-payload attacks.
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)

	dec := json.NewDecoder(r.Body)

	err := dec.Decode(dst)
	if err != nil {
		return err
	}

	// Ensure there is no second JSON value in the body.
	err = dec.Decode(&struct{}{})
	if err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

// cacheHeader is the observability marker for responses that may have been
// served from the response cache.
func cacheHeader(hit bool) http.Header {
	value := "MISS"
	if hit {
		value = "HIT"
	}
	return http.Header{"X-Cache": []string{value}}
}

// invalidateBookCaches removes the single-item entries for the given ids
// and sweeps every derived-read entry (lists, statistics). Called only
// after a successful write; a write to any book can change any list result,
// so correctness wins over cache hit-rate here.
func (app *applicationDependencies) invalidateBookCaches(ctx context.Context, ids ...string) {
	if len(ids) > 0 {
		keys := make([]string, 0, len(ids))
		for _, id := range ids {
			keys = append(keys, cache.ItemKey(id))
		}
		cache.Invalidate(ctx, app.cache, keys...)
	}
	cache.InvalidatePrefix(ctx, app.cache, cache.QueryPrefix)
}
