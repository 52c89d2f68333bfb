// cmd/api/handlers_stats.go
package main

import (
	"context"
	"net/http"

	"github.com/bookbase-api/bookbase/internal/cache"
)

// statsOverviewHandler handles GET /v1/books/stats/overview.
// The aggregates degrade per-metric inside the stats model (a failed query
// yields its zero value), so this endpoint never fails wholesale. The
// assembled payload is cached under the shared query prefix and therefore
// invalidated by any book write.
func (app *applicationDependencies) statsOverviewHandler(w http.ResponseWriter, r *http.Request) {
	key := cache.QueryKey("stats", nil)

	payload, hit, _ := cache.Fetch(r.Context(), app.cache, key, app.config.cache.ttl,
		func(ctx context.Context) (map[string]any, error) {
			return app.models.Stats.Overview(ctx), nil
		})

	if err := app.writeSuccess(w, http.StatusOK, payload, nil, cacheHeader(hit)); err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
