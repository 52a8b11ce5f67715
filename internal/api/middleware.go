// Learnlens - Learner Interaction Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/learnlens

package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/learnlens/internal/metrics"
)

// metricsMiddleware records request counts and latency per endpoint.
// The raw URL path is used as the endpoint label; the route surface is
// small and fixed, so label cardinality stays bounded.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		metrics.ObserveAPIRequest(r.Method, r.URL.Path, ww.Status(), start)
	})
}
