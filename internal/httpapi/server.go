package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"suggestd/internal/suggest"
	"suggestd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Suggest(ctx context.Context, req types.SuggestRequest) (types.SuggestResponse, error)
	CacheStats() types.CacheStats
	ClearCache() types.ClearCacheResponse
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(inflightMiddleware)
		if requestTimeout > 0 {
			r.Use(middleware.Timeout(requestTimeout))
		}

		r.Post("/v1/suggest", suggestHandler(svc))

		r.Get("/admin/cache/stats", cacheStatsHandler(svc))
		r.Post("/admin/cache/clear", cacheClearHandler(svc))
		r.Get("/status", statusHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// suggestHandler godoc
// @Summary      Suggest an inline continuation
// @Description  Returns a short continuation for the text before the cursor. Provider failures degrade to a heuristic fallback with status 200.
// @Tags         suggest
// @Accept       json
// @Produce      json
// @Param        request  body      types.SuggestRequest  true  "Context text and sampling options"
// @Success      200      {object}  types.SuggestResponse
// @Failure      400      {object}  types.ErrorResponse
// @Failure      415      {object}  types.ErrorResponse
// @Router       /v1/suggest [post]
func suggestHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		// Content-Type check
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			logEnd(r, lvl, "suggest", http.StatusUnsupportedMediaType, start, nil)
			return
		}
		// Limit body size (configurable, default 1MiB)
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.SuggestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			msg := "invalid JSON body"
			var te *json.UnmarshalTypeError
			if errors.As(err, &te) && te.Field == "text" {
				msg = "text must be a string"
			}
			writeJSONError(w, http.StatusBadRequest, msg)
			logEnd(r, lvl, "suggest", http.StatusBadRequest, start, err)
			return
		}
		// Shutdown cancels in-flight suggestions too.
		ctx, cancel := suggestContext(r.Context(), serverBaseCtx)
		defer cancel()
		ctx = suggest.WithRequestID(ctx, middleware.GetReqID(r.Context()))
		resp, err := svc.Suggest(ctx, req)
		if err != nil {
			status := http.StatusInternalServerError
			if he, ok := err.(HTTPError); ok {
				status = he.StatusCode()
			}
			writeJSONError(w, status, err.Error())
			logEnd(r, lvl, "suggest", status, start, err)
			return
		}
		writeJSON(w, resp)
		if lvl >= LevelDebug && zlog != nil {
			zlog.Debug().Str("source", resp.Source).Bool("fallback", resp.Fallback).
				Str("error", resp.Error).Int("chars", len(resp.Suggestion)).Msg("suggest result")
		}
		logEnd(r, lvl, "suggest", http.StatusOK, start, nil)
	}
}

// cacheStatsHandler godoc
// @Summary  Cache statistics
// @Tags     admin
// @Produce  json
// @Success  200  {object}  types.CacheStats
// @Router   /admin/cache/stats [get]
func cacheStatsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.CacheStats())
	}
}

// cacheClearHandler godoc
// @Summary  Clear the suggestion cache
// @Tags     admin
// @Produce  json
// @Param    X-Admin-Secret  header    string  true  "Admin secret"
// @Success  200             {object}  types.ClearCacheResponse
// @Failure  401             {object}  types.ErrorResponse
// @Failure  403             {object}  types.ErrorResponse
// @Router   /admin/cache/clear [post]
func cacheClearHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		if status := checkAdmin(r); status != 0 {
			msg := "invalid admin secret"
			if status == http.StatusForbidden {
				msg = "admin endpoints are disabled"
			}
			writeJSONError(w, status, msg)
			logEnd(r, lvl, "cache clear", status, start, nil)
			return
		}
		writeJSON(w, svc.ClearCache())
		logEnd(r, LevelInfo, "cache clear", http.StatusOK, start, nil)
	}
}

// statusHandler godoc
// @Summary  Service status
// @Tags     ops
// @Produce  json
// @Success  200  {object}  types.StatusResponse
// @Router   /status [get]
func statusHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	}
}
