package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/events"
)

const (
	HeaderClientID      = "X-Client-Id"
	HeaderCorrelationID = "X-Correlation-Id"

	maxClientIDLen = 64
)

type ctxKey string

const (
	ctxClientID       ctxKey = "client_id"
	ctxClientIDIssued ctxKey = "client_id_issued"
)

// ClientID resolves the browser client a request belongs to. A missing or
// oversized id is replaced by a fresh one, which is echoed back so the
// client can keep it.
func ClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderClientID))
		issued := id == "" || len(id) > maxClientIDLen
		if issued {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderClientID, id)

		ctx := context.WithValue(r.Context(), ctxClientID, id)
		ctx = context.WithValue(ctx, ctxClientIDIssued, issued)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClientIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxClientID).(string)
	return id
}

// clientIDIssued reports whether the client id was minted for this request.
func clientIDIssued(ctx context.Context) bool {
	issued, _ := ctx.Value(ctxClientIDIssued).(bool)
	return issued
}

// Correlation propagates X-Correlation-Id into published events.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(HeaderCorrelationID)
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, cid)

		next.ServeHTTP(w, r.WithContext(events.WithCorrelationID(r.Context(), cid)))
	})
}

func CORS(allowOrigins []string) func(http.Handler) http.Handler {
	allowAll := len(allowOrigins) == 1 && allowOrigins[0] == "*"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			writeCORSHeaders(w, origin, allowOrigins, allowAll)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeCORSHeaders(w http.ResponseWriter, origin string, allowOrigins []string, allowAll bool) {
	if origin == "" {
		return
	}
	if !allowAll && !originAllowed(origin, allowOrigins) {
		return
	}

	// reflect the origin rather than "*" so credentials keep working
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Vary", "Origin")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Client-Id, X-Correlation-Id")
	w.Header().Set("Access-Control-Expose-Headers", "X-Client-Id, X-Correlation-Id")
}

func originAllowed(origin string, allow []string) bool {
	for _, a := range allow {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(origin)) {
			return true
		}
	}
	return false
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
