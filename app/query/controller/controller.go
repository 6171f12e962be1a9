package controller

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/dem-exchange/insightsx/app/query/types"
	"github.com/dem-exchange/insightsx/pkg/errs"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Controller struct {
	App *types.App
}

// NewController returns a new controller.
func NewController(app *types.App) *Controller {
	return &Controller{
		App: app,
	}
}

// NewRouter returns a new router with all the routes defined in this file.
func (c *Controller) NewRouter() (*mux.Router, error) {
	r := mux.NewRouter()

	r.Handle("/health", http.HandlerFunc(c.HandleHealth)).Methods("GET")

	r.HandleFunc("/balances/coins/{address}", c.scoped(c.HandleCoinBalances)).Methods("GET")
	r.HandleFunc("/balances/value/{address}", c.scoped(c.HandleBalanceValues)).Methods("GET")

	r.HandleFunc("/pools/stats", c.scoped(c.HandlePoolStats)).Methods("GET")
	r.HandleFunc("/pools/apr/{id}", c.scoped(c.HandlePoolAPR)).Methods("GET")
	r.HandleFunc("/pools/performance/{id}", c.scoped(c.HandlePoolPerformance)).Methods("GET")
	r.HandleFunc("/pools/fees/{id}", c.scoped(c.HandlePoolFees)).Methods("GET")
	r.HandleFunc("/pools/volume/{id}", c.scoped(c.HandlePoolVolume)).Methods("GET")
	r.HandleFunc("/pools/24h_volume/{id}", c.scoped(c.HandlePoolVolume24h)).Methods("GET")

	r.HandleFunc("/trades/volume/{address}", c.scoped(c.HandleTradeVolume)).Methods("GET")
	r.HandleFunc("/trades/fees/{address}", c.scoped(c.HandleTradeFees)).Methods("GET")
	r.HandleFunc("/trades/funding/{address}", c.scoped(c.HandleFunding)).Methods("GET")

	r.HandleFunc("/positions/pnl/{address}", c.scoped(c.HandlePositionPnl)).Methods("GET")
	r.HandleFunc("/positions/upnl/{address}", c.scoped(c.HandleUnrealizedPnl)).Methods("GET")

	r.HandleFunc("/markets/funding/{market}", c.scoped(c.HandleMarketFunding)).Methods("GET")

	return r, nil
}

// WithCORS answers preflights and sets CORS headers. With an empty allow-list the
// request origin is echoed back.
func WithCORS(next http.Handler, allowed []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		switch {
		case origin == "":
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case len(allowed) == 0 || slices.Contains(allowed, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodOptions)

		// Fast-path the preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// scoped runs h on one pooled connection bound to the request context, bounded by the
// query timeout. The connection is released when h returns.
func (c *Controller) scoped(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if d := c.App.Config.QueryTimeout; d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}

		err := c.App.DB.WithConn(ctx, func(ctx context.Context) error {
			h(w, r.WithContext(ctx))
			return nil
		})
		if err != nil {
			c.App.Logger.Error("Unable to acquire database connection", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
		}
	}
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// statusFor maps the error taxonomy to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errs.IsValidation(err):
		return http.StatusBadRequest
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsInsufficientData(err), errs.IsAlignment(err):
		return http.StatusUnprocessableEntity
	case errs.IsUpstream(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeErr writes err with its mapped status. Server-side failures are logged and
// their details withheld from the client.
func (c *Controller) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		msg = "query failed"
	case http.StatusGatewayTimeout:
		msg = "query timed out"
	}
	if status >= http.StatusInternalServerError {
		c.App.Logger.Error("Request failed",
			zap.String("route", routeTemplate(r)),
			zap.Int("status", status),
			zap.Error(err))
	}
	writeError(w, status, msg)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}
