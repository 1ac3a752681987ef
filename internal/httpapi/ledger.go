package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/example/payment-settlement/internal/event"
)

const LedgerServiceName = "ledger-worker"

type LedgerService interface {
	Balance(userID string) float64
	Spend(userID, orderID string, amount float64) (spent, balance float64, err error)
}

type LedgerDeps struct {
	Service         LedgerService
	Auth            *Authenticator
	ConsumerRunning func() bool
	Logger          *zap.Logger
}

type balanceOut struct {
	UserID  string  `json:"user_id"`
	Balance float64 `json:"balance"`
}

type spendIn struct {
	OrderID string   `json:"order_id"`
	Amount  *float64 `json:"amount"`
}

type spendOut struct {
	OrderID      string  `json:"order_id"`
	BonusesSpent float64 `json:"bonuses_spent"`
	NewBalance   float64 `json:"new_balance"`
}

func NewLedgerRouter(d LedgerDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := mux.NewRouter()
	r.Use(MetricsMiddleware(LedgerServiceName))

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		running := d.ConsumerRunning != nil && d.ConsumerRunning()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "healthy",
			"service":          LedgerServiceName,
			"consumer_running": running,
			"ts":               time.Now().UTC(),
		})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/bonuses").Subrouter()
	api.Use(d.Auth.Middleware)
	api.HandleFunc("/balance", func(w http.ResponseWriter, r *http.Request) {
		userID := UserID(r.Context())
		writeJSON(w, http.StatusOK, balanceOut{UserID: userID, Balance: d.Service.Balance(userID)})
	}).Methods(http.MethodGet)
	api.HandleFunc("/spend", spendHandler(d)).Methods(http.MethodPost)

	return cors.AllowAll().Handler(r)
}

func spendHandler(d LedgerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in spendIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, validationError("invalid JSON body"))
			return
		}
		if !event.ValidIdentifier(in.OrderID) || in.Amount == nil {
			writeError(w, validationError("order_id and amount are required"))
			return
		}

		spent, balance, err := d.Service.Spend(UserID(r.Context()), in.OrderID, *in.Amount)
		if err != nil {
			d.Logger.Warn("spend rejected", zap.String("order_id", in.OrderID), zap.Error(err))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, spendOut{OrderID: in.OrderID, BonusesSpent: spent, NewBalance: balance})
	}
}
