package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/example/payment-settlement/internal/payment"
)

const PaymentsServiceName = "payments-api"

type PaymentService interface {
	Initiate(ctx context.Context, req payment.InitiateRequest) (payment.Payment, error)
	Get(ctx context.Context, id string) (payment.Payment, error)
}

type PaymentsDeps struct {
	Service       PaymentService
	Auth          *Authenticator
	DefaultAmount float64
	// BrokerConnected feeds /healthz.
	BrokerConnected func() bool
	Logger          *zap.Logger
}

type createPaymentIn struct {
	OrderID       string   `json:"order_id"`
	PaymentMethod string   `json:"payment_method"`
	Amount        *float64 `json:"amount,omitempty"`
}

type createPaymentOut struct {
	PaymentID       string         `json:"payment_id"`
	OrderID         string         `json:"order_id"`
	Status          payment.Status `json:"status"`
	Amount          float64        `json:"amount"`
	Currency        string         `json:"currency"`
	ConfirmationURL string         `json:"confirmation_url"`
}

type paymentStatusOut struct {
	PaymentID string         `json:"payment_id"`
	Status    payment.Status `json:"status"`
	PaidAt    *time.Time     `json:"paid_at"`
}

func NewPaymentsRouter(d PaymentsDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := mux.NewRouter()
	r.Use(MetricsMiddleware(PaymentsServiceName))

	// metrics & health
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		connected := d.BrokerConnected != nil && d.BrokerConnected()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":           "healthy",
			"service":          PaymentsServiceName,
			"broker_connected": connected,
			"ts":               time.Now().UTC(),
		})
	}).Methods(http.MethodGet)

	// API
	api := r.PathPrefix("/api/payments").Subrouter()
	api.Use(d.Auth.Middleware)
	api.HandleFunc("", createPaymentHandler(d)).Methods(http.MethodPost)
	api.HandleFunc("/{payment_id}", getPaymentHandler(d)).Methods(http.MethodGet)

	return cors.AllowAll().Handler(r)
}

func createPaymentHandler(d PaymentsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in createPaymentIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, validationError("invalid JSON body"))
			return
		}
		if strings.TrimSpace(in.OrderID) == "" || strings.TrimSpace(in.PaymentMethod) == "" {
			writeError(w, validationError("order_id and payment_method are required"))
			return
		}
		amount := d.DefaultAmount
		if in.Amount != nil {
			amount = *in.Amount
		}

		p, err := d.Service.Initiate(r.Context(), payment.InitiateRequest{
			OrderID:       in.OrderID,
			PaymentMethod: in.PaymentMethod,
			UserID:        UserID(r.Context()),
			Amount:        amount,
		})
		if err != nil {
			d.Logger.Warn("create payment rejected", zap.String("order_id", in.OrderID), zap.Error(err))
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, createPaymentOut{
			PaymentID:       p.ID,
			OrderID:         p.OrderID,
			Status:          p.Status,
			Amount:          p.Amount,
			Currency:        p.Currency,
			ConfirmationURL: p.ConfirmationURL,
		})
	}
}

func getPaymentHandler(d PaymentsDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["payment_id"]
		p, err := d.Service.Get(r.Context(), id)
		if err != nil {
			d.Logger.Warn("payment not found", zap.String("payment_id", id))
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, paymentStatusOut{PaymentID: p.ID, Status: p.Status, PaidAt: p.PaidAt})
	}
}
