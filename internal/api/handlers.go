package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/example/lakehouse-shop/internal/domain/cart"
	"github.com/example/lakehouse-shop/internal/domain/catalog"
	"github.com/example/lakehouse-shop/internal/domain/checkout"
	"github.com/example/lakehouse-shop/internal/domain/order"
	"github.com/example/lakehouse-shop/internal/gateway"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type contextKey string

const sessionContextKey contextKey = "session"

type Handlers struct {
	sessions *Sessions
	catalog  *catalog.Catalog
	topic    string
	logger   *zap.Logger
}

// NewHandlers serves sessions; topic is the events topic named in order lookup queries
func NewHandlers(sessions *Sessions, c *catalog.Catalog, topic string, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{sessions: sessions, catalog: c, topic: topic, logger: logger}
}

type addItemRequest struct {
	ProductID int `json:"product_id"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// CheckoutStatus is the checkout panel
type CheckoutStatus struct {
	State       checkout.State `json:"state"`
	Form        checkout.Form  `json:"form"`
	LastError   string         `json:"last_error,omitempty"`
	LastOrder   *order.Record  `json:"last_order,omitempty"`
	LookupQuery string         `json:"lookup_query,omitempty"`
}

// OrderResponse is returned when an order was accepted
type OrderResponse struct {
	Order       *order.Record `json:"order"`
	Ack         *gateway.Ack  `json:"ack"`
	Summary     string        `json:"summary"`
	LookupQuery string        `json:"lookup_query"`
}

func (h *Handlers) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			id = DefaultSession
		}
		if !ValidSessionID(id) {
			respondError(w, http.StatusBadRequest, "invalid_session", "session id must be 1-64 letters, digits, '-' or '_'", nil)
			return
		}
		sess := h.sessions.Get(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionContextKey, sess)))
	})
}

func session(r *http.Request) *Session {
	return r.Context().Value(sessionContextKey).(*Session)
}

// Catalog Handlers

func (h *Handlers) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.catalog.Items())
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, session(r).Projector.Full())
}

func (h *Handlers) GetCartOverlay(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, session(r).Projector.Compact())
}

func (h *Handlers) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
		return
	}
	// The cart ignores unknown ids; API clients get told instead.
	if !h.catalog.Contains(req.ProductID) {
		respondError(w, http.StatusNotFound, "unknown_product", "product not found", map[string]int{"product_id": req.ProductID})
		return
	}

	sess := session(r)
	if err := sess.Cart.AddItem(r.Context(), req.ProductID); err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Projector.Full())
}

func (h *Handlers) SetQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req setQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "body must be {\"quantity\": <int>}", nil)
		return
	}

	sess := session(r)
	if err := sess.Cart.SetQuantity(r.Context(), id, *req.Quantity); err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Projector.Full())
}

func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := productIDParam(w, r)
	if !ok {
		return
	}

	sess := session(r)
	if err := sess.Cart.RemoveItem(r.Context(), id); err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Projector.Full())
}

// Checkout Handlers

func (h *Handlers) GetCheckout(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.checkoutStatus(session(r).Flow))
}

func (h *Handlers) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*checkout.Flow).Begin)
}

func (h *Handlers) BackToCart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*checkout.Flow).Back)
}

func (h *Handlers) ContinueShopping(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*checkout.Flow).Continue)
}

func (h *Handlers) transition(w http.ResponseWriter, r *http.Request, step func(*checkout.Flow) error) {
	flow := session(r).Flow
	if err := step(flow); err != nil {
		h.respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.checkoutStatus(flow))
}

func (h *Handlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", nil)
		return
	}

	result, err := session(r).Flow.Place(r.Context(), form)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, OrderResponse{
		Order:       result.Order,
		Ack:         result.Ack,
		Summary:     result.Summary,
		LookupQuery: result.Order.LookupQuery(h.topic),
	})
}

func (h *Handlers) checkoutStatus(flow *checkout.Flow) CheckoutStatus {
	status := CheckoutStatus{State: flow.State(), Form: flow.Form()}
	if err := flow.LastError(); err != nil {
		status.LastError = err.Error()
	}
	if rec := flow.LastOrder(); rec != nil {
		status.LastOrder = rec
		status.LookupQuery = rec.LookupQuery(h.topic)
	}
	return status
}

func (h *Handlers) respondDomainError(w http.ResponseWriter, err error) {
	var validationErr *checkout.ValidationError
	var gatewayErr *gateway.Error

	switch {
	case errors.As(err, &validationErr):
		respondError(w, http.StatusUnprocessableEntity, "validation_failed", err.Error(), validationErr.Fields)
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error(), nil)
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		respondError(w, http.StatusConflict, "submission_in_flight", err.Error(), nil)
	case errors.Is(err, checkout.ErrInvalidTransition):
		respondError(w, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, checkout.ErrSubmissionFailed):
		var details any
		if errors.As(err, &gatewayErr) {
			details = map[string]any{
				"status_code": gatewayErr.StatusCode,
				"message":     gatewayErr.Message,
				"detail":      gatewayErr.Detail,
			}
		}
		respondError(w, http.StatusBadGateway, "submission_failed", err.Error(), details)
	case errors.Is(err, cart.ErrPersist):
		h.logger.Error("cart storage failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "storage_failed", err.Error(), nil)
	default:
		h.logger.Error("unexpected error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
	}
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product id must be an integer", nil)
		return 0, false
	}
	return id, true
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string, details any) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code, Details: details})
}
