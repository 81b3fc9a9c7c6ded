// Package httpapi is the dev server's HTTP surface. It exposes the same
// operations the deployed stack triggers through its gateways, backed by
// the in-memory infrastructure.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/commerce-hub/commerce-hub/internal/application/eventflow"
	"github.com/commerce-hub/commerce-hub/internal/application/importflow"
	orderapp "github.com/commerce-hub/commerce-hub/internal/application/order"
	productapp "github.com/commerce-hub/commerce-hub/internal/application/product"
	"github.com/commerce-hub/commerce-hub/internal/domain/order"
	"github.com/commerce-hub/commerce-hub/internal/domain/product"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/localhub"
	"github.com/commerce-hub/commerce-hub/internal/infrastructure/memory"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	imports  *importflow.Service
	products *productapp.Service
	orders   *orderapp.Service
	events   *eventflow.Service
	hub      *localhub.Hub
	payloads *memory.PayloadStore
	logger   zerolog.Logger
}

func NewServer(
	imports *importflow.Service,
	products *productapp.Service,
	orders *orderapp.Service,
	events *eventflow.Service,
	hub *localhub.Hub,
	payloads *memory.PayloadStore,
	logger zerolog.Logger,
) *Server {
	return &Server{
		imports:  imports,
		products: products,
		orders:   orders,
		events:   events,
		hub:      hub,
		payloads: payloads,
		logger:   logger.With().Str("component", "httpapi").Logger(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/stream", s.streamEndpoint)
			r.Post("/url", s.requestUploadTarget)
			r.Put("/upload/{token}", s.uploadPayload)
			r.Post("/cancel", s.cancelImport)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", s.listProducts)
			r.Get("/{id}", s.getProduct)
			r.Post("/", s.createProduct)
			r.Put("/{id}", s.updateProduct)
			r.Delete("/{id}", s.deleteProduct)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", s.getOrders)
			r.Post("/", s.createOrder)
			r.Delete("/", s.deleteOrder)
			r.Get("/events", s.orderHistory)
		})
	})

	return r
}

// Invoice handlers

// streamEndpoint registers the caller as a status listener. The
// connection id stands in for the websocket connection of the deployed
// stack.
func (s *Server) streamEndpoint(w http.ResponseWriter, r *http.Request) {
	connectionID := r.URL.Query().Get("connection_id")
	if connectionID == "" {
		connectionID = uuid.NewString()
	}
	client := s.hub.Register(connectionID)
	defer s.hub.Unregister(connectionID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Connection-Id", connectionID)
	w.WriteHeader(http.StatusOK)
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg, open := <-client.Messages:
			if !open {
				return
			}
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(msg)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}

type uploadTargetRequest struct {
	ConnectionID string `json:"connectionId"`
}

func (s *Server) requestUploadTarget(w http.ResponseWriter, r *http.Request) {
	var req uploadTargetRequest
	if err := decodeBody(r, &req); err != nil || req.ConnectionID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "connectionId required")
		return
	}

	target, err := s.imports.RequestUploadTarget(r.Context(), req.ConnectionID, middleware.GetReqID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, target)
}

// uploadPayload accepts the payload the client would put to the
// presigned URL, then runs payload processing the way the storage
// notification would.
func (s *Server) uploadPayload(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "unreadable payload")
		return
	}
	s.payloads.Put(s.payloads.Bucket(), token, body)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.imports.OnPayloadWritten(ctx, s.payloads.Bucket(), token); err != nil {
			s.logger.Error().Err(err).Str("token", token).Msg("payload processing failed")
		}
	}()

	w.WriteHeader(http.StatusAccepted)
}

type cancelImportRequest struct {
	TransactionID string `json:"transactionId"`
	ConnectionID  string `json:"connectionId"`
}

func (s *Server) cancelImport(w http.ResponseWriter, r *http.Request) {
	var req cancelImportRequest
	if err := decodeBody(r, &req); err != nil || req.TransactionID == "" || req.ConnectionID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "transactionId and connectionId required")
		return
	}
	if err := s.imports.Cancel(r.Context(), req.TransactionID, req.ConnectionID); err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Product handlers

type productRequest struct {
	ProductName string  `json:"productName"`
	Code        string  `json:"code"`
	Price       float64 `json:"price"`
	Model       string  `json:"model"`
	ProductURL  string  `json:"productUrl"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	items, err := s.products.GetAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, product.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	p := product.NewProduct(req.ProductName, req.Code, req.Price, req.Model, req.ProductURL)
	created, err := s.products.Create(r.Context(), p, userEmail(r), middleware.GetReqID(r.Context()))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	p := &product.Product{
		ID:          chi.URLParam(r, "id"),
		ProductName: req.ProductName,
		Code:        req.Code,
		Price:       req.Price,
		Model:       req.Model,
		ProductURL:  req.ProductURL,
	}
	updated, err := s.products.Update(r.Context(), p, userEmail(r), middleware.GetReqID(r.Context()))
	if errors.Is(err, product.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	removed, err := s.products.Delete(r.Context(), chi.URLParam(r, "id"), userEmail(r), middleware.GetReqID(r.Context()))
	if errors.Is(err, product.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "product not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, removed)
}

// Order handlers

type createOrderBody struct {
	Email      string   `json:"email"`
	ProductIDs []string `json:"productIds"`
	Payment    string   `json:"payment"`
	Shipping   struct {
		Type    string `json:"type"`
		Carrier string `json:"carrier"`
	} `json:"shipping"`
}

func (s *Server) getOrders(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	orderID := r.URL.Query().Get("orderId")

	switch {
	case email != "" && orderID != "":
		o, err := s.orders.Get(r.Context(), email, orderID)
		if errors.Is(err, order.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
			return
		}
		respondJSON(w, http.StatusOK, o)
	case email != "":
		list, err := s.orders.GetByEmail(r.Context(), email)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
			return
		}
		respondJSON(w, http.StatusOK, list)
	default:
		list, err := s.orders.GetAll(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
			return
		}
		respondJSON(w, http.StatusOK, list)
	}
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderBody
	if err := decodeBody(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}

	o, err := s.orders.Create(r.Context(), orderapp.CreateOrderRequest{
		Email:      body.Email,
		ProductIDs: body.ProductIDs,
		Payment:    order.PaymentType(body.Payment),
		Shipping: order.Shipping{
			Type:    order.ShippingType(body.Shipping.Type),
			Carrier: order.CarrierType(body.Shipping.Carrier),
		},
		RequestID: middleware.GetReqID(r.Context()),
	})
	if errors.Is(err, product.ErrProductNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "some product was not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (s *Server) deleteOrder(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	orderID := r.URL.Query().Get("orderId")
	if email == "" || orderID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "email and orderId required")
		return
	}

	o, err := s.orders.Delete(r.Context(), email, orderID, middleware.GetReqID(r.Context()))
	if errors.Is(err, order.ErrOrderNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) orderHistory(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "email required")
		return
	}
	recs, err := s.events.OrderHistory(r.Context(), email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, recs)
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func userEmail(r *http.Request) string {
	email := r.Header.Get("X-User-Email")
	if email == "" {
		email = "dev@localhost"
	}
	return email
}
