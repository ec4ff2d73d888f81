// Package handlers wires the order lifecycle, stats, and reference-data
// services to the HTTP surface consumed by the POS front end and the API
// gateway.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"cafe-order-service/internal/logger"
	"cafe-order-service/internal/models"
	"cafe-order-service/internal/service"
)

const dateLayout = "2006-01-02"

type Handler struct {
	orders *service.Orders
	stats  *service.Stats
	tables *service.Tables
	lg     *logger.Logger
	ping   func(ctx context.Context) error
}

func New(orders *service.Orders, stats *service.Stats, tables *service.Tables, lg *logger.Logger, ping func(ctx context.Context) error) *Handler {
	return &Handler{orders: orders, stats: stats, tables: tables, lg: lg, ping: ping}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(h.logRequests)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/", h.listOrders)
		r.Get("/daily-stats", h.dailyStats)
		r.Get("/top-selling", h.topSelling)
		r.Get("/revenue", h.revenue)
		r.Get("/{orderId}", h.getOrder)
		r.Patch("/{orderId}/status", h.updateStatus)
		r.Post("/{orderId}/items", h.addItem)
		r.Post("/{orderId}/items/decrease", h.decreaseItem)
	})

	r.Get("/tables", h.listTables)
	r.Patch("/tables/{tableNumber}/status", h.updateTableStatus)
	r.Get("/payment-methods", h.listPaymentMethods)
	r.Get("/health", h.health)

	return r
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	order, err := h.orders.Create(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, toOrderResponses(orders))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.OrderStatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeItemRequest(w, r)
	if !ok {
		return
	}
	order, err := h.orders.AddItem(r.Context(), chi.URLParam(r, "orderId"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) decreaseItem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeItemRequest(w, r)
	if !ok {
		return
	}
	order, err := h.orders.DecreaseItem(r.Context(), chi.URLParam(r, "orderId"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) decodeItemRequest(w http.ResponseWriter, r *http.Request) (*models.OrderItemRequest, bool) {
	var req models.OrderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return nil, false
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return nil, false
	}
	return &req, true
}

func (h *Handler) dailyStats(w http.ResponseWriter, r *http.Request) {
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, time.Local)
		if err != nil {
			writeBadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		date = &parsed
	}

	stats, err := h.stats.Daily(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, dailyStatsResponse{
		Date:        stats.Date.Format(dateLayout),
		TotalAmount: stats.TotalAmount,
		OrderCount:  stats.OrderCount,
	})
}

func (h *Handler) topSelling(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	top, err := h.stats.TopSelling(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]topProductResponse, 0, len(top))
	for _, p := range top {
		out = append(out, topProductResponse{ProductID: p.ProductID, ProductName: p.ProductName, TotalSold: p.TotalSold})
	}
	writeResult(w, http.StatusOK, out)
}

func (h *Handler) revenue(w http.ResponseWriter, r *http.Request) {
	start, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("startDate"), time.Local)
	if err != nil {
		writeBadRequest(w, "startDate must be YYYY-MM-DD")
		return
	}
	end, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("endDate"), time.Local)
	if err != nil {
		writeBadRequest(w, "endDate must be YYYY-MM-DD")
		return
	}
	if end.Before(start) {
		writeBadRequest(w, "endDate must not be before startDate")
		return
	}

	status := models.StatusClose
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err = models.NormalizeStatus(raw)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	total, err := h.stats.RevenueBetween(r.Context(), start, end, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, total)
}

func (h *Handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.tables.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]tableResponse, 0, len(tables))
	for _, t := range tables {
		out = append(out, tableResponse{TableID: t.TableID, TableNumber: t.TableNumber, Status: t.Status})
	}
	writeResult(w, http.StatusOK, out)
}

func (h *Handler) updateTableStatus(w http.ResponseWriter, r *http.Request) {
	var req models.TableStatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := req.Validate(); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	table, err := h.tables.UpdateStatus(r.Context(), chi.URLParam(r, "tableNumber"), req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeResult(w, http.StatusOK, tableResponse{TableID: table.TableID, TableNumber: table.TableNumber, Status: table.Status})
}

func (h *Handler) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.tables.ListPaymentMethods(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]paymentMethodResponse, 0, len(methods))
	for _, m := range methods {
		out = append(out, paymentMethodResponse{PaymentMethodID: m.PaymentMethodID, PaymentMethodType: m.PaymentMethodType})
	}
	writeResult(w, http.StatusOK, out)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	healthy := true
	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			status = http.StatusServiceUnavailable
			healthy = false
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"healthy":   healthy,
		"service":   "order-service",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// logRequests emits one line per request with the fields the café services
// share across their logs.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := chimw.GetReqID(r.Context())

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.lg.Debug("request_completed", requestID, r.Method+" "+r.URL.Path, map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		})
	})
}
