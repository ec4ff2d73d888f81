package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"cafe-order-service/internal/apperrors"
	"cafe-order-service/internal/models"
)

// Every response is wrapped in the envelope the café services share.
// Success is code 1000; business errors carry their taxonomy code.
const (
	successCode        = 1000
	invalidRequestCode = 1001
	internalErrorCode  = 9999
)

type apiResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Result  any    `json:"result,omitempty"`
}

func writeResult(w http.ResponseWriter, status int, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Code: successCode, Result: result})
}

func writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	code := apperrors.CodeOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		code = internalErrorCode
		message = "internal error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(apiResponse{Code: invalidRequestCode, Message: message})
}

type orderResponse struct {
	OrderID           string              `json:"orderId"`
	OrderDate         time.Time           `json:"orderDate"`
	Status            string              `json:"status"`
	TotalAmount       decimal.Decimal     `json:"totalAmount"`
	TableID           *string             `json:"tableId,omitempty"`
	TableNumber       *string             `json:"tableNumber,omitempty"`
	PaymentMethodID   *string             `json:"paymentMethodId,omitempty"`
	PaymentMethodType *string             `json:"paymentMethodType,omitempty"`
	Items             []orderItemResponse `json:"items"`
}

type orderItemResponse struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	Notes       string          `json:"notes,omitempty"`
}

func toOrderResponse(o *models.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Lines))
	for _, line := range o.Lines {
		items = append(items, orderItemResponse{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			LineTotal:   line.LineTotal(),
			Notes:       line.Notes,
		})
	}
	return orderResponse{
		OrderID:           o.OrderID,
		OrderDate:         o.OrderDate,
		Status:            string(o.Status),
		TotalAmount:       o.TotalAmount,
		TableID:           o.TableID,
		TableNumber:       o.TableNumber,
		PaymentMethodID:   o.PaymentMethodID,
		PaymentMethodType: o.PaymentMethodType,
		Items:             items,
	}
}

func toOrderResponses(orders []*models.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

type dailyStatsResponse struct {
	Date        string          `json:"date"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	OrderCount  int64           `json:"orderCount"`
}

type topProductResponse struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	TotalSold   int64  `json:"totalSold"`
}

type tableResponse struct {
	TableID     string `json:"tableId"`
	TableNumber string `json:"tableNumber"`
	Status      int    `json:"status"`
}

type paymentMethodResponse struct {
	PaymentMethodID   string `json:"paymentMethodId"`
	PaymentMethodType string `json:"paymentMethodType"`
}
