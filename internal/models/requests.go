package models

import "fmt"

// CreateOrderRequest is the body of POST /orders. Table and payment method
// are optional natural-key references.
type CreateOrderRequest struct {
	TableNumber       *string            `json:"tableNumber,omitempty"`
	PaymentMethodType *string            `json:"paymentMethodType,omitempty"`
	Items             []OrderItemRequest `json:"items"`
}

// OrderItemRequest is one requested line: POST /orders items, and the body of
// the add-item and decrease-item endpoints.
type OrderItemRequest struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	Notes       string `json:"notes,omitempty"`
}

// OrderStatusUpdateRequest is the body of PATCH /orders/{id}/status.
type OrderStatusUpdateRequest struct {
	Status string `json:"status"`
}

// TableStatusUpdateRequest is the body of PATCH /tables/{number}/status.
type TableStatusUpdateRequest struct {
	Status int `json:"status"`
}

// Validate rejects malformed items before they reach the lifecycle manager.
// An empty items list is not rejected here: the manager owns that rule and
// reports it with its own business code.
func (r *CreateOrderRequest) Validate() error {
	for i, item := range r.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("items[%d]: %w", i, err)
		}
	}
	return nil
}

func (r *OrderItemRequest) Validate() error {
	if r.ProductName == "" {
		return fmt.Errorf("productName is required")
	}
	if r.Quantity < 1 {
		return fmt.Errorf("quantity must be a positive integer")
	}
	return nil
}

func (r *TableStatusUpdateRequest) Validate() error {
	if r.Status != TableFree && r.Status != TableOccupied {
		return fmt.Errorf("status must be %d (free) or %d (occupied)", TableFree, TableOccupied)
	}
	return nil
}
