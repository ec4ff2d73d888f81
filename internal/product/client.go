// Package product is the HTTP client for the Product service, which owns
// product identity, price and stock. Every call is a single remote request
// with a deadline; there is no retry loop, and a timeout is reported as the
// service being unavailable, never as an inventory verdict.
package product

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"cafe-order-service/internal/apperrors"
	"cafe-order-service/internal/models"
)

// outOfStockCode is the envelope code the Product service answers a refused
// decrease with.
const outOfStockCode = 1008

// Inventory is the capability the order lifecycle consumes.
type Inventory interface {
	FetchByName(ctx context.Context, name string) (*models.ProductInfo, error)
	DecreaseStock(ctx context.Context, productID string, quantity int) error
	IncreaseStock(ctx context.Context, productID string, quantity int) error
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: timeout,
	}
}

// envelope is the Product service response wrapper {code, message, result}.
type envelope struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Result  *productResult `json:"result"`
}

type productResult struct {
	ProductID   string          `json:"productID"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Amount      int             `json:"amount"`
}

type inventoryUpdateRequest struct {
	Quantity int `json:"quantity"`
}

// FetchByName resolves a product by exact name match.
func (c *Client) FetchByName(ctx context.Context, name string) (*models.ProductInfo, error) {
	endpoint := fmt.Sprintf("%s/products/name/%s", c.baseURL, url.PathEscape(name))

	status, body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrProductServiceUnavailable, err)
	}

	switch {
	case status == http.StatusNotFound:
		return nil, apperrors.ErrProductNotFound
	case status < 200 || status > 299:
		return nil, fmt.Errorf("%w: unexpected status %d", apperrors.ErrProductServiceUnavailable, status)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrProductResponseInvalid, err)
	}
	if env.Result == nil {
		return nil, apperrors.ErrProductNotFound
	}
	return &models.ProductInfo{
		ProductID:   env.Result.ProductID,
		ProductName: env.Result.ProductName,
		Price:       env.Result.Price,
		Amount:      env.Result.Amount,
	}, nil
}

// DecreaseStock reserves quantity units. An out-of-stock refusal is a
// distinct outcome the caller must not retry.
func (c *Client) DecreaseStock(ctx context.Context, productID string, quantity int) error {
	return c.adjust(ctx, productID, "decrease", quantity, true)
}

// IncreaseStock releases previously reserved units; it has no stock ceiling.
func (c *Client) IncreaseStock(ctx context.Context, productID string, quantity int) error {
	return c.adjust(ctx, productID, "increase", quantity, false)
}

func (c *Client) adjust(ctx context.Context, productID, direction string, quantity int, canBeOutOfStock bool) error {
	endpoint := fmt.Sprintf("%s/products/%s/inventory/%s", c.baseURL, url.PathEscape(productID), direction)

	payload, err := json.Marshal(inventoryUpdateRequest{Quantity: quantity})
	if err != nil {
		return fmt.Errorf("failed to marshal inventory request: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrProductServiceUnavailable, err)
	}

	if status >= 200 && status <= 299 {
		return nil
	}
	if status == http.StatusNotFound {
		return apperrors.ErrProductNotFound
	}

	// A refused decrease carries the out-of-stock code in the envelope.
	if canBeOutOfStock {
		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Code == outOfStockCode {
			return apperrors.ErrProductOutOfStock
		}
	}
	return fmt.Errorf("%w: unexpected status %d", apperrors.ErrProductServiceUnavailable, status)
}

// do performs one request under the client deadline and drains the body
// before the deadline context is released.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
