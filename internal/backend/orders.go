package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nvelasco/stockdesk/internal/models"
)

type OrderPage struct {
	Orders     []models.Order `json:"orders"`
	TotalCount int            `json:"totalCount"`
}

// WorkerOrderPage is the worker-scoped ledger page; the backend reports the
// worker's display name alongside the rows.
type WorkerOrderPage struct {
	Orders     []models.Order `json:"myOrders"`
	TotalCount int            `json:"totalCount"`
	WorkerName string         `json:"workername"`
}

func (c *Client) ListOrders(ctx context.Context, tok Token, page, limit int, search string) (*OrderPage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/order/allOrders", pageQuery(page, limit, search), nil, tok)
	if err != nil {
		return nil, err
	}
	var out OrderPage
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MyOrders(ctx context.Context, tok Token, page, limit int) (*WorkerOrderPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	req, err := c.newRequest(ctx, http.MethodGet, "/order/my-orders", q, nil, tok)
	if err != nil {
		return nil, err
	}
	var out WorkerOrderPage
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type NewOrder struct {
	ProductID    string  `json:"productID"`
	CustomerName string  `json:"customerName"`
	Quantity     int     `json:"quantity"`
	Address      string  `json:"address"`
	Contact      string  `json:"contact"`
	COD          float64 `json:"cod"`
	Description  string  `json:"description"`
	Delivered    bool    `json:"delivered"`
}

func (c *Client) AddOrder(ctx context.Context, tok Token, o NewOrder) (*models.Order, error) {
	var out models.Order
	if err := c.postJSON(ctx, "/order/addOrder", tok, o, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetDelivered updates exactly one order's delivered flag. The caller patches
// only that row on success; on error the displayed state must stay unchanged.
func (c *Client) SetDelivered(ctx context.Context, tok Token, orderID string, delivered bool) (*models.Order, error) {
	body := struct {
		Delivered bool `json:"delivered"`
	}{Delivered: delivered}

	buf, err := marshalBody(body)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/order/updateOrder/"+url.PathEscape(orderID), nil, buf, tok)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out models.Order
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
