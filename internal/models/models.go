package models

import (
	"strconv"
	"strings"
	"time"
)

// Product mirrors a catalog record as the backend returns it. IDs are opaque
// strings owned by the backend; the console never mints them.
type Product struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Size        string  `json:"size,omitempty"`
	Color       string  `json:"color,omitempty"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"image,omitempty"`
}

// StockLabel renders the stock cell. Zero or negative stock must read
// "Out of Stock", never a number.
func (p Product) StockLabel() string {
	if p.Stock <= 0 {
		return "Out of Stock"
	}
	return strconv.Itoa(p.Stock)
}

// ProductRef is the denormalized product the backend embeds in an order.
type ProductRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

// WorkerRef identifies the worker who placed an order.
type WorkerRef struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

type Order struct {
	ID           string     `json:"_id"`
	CustomerName string     `json:"customerName"`
	Product      ProductRef `json:"productID"`
	Quantity     int        `json:"quantity"`
	Address      string     `json:"address"`
	Contact      string     `json:"contact"`
	COD          float64    `json:"cod"`
	Description  string     `json:"description,omitempty"`
	Delivered    bool       `json:"delivered"`
	Worker       WorkerRef  `json:"workerID"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (o Order) StatusLabel() string {
	if o.Delivered {
		return "Delivered"
	}
	return "Pending"
}

// WhatsAppLink builds a wa.me deep link from the order contact, keeping
// digits only so formatted numbers ("+92 300 1234567") still resolve.
func (o Order) WhatsAppLink() string {
	var b strings.Builder
	for _, r := range o.Contact {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "https://wa.me/" + b.String()
}

// AuthUser is the identity payload inside a /check-auth response.
type AuthUser struct {
	Username string `json:"username"`
}

// AuthStatus is the decoded /check-auth response.
type AuthStatus struct {
	Authenticated bool      `json:"authenticated"`
	User          *AuthUser `json:"user,omitempty"`
}

func (a AuthStatus) Username() string {
	if a.User == nil {
		return ""
	}
	return a.User.Username
}
