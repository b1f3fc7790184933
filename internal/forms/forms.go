// Package forms parses and validates the console's form submissions. A
// validation failure here means zero backend calls: the caller re-renders
// with the returned message and nothing leaves the process.
package forms

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Login struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

func ParseLogin(r *http.Request) (*Login, error) {
	f := &Login{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
	}
	if err := validate.Struct(f); err != nil {
		return nil, errors.New("Please fill in all fields")
	}
	return f, nil
}

type Register struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	Confirm  string `validate:"required,eqfield=Password"`
}

func ParseRegister(r *http.Request) (*Register, error) {
	f := &Register{
		Username: strings.TrimSpace(r.FormValue("username")),
		Password: r.FormValue("password"),
		Confirm:  r.FormValue("confirm_password"),
	}
	if f.Username == "" || f.Password == "" || f.Confirm == "" {
		return nil, errors.New("Please fill in all fields")
	}
	if err := validate.Struct(f); err != nil {
		return nil, errors.New("Passwords do not match")
	}
	return f, nil
}

type AddProduct struct {
	Name        string  `validate:"required"`
	Price       float64 `validate:"gte=0"`
	Stock       int
	Size        string
	Color       string
	Description string
}

// ParseAddProduct checks the required raw fields before any number parsing so
// an empty form reads as "missing", not "malformed".
func ParseAddProduct(r *http.Request) (*AddProduct, error) {
	name := strings.TrimSpace(r.FormValue("name"))
	priceRaw := strings.TrimSpace(r.FormValue("price"))
	stockRaw := strings.TrimSpace(r.FormValue("stock"))
	if name == "" || priceRaw == "" || stockRaw == "" {
		return nil, errors.New("Name, Price, and Stock are required")
	}

	price, err := strconv.ParseFloat(priceRaw, 64)
	if err != nil {
		return nil, errors.New("Invalid price format")
	}
	stock, err := strconv.Atoi(stockRaw)
	if err != nil {
		return nil, errors.New("Invalid stock format")
	}

	f := &AddProduct{
		Name:        name,
		Price:       price,
		Stock:       stock,
		Size:        strings.TrimSpace(r.FormValue("size")),
		Color:       strings.TrimSpace(r.FormValue("color")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if err := validate.Struct(f); err != nil {
		return nil, errors.New("Price must not be negative")
	}
	return f, nil
}

type AddOrder struct {
	ProductID    string `validate:"required"`
	CustomerName string `validate:"required"`
	Quantity     int    `validate:"gt=0"`
	Address      string `validate:"required"`
	Contact      string `validate:"required"`
	COD          float64
	Description  string `validate:"required"`
	Delivered    bool
}

func ParseAddOrder(r *http.Request) (*AddOrder, error) {
	qtyRaw := strings.TrimSpace(r.FormValue("quantity"))
	codRaw := strings.TrimSpace(r.FormValue("cod"))
	missing := qtyRaw == "" || codRaw == ""
	for _, field := range []string{"product_id", "customer_name", "address", "contact", "description"} {
		if strings.TrimSpace(r.FormValue(field)) == "" {
			missing = true
		}
	}
	if missing {
		return nil, errors.New("All fields are required")
	}

	qty, err := strconv.Atoi(qtyRaw)
	if err != nil {
		return nil, errors.New("Invalid quantity")
	}
	cod, err := strconv.ParseFloat(codRaw, 64)
	if err != nil {
		return nil, errors.New("Invalid COD amount")
	}

	f := &AddOrder{
		ProductID:    strings.TrimSpace(r.FormValue("product_id")),
		CustomerName: strings.TrimSpace(r.FormValue("customer_name")),
		Quantity:     qty,
		Address:      strings.TrimSpace(r.FormValue("address")),
		Contact:      strings.TrimSpace(r.FormValue("contact")),
		COD:          cod,
		Description:  strings.TrimSpace(r.FormValue("description")),
		Delivered:    r.FormValue("delivered") == "on" || r.FormValue("delivered") == "true",
	}
	if err := validate.Struct(f); err != nil {
		return nil, errors.New("Quantity must be greater than zero")
	}
	return f, nil
}
