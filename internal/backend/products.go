package backend

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/nvelasco/stockdesk/internal/models"
)

// ProductPage is one backend page of catalog records plus the total row count
// the views need for pagination math.
type ProductPage struct {
	Products   []models.Product `json:"products"`
	TotalCount int              `json:"totalCount"`
}

func (c *Client) ListProducts(ctx context.Context, tok Token, page, limit int, search string) (*ProductPage, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/product/allProducts", pageQuery(page, limit, search), nil, tok)
	if err != nil {
		return nil, err
	}
	var out ProductPage
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NewProduct is the creation payload. Size and Color marshal as null when
// unset, matching what the backend expects for omitted optionals.
type NewProduct struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Size        *string `json:"size"`
	Color       *string `json:"color"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image,omitempty"`
}

// AddProduct creates a product with a JSON body. Use AddProductMultipart when
// an image binary should travel with the record.
func (c *Client) AddProduct(ctx context.Context, tok Token, p NewProduct) (*models.Product, error) {
	var out models.Product
	if err := c.postJSON(ctx, "/product/addProduct", tok, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddProductMultipart creates a product with a multipart body carrying the
// image file, so the backend persists the binary itself.
func (c *Client) AddProductMultipart(ctx context.Context, tok Token, p NewProduct, filename string, image io.Reader) (*models.Product, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeProductForm(mw, p, filename, image)
		if cerr := mw.Close(); err == nil {
			err = cerr
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/product/addProduct", nil, pr, tok)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out models.Product
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func writeProductForm(mw *multipart.Writer, p NewProduct, filename string, image io.Reader) error {
	fields := map[string]string{
		"name":        p.Name,
		"price":       strconv.FormatFloat(p.Price, 'f', -1, 64),
		"stock":       strconv.Itoa(p.Stock),
		"description": p.Description,
	}
	if p.Size != nil {
		fields["size"] = *p.Size
	}
	if p.Color != nil {
		fields["color"] = *p.Color
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, image); err != nil {
		return fmt.Errorf("copy image: %w", err)
	}
	return nil
}
