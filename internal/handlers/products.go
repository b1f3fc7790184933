package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/nvelasco/stockdesk/internal/backend"
	"github.com/nvelasco/stockdesk/internal/config"
	"github.com/nvelasco/stockdesk/internal/fetcher"
	"github.com/nvelasco/stockdesk/internal/forms"
	"github.com/nvelasco/stockdesk/internal/pager"
	"github.com/nvelasco/stockdesk/internal/uploader"
)

const maxUploadBytes = 10 << 20 // 10MB

// ProductHandler serves the catalog views and the add-product form for both
// roles; the role only changes which shell links render.
type ProductHandler struct {
	Backend      *backend.Client
	SessionStore *sessions.CookieStore
	Templates    *TemplateCache
	Searches     *fetcher.Group
	Uploads      uploader.Uploader
	UploadMode   string
}

// Inventory renders one backend page of the catalog. Paging is server-side
// only; the list arrives already sliced and is never re-sliced here.
func (h *ProductHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	page, search := pageParams(r)
	session, _ := h.SessionStore.Get(r, sessionName)
	tok, _ := sessionToken(session)

	res, err := h.Backend.ListProducts(r.Context(), tok, page, pager.DefaultPageSize, search)
	if err != nil {
		h.renderInventory(w, r, session, nil, pager.New(page, pager.DefaultPageSize, 0), search,
			backend.ErrorMessage(err, "Could not load products"))
		if !errors.Is(err, backend.ErrBadPayload) {
			slog.Error("Failed to fetch products", "error", err)
		} else {
			slog.Warn("Product list response was not JSON, treating as empty")
		}
		return
	}
	h.renderInventory(w, r, session, res.Products, pager.New(page, pager.DefaultPageSize, res.TotalCount), search, "")
}

func (h *ProductHandler) renderInventory(w http.ResponseWriter, r *http.Request, session *sessions.Session, products interface{}, pg pager.Page, search, errMsg string) {
	identity, _ := IdentityFrom(r.Context())
	data := map[string]interface{}{
		"Identity":  identity,
		"BasePath":  basePath(identity.Role),
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
		"Products":  products,
		"Page":      pg,
		"Search":    search,
		"Error":     errMsg,
	}
	session.Save(r, w)
	h.Templates.Render(w, "inventory.html", data)
}

// InventoryPartial answers the live-search fetches. Requests are coalesced per
// login: a newer keystroke cancels this one, which then answers 204 so the
// stale result is never rendered.
func (h *ProductHandler) InventoryPartial(w http.ResponseWriter, r *http.Request) {
	page, search := pageParams(r)
	session, _ := h.SessionStore.Get(r, sessionName)
	tok, _ := sessionToken(session)

	res, err := h.Searches.Do(r.Context(), string(tok)+":products", func(ctx context.Context) (interface{}, error) {
		return h.Backend.ListProducts(ctx, tok, page, pager.DefaultPageSize, search)
	})
	if errors.Is(err, fetcher.ErrSuperseded) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		slog.Error("Product search failed", "search", search, "error", err)
		http.Error(w, backend.ErrorMessage(err, "Could not load products"), http.StatusBadGateway)
		return
	}

	pp := res.(*backend.ProductPage)
	identity, _ := IdentityFrom(r.Context())
	h.Templates.Render(w, "product_grid.html", map[string]interface{}{
		"BasePath": basePath(identity.Role),
		"Products": pp.Products,
		"Page":     pager.New(page, pager.DefaultPageSize, pp.TotalCount),
		"Search":   search,
	})
}

// AddProductForm shows the modal form as its own page for no-JS clients.
func (h *ProductHandler) AddProductForm(w http.ResponseWriter, r *http.Request) {
	h.renderAddForm(w, r, "", nil)
}

// CreateProduct validates locally, then submits with the configured transport:
// plain JSON, multipart with the image binary, or image-host-then-JSON.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	// JSON-mode builds post the form urlencoded, without a file part.
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.renderAddForm(w, r, "File too large. Max 10MB.", r.Form)
		return
	}

	f, err := forms.ParseAddProduct(r)
	if err != nil {
		// Validation failed: the form re-renders and no backend call is made.
		h.renderAddForm(w, r, err.Error(), r.Form)
		return
	}

	payload := backend.NewProduct{
		Name:        f.Name,
		Price:       f.Price,
		Stock:       f.Stock,
		Description: f.Description,
	}
	if f.Size != "" {
		payload.Size = &f.Size
	}
	if f.Color != "" {
		payload.Color = &f.Color
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	tok, _ := sessionToken(session)

	file, header, fileErr := r.FormFile("image")
	if fileErr == nil {
		defer file.Close()
	}

	switch {
	case fileErr == nil && h.UploadMode == config.UploadModeMultipart:
		img, name, err := uploader.Prepare(header.Filename, file)
		if err != nil {
			h.renderAddForm(w, r, uploadErrorMessage(err), r.Form)
			return
		}
		_, err = h.Backend.AddProductMultipart(r.Context(), tok, payload, name, img)
		if err != nil {
			slog.Error("Failed to add product", "name", f.Name, "error", err)
			h.renderAddForm(w, r, backend.ErrorMessage(err, "Failed to add product"), r.Form)
			return
		}

	case fileErr == nil && h.UploadMode == config.UploadModeImageHost:
		img, name, err := uploader.Prepare(header.Filename, file)
		if err != nil {
			h.renderAddForm(w, r, uploadErrorMessage(err), r.Form)
			return
		}
		url, err := h.Uploads.Upload(r.Context(), name, img)
		if err != nil {
			slog.Error("Image upload failed", "error", err)
			h.renderAddForm(w, r, "Image upload failed!", r.Form)
			return
		}
		payload.ImageURL = url
		if _, err := h.Backend.AddProduct(r.Context(), tok, payload); err != nil {
			slog.Error("Failed to add product", "name", f.Name, "error", err)
			h.renderAddForm(w, r, backend.ErrorMessage(err, "Failed to add product"), r.Form)
			return
		}

	default:
		// No image attached, or the build runs in plain JSON mode.
		if _, err := h.Backend.AddProduct(r.Context(), tok, payload); err != nil {
			slog.Error("Failed to add product", "name", f.Name, "error", err)
			h.renderAddForm(w, r, backend.ErrorMessage(err, "Failed to add product"), r.Form)
			return
		}
	}

	identity, _ := IdentityFrom(r.Context())
	session.AddFlash(FlashMessage{Type: "success", Message: "Product added successfully!"})
	session.Save(r, w)
	http.Redirect(w, r, basePath(identity.Role)+"/inventory", http.StatusSeeOther)
}

func (h *ProductHandler) renderAddForm(w http.ResponseWriter, r *http.Request, errMsg string, values interface{}) {
	identity, _ := IdentityFrom(r.Context())
	session, _ := h.SessionStore.Get(r, sessionName)
	data := map[string]interface{}{
		"Identity":   identity,
		"BasePath":   basePath(identity.Role),
		"CsrfField":  csrf.TemplateField(r),
		"Flashes":    GetFlash(session),
		"Error":      errMsg,
		"Values":     values,
		"WithUpload": h.UploadMode != config.UploadModeJSON,
	}
	session.Save(r, w)
	h.Templates.Render(w, "add_product.html", data)
}

func uploadErrorMessage(err error) string {
	if errors.Is(err, uploader.ErrUnsupportedFormat) {
		return "Unsupported image format. Only PNG, JPG, JPEG are allowed."
	}
	return "Failed to process image."
}

// pageParams reads the list query parameters; a missing or bad page is page 1.
func pageParams(r *http.Request) (int, string) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	return page, r.URL.Query().Get("search")
}

func basePath(role string) string {
	if role == RoleWorker {
		return "/worker"
	}
	return "/admin"
}
