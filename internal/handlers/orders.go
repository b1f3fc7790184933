package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/nvelasco/stockdesk/internal/backend"
	"github.com/nvelasco/stockdesk/internal/fetcher"
	"github.com/nvelasco/stockdesk/internal/forms"
	"github.com/nvelasco/stockdesk/internal/pager"
)

// OrderHandler serves the order ledger (admin), the worker's own orders, the
// add-order form and the delivered toggle.
type OrderHandler struct {
	Backend      *backend.Client
	SessionStore *sessions.CookieStore
	Templates    *TemplateCache
	Searches     *fetcher.Group
}

func (h *OrderHandler) Orders(w http.ResponseWriter, r *http.Request) {
	page, search := pageParams(r)
	session, _ := h.SessionStore.Get(r, sessionName)
	tok, _ := sessionToken(session)

	res, err := h.Backend.ListOrders(r.Context(), tok, page, pager.DefaultPageSize, search)
	if err != nil {
		if errors.Is(err, backend.ErrBadPayload) {
			slog.Warn("Order list response was not JSON, treating as empty")
		} else {
			slog.Error("Failed to fetch orders", "error", err)
		}
		h.renderOrders(w, r, session, nil, pager.New(page, pager.DefaultPageSize, 0), search,
			backend.ErrorMessage(err, "Could not load orders"))
		return
	}
	h.renderOrders(w, r, session, res.Orders, pager.New(page, pager.DefaultPageSize, res.TotalCount), search, "")
}

func (h *OrderHandler) renderOrders(w http.ResponseWriter, r *http.Request, session *sessions.Session, orders interface{}, pg pager.Page, search, errMsg string) {
	identity, _ := IdentityFrom(r.Context())
	data := map[string]interface{}{
		"Identity":  identity,
		"BasePath":  basePath(identity.Role),
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
		"Orders":    orders,
		"Page":      pg,
		"Search":    search,
		"Error":     errMsg,
	}
	session.Save(r, w)
	h.Templates.Render(w, "orders.html", data)
}

// OrdersPartial is the live-search endpoint for the admin ledger.
func (h *OrderHandler) OrdersPartial(w http.ResponseWriter, r *http.Request) {
	page, search := pageParams(r)
	session, _ := h.SessionStore.Get(r, sessionName)
	tok, _ := sessionToken(session)

	res, err := h.Searches.Do(r.Context(), string(tok)+":orders", func(ctx context.Context) (interface{}, error) {
		return h.Backend.ListOrders(ctx, tok, page, pager.DefaultPageSize, search)
	})
	if errors.Is(err, fetcher.ErrSuperseded) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		slog.Error("Order search failed", "search", search, "error", err)
		http.Error(w, backend.ErrorMessage(err, "Could not load orders"), http.StatusBadGateway)
		return
	}

	op := res.(*backend.OrderPage)
	identity, _ := IdentityFrom(r.Context())
	h.Templates.Render(w, "order_grid.html", map[string]interface{}{
		"BasePath":  basePath(identity.Role),
		"CsrfField": csrf.TemplateField(r),
		"Orders":    op.Orders,
		"Page":      pager.New(page, pager.DefaultPageSize, op.TotalCount),
		"Search":    search,
	})
}

// MyOrders renders the worker-scoped ledger.
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	page, _ := pageParams(r)
	session, _ := h.SessionStore.Get(r, sessionName)
	tok, _ := sessionToken(session)
	identity, _ := IdentityFrom(r.Context())

	data := map[string]interface{}{
		"Identity":  identity,
		"BasePath":  basePath(identity.Role),
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
		"Page":      pager.New(page, pager.DefaultPageSize, 0),
	}

	res, err := h.Backend.MyOrders(r.Context(), tok, page, pager.DefaultPageSize)
	if err != nil {
		if errors.Is(err, backend.ErrBadPayload) {
			slog.Warn("My-orders response was not JSON, treating as empty")
		} else {
			slog.Error("Failed to fetch worker orders", "error", err)
		}
		data["Error"] = backend.ErrorMessage(err, "Could not load your orders")
	} else {
		data["Orders"] = res.Orders
		data["WorkerName"] = res.WorkerName
		data["Page"] = pager.New(page, pager.DefaultPageSize, res.TotalCount)
	}

	session.Save(r, w)
	h.Templates.Render(w, "my_orders.html", data)
}

func (h *OrderHandler) AddOrderForm(w http.ResponseWriter, r *http.Request) {
	h.renderAddForm(w, r, "", nil)
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderAddForm(w, r, "Invalid form data.", r.Form)
		return
	}

	f, err := forms.ParseAddOrder(r)
	if err != nil {
		// Validation failed locally: no backend call.
		h.renderAddForm(w, r, err.Error(), r.Form)
		return
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	tok, _ := sessionToken(session)

	_, err = h.Backend.AddOrder(r.Context(), tok, backend.NewOrder{
		ProductID:    f.ProductID,
		CustomerName: f.CustomerName,
		Quantity:     f.Quantity,
		Address:      f.Address,
		Contact:      f.Contact,
		COD:          f.COD,
		Description:  f.Description,
		Delivered:    f.Delivered,
	})
	if err != nil {
		slog.Error("Failed to add order", "customer", f.CustomerName, "error", err)
		h.renderAddForm(w, r, backend.ErrorMessage(err, "Failed to add order"), r.Form)
		return
	}

	identity, _ := IdentityFrom(r.Context())
	session.AddFlash(FlashMessage{Type: "success", Message: "Order added successfully!"})
	session.Save(r, w)
	http.Redirect(w, r, basePath(identity.Role)+"/orders", http.StatusSeeOther)
}

func (h *OrderHandler) renderAddForm(w http.ResponseWriter, r *http.Request, errMsg string, values interface{}) {
	identity, _ := IdentityFrom(r.Context())
	session, _ := h.SessionStore.Get(r, sessionName)
	data := map[string]interface{}{
		"Identity":  identity,
		"BasePath":  basePath(identity.Role),
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
		"Error":     errMsg,
		"Values":    values,
	}
	session.Save(r, w)
	h.Templates.Render(w, "add_order.html", data)
}

// ToggleDelivered issues exactly one PUT for the one order on the form. On
// success only that row is re-rendered (AJAX) or the list page reloads with a
// flash; on failure the displayed state is left exactly as it was.
func (h *OrderHandler) ToggleDelivered(w http.ResponseWriter, r *http.Request) {
	orderID := r.FormValue("id")
	if orderID == "" {
		http.Error(w, "Invalid order ID", http.StatusBadRequest)
		return
	}
	delivered := r.FormValue("delivered") == "true" || r.FormValue("delivered") == "on"

	session, _ := h.SessionStore.Get(r, sessionName)
	tok, _ := sessionToken(session)

	order, err := h.Backend.SetDelivered(r.Context(), tok, orderID, delivered)
	if err != nil {
		slog.Error("Failed to update delivered flag", "order_id", orderID, "error", err)
		if isAJAX(r) {
			http.Error(w, backend.ErrorMessage(err, "Failed to update order"), http.StatusBadGateway)
			return
		}
		identity, _ := IdentityFrom(r.Context())
		session.AddFlash(FlashMessage{Type: "error", Message: backend.ErrorMessage(err, "Failed to update order")})
		session.Save(r, w)
		http.Redirect(w, r, basePath(identity.Role)+"/orders", http.StatusSeeOther)
		return
	}

	if isAJAX(r) {
		// Patch just this card; the rest of the list is untouched.
		h.Templates.Render(w, "order_card.html", map[string]interface{}{
			"Order":     order,
			"CsrfField": csrf.TemplateField(r),
		})
		return
	}

	identity, _ := IdentityFrom(r.Context())
	session.AddFlash(FlashMessage{Type: "success", Message: "Order updated!"})
	session.Save(r, w)
	http.Redirect(w, r, basePath(identity.Role)+"/orders", http.StatusSeeOther)
}

func isAJAX(r *http.Request) bool {
	return r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}
