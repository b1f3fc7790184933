package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/nvelasco/stockdesk/internal/backend"
)

// DashboardHandler summarizes the backend's totals on the admin landing page.
// The counts come from the list endpoints' totalCount fields; the console
// keeps no counters of its own.
type DashboardHandler struct {
	Backend      *backend.Client
	SessionStore *sessions.CookieStore
	Templates    *TemplateCache
}

type dashboardStats struct {
	TotalProducts int
	TotalOrders   int
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)
	tok, _ := sessionToken(session)
	identity, _ := IdentityFrom(r.Context())

	var stats dashboardStats
	var errMsg string

	if products, err := h.Backend.ListProducts(r.Context(), tok, 1, 1, ""); err == nil {
		stats.TotalProducts = products.TotalCount
	} else {
		slog.Error("Failed to fetch product count", "error", err)
		errMsg = backend.ErrorMessage(err, "Could not load stats")
	}
	if orders, err := h.Backend.ListOrders(r.Context(), tok, 1, 1, ""); err == nil {
		stats.TotalOrders = orders.TotalCount
	} else {
		slog.Error("Failed to fetch order count", "error", err)
		errMsg = backend.ErrorMessage(err, "Could not load stats")
	}

	data := map[string]interface{}{
		"Identity": identity,
		"BasePath": basePath(identity.Role),
		"Flashes":  GetFlash(session),
		"Stats":    stats,
		"Error":    errMsg,
	}
	session.Save(r, w)
	h.Templates.Render(w, "dashboard.html", data)
}
