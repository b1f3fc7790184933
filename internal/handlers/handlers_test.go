package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvelasco/stockdesk/internal/backend"
	"github.com/nvelasco/stockdesk/internal/config"
	"github.com/nvelasco/stockdesk/internal/fetcher"
)

func loadTemplates(t *testing.T) *TemplateCache {
	t.Helper()
	tc := NewTemplateCache()
	require.NoError(t, tc.Load("../../templates"))
	return tc
}

func newStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
}

// loggedInRequest builds a request carrying a session with the given backend
// token and role, the way a real browser would after login.
func loggedInRequest(t *testing.T, store *sessions.CookieStore, method, target string, body *strings.Reader, tok, role, username string) *http.Request {
	t.Helper()

	seed := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	session, err := store.Get(seed, sessionName)
	require.NoError(t, err)
	saveLogin(session, backend.Token(tok), role, username)
	require.NoError(t, session.Save(seed, rec))

	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, body)
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	for _, ck := range rec.Result().Cookies() {
		r.AddCookie(ck)
	}
	return r
}

func newBackend(t *testing.T, handler http.Handler) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, 5*time.Second)
}

func jsonHandler(status int, v interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
}

func TestRequireAuthRedirectsWithoutSession(t *testing.T) {
	var backendCalls, nextCalls int32
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&backendCalls, 1)
	}))
	h := &AuthHandler{Backend: client, SessionStore: newStore(), Templates: loadTemplates(t)}

	guarded := h.RequireAuth(RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&nextCalls, 1)
	})

	rec := httptest.NewRecorder()
	guarded(rec, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Zero(t, atomic.LoadInt32(&backendCalls), "no backend round-trip before a session exists")
	assert.Zero(t, atomic.LoadInt32(&nextCalls), "protected view must not render")
}

func TestRequireAuthRedirectsOnRoleMismatch(t *testing.T) {
	var nextCalls int32
	store := newStore()
	client := newBackend(t, jsonHandler(http.StatusOK, map[string]interface{}{"authenticated": true}))
	h := &AuthHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t)}

	guarded := h.RequireAuth(RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&nextCalls, 1)
	})

	r := loggedInRequest(t, store, http.MethodGet, "/admin/orders", nil, "sid=1", RoleWorker, "hamza")
	rec := httptest.NewRecorder()
	guarded(rec, r)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Zero(t, atomic.LoadInt32(&nextCalls))
}

func TestRequireAuthClearsRejectedSession(t *testing.T) {
	var nextCalls int32
	store := newStore()
	client := newBackend(t, jsonHandler(http.StatusOK, map[string]interface{}{"authenticated": false}))
	h := &AuthHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t)}

	guarded := h.RequireAuth(RoleWorker, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&nextCalls, 1)
	})

	r := loggedInRequest(t, store, http.MethodGet, "/worker/orders", nil, "sid=stale", RoleWorker, "hamza")
	rec := httptest.NewRecorder()
	guarded(rec, r)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/worker-login", rec.Header().Get("Location"))
	assert.Zero(t, atomic.LoadInt32(&nextCalls))
	assert.NotEmpty(t, rec.Header().Values("Set-Cookie"), "cleared session is written back")
}

func TestRequireAuthPassesIdentityThrough(t *testing.T) {
	store := newStore()
	client := newBackend(t, jsonHandler(http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          map[string]string{"username": "juliette"},
	}))
	h := &AuthHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t)}

	var seen Identity
	guarded := h.RequireAuth(RoleAdmin, func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	r := loggedInRequest(t, store, http.MethodGet, "/admin/orders", nil, "sid=1", RoleAdmin, "old-name")
	rec := httptest.NewRecorder()
	guarded(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, RoleAdmin, seen.Role)
	assert.Equal(t, "juliette", seen.Username, "check-auth's username wins over the stored one")
}

func TestAdminLoginPostRedirectsAndStoresSession(t *testing.T) {
	store := newStore()
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin-login", r.URL.Path)
		http.SetCookie(w, &http.Cookie{Name: "connect.sid", Value: "fresh"})
		jsonHandler(http.StatusOK, map[string]string{"message": "ok"})(w, r)
	}))
	h := &AuthHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t)}

	form := url.Values{"username": {"admin"}, "password": {"pw"}}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.AdminLoginPost(rec, r)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/orders", rec.Header().Get("Location"))
	assert.NotEmpty(t, rec.Header().Values("Set-Cookie"))
}

func TestLoginValidationFailureSkipsBackend(t *testing.T) {
	var backendCalls int32
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&backendCalls, 1)
	}))
	h := &AuthHandler{Backend: client, SessionStore: newStore(), Templates: loadTemplates(t)}

	form := url.Values{"username": {"admin"}} // password missing
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.AdminLoginPost(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Please fill in all fields")
	assert.Zero(t, atomic.LoadInt32(&backendCalls))
}

func TestLoginSurfacesBackendRejection(t *testing.T) {
	client := newBackend(t, jsonHandler(http.StatusUnauthorized, map[string]string{"message": "Invalid username or password"}))
	h := &AuthHandler{Backend: client, SessionStore: newStore(), Templates: loadTemplates(t)}

	form := url.Values{"username": {"admin"}, "password": {"wrong"}}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.AdminLoginPost(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")
	// The typed username is kept so the user only retypes the password.
	assert.Contains(t, rec.Body.String(), `value="admin"`)
}

func TestInventoryRendersStockStates(t *testing.T) {
	store := newStore()
	client := newBackend(t, jsonHandler(http.StatusOK, map[string]interface{}{
		"products": []map[string]interface{}{
			{"_id": "p1", "name": "Beanie", "price": 15, "stock": 3},
			{"_id": "p2", "name": "Scarf", "price": 25, "stock": 0},
		},
		"totalCount": 2,
	}))
	h := &ProductHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t), Searches: fetcher.New(0)}

	r := loggedInRequest(t, store, http.MethodGet, "/admin/inventory", nil, "sid=1", RoleAdmin, "admin")
	r = r.WithContext(withIdentity(r.Context(), Identity{Username: "admin", Role: RoleAdmin}))
	rec := httptest.NewRecorder()
	h.Inventory(rec, r)

	body := rec.Body.String()
	assert.Contains(t, body, "Beanie")
	assert.Contains(t, body, "Scarf")
	assert.Contains(t, body, "Out of Stock")
}

func TestInventoryEmptyPage(t *testing.T) {
	store := newStore()
	client := newBackend(t, jsonHandler(http.StatusOK, map[string]interface{}{
		"products":   []map[string]interface{}{},
		"totalCount": 0,
	}))
	h := &ProductHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t), Searches: fetcher.New(0)}

	r := loggedInRequest(t, store, http.MethodGet, "/admin/inventory", nil, "sid=1", RoleAdmin, "admin")
	r = r.WithContext(withIdentity(r.Context(), Identity{Username: "admin", Role: RoleAdmin}))
	rec := httptest.NewRecorder()
	h.Inventory(rec, r)

	assert.Contains(t, rec.Body.String(), "No products available")
}

func TestInventoryPartialRendersGridOnly(t *testing.T) {
	store := newStore()
	client := newBackend(t, jsonHandler(http.StatusOK, map[string]interface{}{
		"products":   []map[string]interface{}{{"_id": "p1", "name": "Beanie", "price": 15, "stock": 3}},
		"totalCount": 1,
	}))
	h := &ProductHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t), Searches: fetcher.New(0)}

	r := loggedInRequest(t, store, http.MethodGet, "/admin/inventory/partial?search=bea", nil, "sid=1", RoleAdmin, "admin")
	r = r.WithContext(withIdentity(r.Context(), Identity{Username: "admin", Role: RoleAdmin}))
	rec := httptest.NewRecorder()
	h.InventoryPartial(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Beanie")
	assert.NotContains(t, body, "<html", "fragment must not carry the page shell")
}

func TestCreateProductValidationSkipsBackend(t *testing.T) {
	var backendCalls int32
	store := newStore()
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&backendCalls, 1)
	}))
	h := &ProductHandler{
		Backend: client, SessionStore: store, Templates: loadTemplates(t),
		Searches: fetcher.New(0), UploadMode: config.UploadModeJSON,
	}

	cases := map[string]url.Values{
		"missing name":  {"price": {"9.99"}, "stock": {"5"}},
		"bad price":     {"name": {"Hat"}, "price": {"abc"}, "stock": {"5"}},
		"negative cost": {"name": {"Hat"}, "price": {"-1"}, "stock": {"5"}},
	}
	for name, form := range cases {
		t.Run(name, func(t *testing.T) {
			r := loggedInRequest(t, store, http.MethodPost, "/admin/inventory",
				strings.NewReader(form.Encode()), "sid=1", RoleAdmin, "admin")
			r = r.WithContext(withIdentity(r.Context(), Identity{Username: "admin", Role: RoleAdmin}))
			rec := httptest.NewRecorder()
			h.CreateProduct(rec, r)

			assert.Equal(t, http.StatusOK, rec.Code, "form re-renders in place")
			assert.Zero(t, atomic.LoadInt32(&backendCalls), "no create call on invalid input")
		})
	}
}

func TestCreateProductWithoutImagePostsJSON(t *testing.T) {
	store := newStore()
	var posted map[string]interface{}
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/product/addProduct", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		jsonHandler(http.StatusCreated, map[string]string{"_id": "p9"})(w, r)
	}))
	h := &ProductHandler{
		Backend: client, SessionStore: store, Templates: loadTemplates(t),
		Searches: fetcher.New(0), UploadMode: config.UploadModeJSON,
	}

	form := url.Values{"name": {"Hat"}, "price": {"12.5"}, "stock": {"0"}, "size": {"M"}}
	r := loggedInRequest(t, store, http.MethodPost, "/admin/inventory",
		strings.NewReader(form.Encode()), "sid=1", RoleAdmin, "admin")
	r = r.WithContext(withIdentity(r.Context(), Identity{Username: "admin", Role: RoleAdmin}))
	rec := httptest.NewRecorder()
	h.CreateProduct(rec, r)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/inventory", rec.Header().Get("Location"))
	assert.Equal(t, "Hat", posted["name"])
	assert.Equal(t, 12.5, posted["price"])
	assert.Equal(t, float64(0), posted["stock"], "zero stock is a valid create")
	assert.Equal(t, "M", posted["size"])
	assert.Nil(t, posted["color"])
}

func TestToggleDeliveredIssuesOnePut(t *testing.T) {
	store := newStore()
	var puts int32
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/order/updateOrder/o1", r.URL.Path)
		atomic.AddInt32(&puts, 1)
		jsonHandler(http.StatusOK, map[string]interface{}{
			"_id": "o1", "customerName": "Ali", "delivered": true,
			"productID": map[string]string{"_id": "p1", "name": "Beanie"},
		})(w, r)
	}))
	h := &OrderHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t), Searches: fetcher.New(0)}

	form := url.Values{"id": {"o1"}, "delivered": {"true"}}
	r := loggedInRequest(t, store, http.MethodPost, "/admin/orders/delivered",
		strings.NewReader(form.Encode()), "sid=1", RoleAdmin, "admin")
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec := httptest.NewRecorder()
	h.ToggleDelivered(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&puts))
	// The response is just the one patched card.
	body := rec.Body.String()
	assert.Contains(t, body, "Ali")
	assert.Contains(t, body, "Delivered")
	assert.NotContains(t, body, "<html")
}

func TestToggleDeliveredFailureReportsWithoutPatch(t *testing.T) {
	store := newStore()
	client := newBackend(t, jsonHandler(http.StatusBadGateway, map[string]string{"message": "backend unavailable"}))
	h := &OrderHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t), Searches: fetcher.New(0)}

	form := url.Values{"id": {"o1"}, "delivered": {"true"}}
	r := loggedInRequest(t, store, http.MethodPost, "/admin/orders/delivered",
		strings.NewReader(form.Encode()), "sid=1", RoleAdmin, "admin")
	r.Header.Set("X-Requested-With", "XMLHttpRequest")
	rec := httptest.NewRecorder()
	h.ToggleDelivered(rec, r)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "backend unavailable")
}

func TestToggleDeliveredWithoutAJAXRedirectsToLedger(t *testing.T) {
	store := newStore()
	client := newBackend(t, jsonHandler(http.StatusOK, map[string]interface{}{
		"_id": "o1", "delivered": true,
	}))
	h := &OrderHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t), Searches: fetcher.New(0)}

	form := url.Values{"id": {"o1"}, "delivered": {"true"}}
	r := loggedInRequest(t, store, http.MethodPost, "/admin/orders/delivered",
		strings.NewReader(form.Encode()), "sid=1", RoleAdmin, "admin")
	r = r.WithContext(withIdentity(r.Context(), Identity{Username: "admin", Role: RoleAdmin}))
	rec := httptest.NewRecorder()
	h.ToggleDelivered(rec, r)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	// No Referer header is sent; the redirect target is always the ledger.
	assert.Equal(t, "/admin/orders", rec.Header().Get("Location"))
}

func TestToggleDeliveredRequiresID(t *testing.T) {
	var backendCalls int32
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&backendCalls, 1)
	}))
	h := &OrderHandler{Backend: client, SessionStore: newStore(), Templates: loadTemplates(t), Searches: fetcher.New(0)}

	rec := httptest.NewRecorder()
	h.ToggleDelivered(rec, httptest.NewRequest(http.MethodPost, "/admin/orders/delivered", strings.NewReader("")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, atomic.LoadInt32(&backendCalls))
}

func TestCreateOrderValidationSkipsBackend(t *testing.T) {
	var backendCalls int32
	store := newStore()
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&backendCalls, 1)
	}))
	h := &OrderHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t), Searches: fetcher.New(0)}

	form := url.Values{"customer_name": {"Ali"}} // everything else missing
	r := loggedInRequest(t, store, http.MethodPost, "/admin/orders",
		strings.NewReader(form.Encode()), "sid=1", RoleAdmin, "admin")
	r = r.WithContext(withIdentity(r.Context(), Identity{Username: "admin", Role: RoleAdmin}))
	rec := httptest.NewRecorder()
	h.CreateOrder(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "All fields are required")
	assert.Zero(t, atomic.LoadInt32(&backendCalls))
}

func TestOrdersRendersWhatsAppLinks(t *testing.T) {
	store := newStore()
	client := newBackend(t, jsonHandler(http.StatusOK, map[string]interface{}{
		"orders": []map[string]interface{}{{
			"_id": "o1", "customerName": "Ali", "contact": "+92 300 1234567",
			"quantity": 2, "cod": 500, "address": "Lahore",
			"productID": map[string]string{"_id": "p1", "name": "Beanie"},
		}},
		"totalCount": 1,
	}))
	h := &OrderHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t), Searches: fetcher.New(0)}

	r := loggedInRequest(t, store, http.MethodGet, "/admin/orders", nil, "sid=1", RoleAdmin, "admin")
	r = r.WithContext(withIdentity(r.Context(), Identity{Username: "admin", Role: RoleAdmin}))
	rec := httptest.NewRecorder()
	h.Orders(rec, r)

	assert.Contains(t, rec.Body.String(), "https://wa.me/923001234567")
}

func TestMyOrdersShowsWorkerName(t *testing.T) {
	store := newStore()
	client := newBackend(t, jsonHandler(http.StatusOK, map[string]interface{}{
		"myOrders":   []map[string]interface{}{{"_id": "o1", "customerName": "Ali"}},
		"totalCount": 1,
		"workername": "hamza",
	}))
	h := &OrderHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t), Searches: fetcher.New(0)}

	r := loggedInRequest(t, store, http.MethodGet, "/worker/orders", nil, "sid=1", RoleWorker, "hamza")
	r = r.WithContext(withIdentity(r.Context(), Identity{Username: "hamza", Role: RoleWorker}))
	rec := httptest.NewRecorder()
	h.MyOrders(rec, r)

	body := rec.Body.String()
	assert.Contains(t, body, "hamza")
	assert.Contains(t, body, "Ali")
}

func TestDashboardAggregatesCounts(t *testing.T) {
	store := newStore()
	client := newBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/product/allProducts":
			jsonHandler(http.StatusOK, map[string]interface{}{"products": []interface{}{}, "totalCount": 42})(w, r)
		case "/order/allOrders":
			jsonHandler(http.StatusOK, map[string]interface{}{"orders": []interface{}{}, "totalCount": 7})(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	h := &DashboardHandler{Backend: client, SessionStore: store, Templates: loadTemplates(t)}

	r := loggedInRequest(t, store, http.MethodGet, "/admin", nil, "sid=1", RoleAdmin, "admin")
	r = r.WithContext(withIdentity(r.Context(), Identity{Username: "admin", Role: RoleAdmin}))
	rec := httptest.NewRecorder()
	h.Dashboard(rec, r)

	body := rec.Body.String()
	assert.Contains(t, body, "42")
	assert.Contains(t, body, "7")
}
