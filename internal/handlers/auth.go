package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/nvelasco/stockdesk/internal/backend"
	"github.com/nvelasco/stockdesk/internal/forms"
)

// AuthHandler owns the login/registration screens and the session guard.
type AuthHandler struct {
	Backend      *backend.Client
	SessionStore *sessions.CookieStore
	Templates    *TemplateCache
	RegisterPath string // backend worker-register route, obfuscated per deployment
}

func (h *AuthHandler) AdminLoginGet(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, "login.html", "", "")
}

func (h *AuthHandler) AdminLoginPost(w http.ResponseWriter, r *http.Request) {
	f, err := forms.ParseLogin(r)
	if err != nil {
		// Local validation failure: no backend call is made.
		h.renderLogin(w, r, "login.html", err.Error(), r.FormValue("username"))
		return
	}

	tok, err := h.Backend.AdminLogin(r.Context(), backend.Credentials{Username: f.Username, Password: f.Password})
	if err != nil {
		slog.Error("Admin login failed", "username", f.Username, "error", err)
		h.renderLogin(w, r, "login.html", backend.ErrorMessage(err, "Login failed"), f.Username)
		return
	}

	h.completeLogin(w, r, tok, RoleAdmin, f.Username, "/admin/orders")
}

func (h *AuthHandler) WorkerLoginGet(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, "worker_login.html", "", "")
}

func (h *AuthHandler) WorkerLoginPost(w http.ResponseWriter, r *http.Request) {
	f, err := forms.ParseLogin(r)
	if err != nil {
		h.renderLogin(w, r, "worker_login.html", err.Error(), r.FormValue("username"))
		return
	}

	tok, err := h.Backend.WorkerLogin(r.Context(), backend.Credentials{Username: f.Username, Password: f.Password})
	if err != nil {
		slog.Error("Worker login failed", "username", f.Username, "error", err)
		h.renderLogin(w, r, "worker_login.html", backend.ErrorMessage(err, "Login failed"), f.Username)
		return
	}

	h.completeLogin(w, r, tok, RoleWorker, f.Username, "/worker/orders")
}

func (h *AuthHandler) WorkerRegisterGet(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, "worker_register.html", "", "")
}

func (h *AuthHandler) WorkerRegisterPost(w http.ResponseWriter, r *http.Request) {
	f, err := forms.ParseRegister(r)
	if err != nil {
		h.renderLogin(w, r, "worker_register.html", err.Error(), r.FormValue("username"))
		return
	}

	err = h.Backend.RegisterWorker(r.Context(), h.RegisterPath, backend.Credentials{Username: f.Username, Password: f.Password})
	if err != nil {
		slog.Error("Worker registration failed", "username", f.Username, "error", err)
		h.renderLogin(w, r, "worker_register.html", backend.ErrorMessage(err, "Registration failed"), f.Username)
		return
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	session.AddFlash(FlashMessage{Type: "success", Message: "Registration successful! Please log in."})
	session.Save(r, w)
	http.Redirect(w, r, "/worker-login", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)
	_, role := sessionToken(session)
	clearLogin(session)
	session.Options.MaxAge = -1 // Expire immediately
	session.Save(r, w)
	http.Redirect(w, r, loginPath(role), http.StatusSeeOther)
}

func (h *AuthHandler) completeLogin(w http.ResponseWriter, r *http.Request, tok backend.Token, role, username, target string) {
	session, _ := h.SessionStore.Get(r, sessionName)
	saveLogin(session, tok, role, username)
	session.AddFlash(FlashMessage{Type: "success", Message: "Login successful! Welcome, " + username + "."})

	// CRITICAL: Save session and check for errors
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	slog.Info("Login successful", "username", username, "role", role)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, page, errMsg, username string) {
	session, _ := h.SessionStore.Get(r, sessionName)
	data := map[string]interface{}{
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
		"Error":     errMsg,
		"Username":  username,
	}
	session.Save(r, w)
	h.Templates.Render(w, page, data)
}

// RequireAuth gates a protected view. The stored backend cookie is validated
// against /check-auth on every request, using the request's own context so an
// abandoned page load cancels the check. Nothing protected is written before
// the check resolves.
func (h *AuthHandler) RequireAuth(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := h.SessionStore.Get(r, sessionName)
		tok, sessRole := sessionToken(session)
		username, _ := session.Values["username"].(string)

		if tok == "" || (role != "" && sessRole != role) {
			http.Redirect(w, r, loginPath(role), http.StatusSeeOther)
			return
		}

		status, err := h.Backend.CheckAuth(r.Context(), tok)
		if err != nil {
			if r.Context().Err() != nil {
				// Request abandoned mid-check; commit nothing.
				return
			}
			slog.Error("Session check failed", "error", err)
			clearLogin(session)
			session.Save(r, w)
			http.Redirect(w, r, loginPath(role), http.StatusSeeOther)
			return
		}
		if !status.Authenticated {
			clearLogin(session)
			session.Save(r, w)
			http.Redirect(w, r, loginPath(role), http.StatusSeeOther)
			return
		}

		if name := status.Username(); name != "" {
			username = name
		}
		ctx := withIdentity(r.Context(), Identity{Username: username, Role: sessRole})
		next(w, r.WithContext(ctx))
	}
}
