package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/nvelasco/stockdesk/internal/backend"
	"github.com/nvelasco/stockdesk/internal/config"
	"github.com/nvelasco/stockdesk/internal/fetcher"
	"github.com/nvelasco/stockdesk/internal/handlers"
	"github.com/nvelasco/stockdesk/internal/uploader"
)

func main() {
	// Configure slog to output DEBUG level messages
	// This should be done as early as possible in main
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	// Using TextHandler for console readability; for production JSONHandler might be preferred.
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Backend API client
	api := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)

	// 3. Session Setup
	sessionStore := sessions.NewCookieStore(cfg.SessionKey)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.Secure = cfg.CookieSecure // Configurable for production
	sessionStore.Options.SameSite = http.SameSiteLaxMode
	sessionStore.Options.Path = "/"
	if cfg.CookieDomain != "" {
		sessionStore.Options.Domain = cfg.CookieDomain
	}

	// 4. Init Templates
	templates := handlers.NewTemplateCache()
	if err := templates.Load("templates"); err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	// Search coalescing: one debounce window shared by the live-search endpoints.
	searches := fetcher.New(cfg.SearchDebounce)

	var uploads uploader.Uploader
	if cfg.UploadMode == config.UploadModeImageHost {
		uploads = uploader.NewHost(cfg.ImageHostURL, cfg.CloudName, cfg.UploadPreset)
	}

	// 5. Setup Handlers
	authHandler := &handlers.AuthHandler{
		Backend:      api,
		SessionStore: sessionStore,
		Templates:    templates,
		RegisterPath: cfg.WorkerRegisterPath,
	}
	productHandler := &handlers.ProductHandler{
		Backend:      api,
		SessionStore: sessionStore,
		Templates:    templates,
		Searches:     searches,
		Uploads:      uploads,
		UploadMode:   cfg.UploadMode,
	}
	orderHandler := &handlers.OrderHandler{
		Backend:      api,
		SessionStore: sessionStore,
		Templates:    templates,
		Searches:     searches,
	}
	dashboardHandler := &handlers.DashboardHandler{
		Backend:      api,
		SessionStore: sessionStore,
		Templates:    templates,
	}

	mux := http.NewServeMux()

	// Static Files
	fileServer := http.FileServer(http.Dir("./static"))
	mux.Handle("/static/", http.StripPrefix("/static", fileServer))

	// Rate Limiter for credential endpoints
	rateLimiter := handlers.NewRateLimiter(5 * time.Second)

	// Public Routes
	mux.HandleFunc("/{$}", authHandler.AdminLoginGet)
	mux.HandleFunc("POST /{$}", rateLimiter.Middleware(authHandler.AdminLoginPost))
	mux.HandleFunc("/worker-login", authHandler.WorkerLoginGet)
	mux.HandleFunc("POST /worker-login", rateLimiter.Middleware(authHandler.WorkerLoginPost))
	mux.HandleFunc("/worker-register", authHandler.WorkerRegisterGet)
	mux.HandleFunc("POST /worker-register", rateLimiter.Middleware(authHandler.WorkerRegisterPost))
	mux.HandleFunc("/logout", authHandler.Logout)

	// Admin Routes
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return authHandler.RequireAuth(handlers.RoleAdmin, next)
	}
	mux.HandleFunc("/admin", admin(dashboardHandler.Dashboard))
	mux.HandleFunc("/admin/orders", admin(orderHandler.Orders))
	mux.HandleFunc("/admin/orders/partial", admin(orderHandler.OrdersPartial))
	mux.HandleFunc("POST /admin/orders/delivered", admin(orderHandler.ToggleDelivered))
	mux.HandleFunc("/admin/orders/new", admin(orderHandler.AddOrderForm))
	mux.HandleFunc("POST /admin/orders", admin(orderHandler.CreateOrder))
	mux.HandleFunc("/admin/inventory", admin(productHandler.Inventory))
	mux.HandleFunc("/admin/inventory/partial", admin(productHandler.InventoryPartial))
	mux.HandleFunc("/admin/inventory/new", admin(productHandler.AddProductForm))
	mux.HandleFunc("POST /admin/inventory", admin(productHandler.CreateProduct))

	// Worker Routes
	worker := func(next http.HandlerFunc) http.HandlerFunc {
		return authHandler.RequireAuth(handlers.RoleWorker, next)
	}
	mux.HandleFunc("/worker/orders", worker(orderHandler.MyOrders))
	mux.HandleFunc("/worker/orders/new", worker(orderHandler.AddOrderForm))
	mux.HandleFunc("POST /worker/orders", worker(orderHandler.CreateOrder))
	mux.HandleFunc("/worker/inventory", worker(productHandler.Inventory))
	mux.HandleFunc("/worker/inventory/partial", worker(productHandler.InventoryPartial))

	// 6. Middleware Setup
	CSRF := csrf.Protect(
		cfg.CSRFKey,
		csrf.Secure(cfg.CookieSecure), // Configurable for production
		csrf.TrustedOrigins([]string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"}),
	)

	// Chain: Logger -> Security Headers -> CSRF -> Mux
	handler := handlers.LoggingMiddleware(
		handlers.SecurityHeadersMiddleware(
			CSRF(mux),
		),
	)

	// 7. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Console starting", "port", cfg.Port, "backend", cfg.BackendURL, "upload_mode", cfg.UploadMode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	slog.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}
