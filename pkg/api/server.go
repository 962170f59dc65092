package api

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kubetide/console/pkg/api/handlers"
	"github.com/kubetide/console/pkg/api/middleware"
	"github.com/kubetide/console/pkg/audit"
	"github.com/kubetide/console/pkg/auth"
	"github.com/kubetide/console/pkg/kube"
	"github.com/kubetide/console/pkg/metrics"
	"github.com/kubetide/console/pkg/store"
)

// Config holds server configuration
type Config struct {
	Port          int
	DataDir       string
	KubeconfigDir string
	JWTSecret     string
	FrontendURL   string
	StoreBackend  string
	LoadLabel     string
	LoadOnline    string
	LoadDone      string
}

// Server represents the API server
type Server struct {
	app        *fiber.App
	config     Config
	hub        *handlers.Hub
	watcher    *kube.DirWatcher
	metrics    *metrics.Metrics
	evaluator  *auth.Evaluator
	accounts   store.AccountStore
	creds      store.CredentialStore
	audit      *audit.Recorder
	resources  *kube.Service
	sqliteStore *store.SQLiteStore
}

// NewServer creates a new API server
func NewServer(cfg Config) (*Server, error) {
	m := metrics.New()

	accounts, creds, recorder, sqliteStore, err := buildStores(cfg, m)
	if err != nil {
		return nil, err
	}

	if err := accounts.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to seed accounts: %w", err)
	}

	evaluator := auth.NewEvaluator(accounts)
	resolver := kube.NewResolver(creds, m)
	resources := kube.NewService(resolver, kube.LabelConfig{
		Key:         cfg.LoadLabel,
		OnlineValue: cfg.LoadOnline,
		DoneValue:   cfg.LoadDone,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
	})

	hub := handlers.NewHub()
	go hub.Run()

	watcher := kube.NewDirWatcher(cfg.KubeconfigDir)
	watcher.SetOnChange(func() {
		hub.Broadcast("kubeconfig_changed", map[string]string{
			"message": "Kubeconfig directory updated",
		})
		log.Println("[api] broadcasted kubeconfig change to all clients")
	})
	if err := watcher.Start(); err != nil {
		log.Printf("[api] warning: kubeconfig watcher not started: %v", err)
	}

	server := &Server{
		app:         app,
		config:      cfg,
		hub:         hub,
		watcher:     watcher,
		metrics:     m,
		evaluator:   evaluator,
		accounts:    accounts,
		creds:       creds,
		audit:       recorder,
		resources:   resources,
		sqliteStore: sqliteStore,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server, nil
}

// buildStores wires the persistence backend selected by STORE_BACKEND. Both
// backends satisfy the same store contracts; the audit recorder doubles as
// the account store's login recorder.
func buildStores(cfg Config, m *metrics.Metrics) (store.AccountStore, store.CredentialStore, *audit.Recorder, *store.SQLiteStore, error) {
	switch cfg.StoreBackend {
	case "", "json":
		auditStore := store.NewAuditFile(filepath.Join(cfg.DataDir, "audit.json"))
		recorder := audit.NewRecorder(auditStore, m)
		accounts := store.NewAccountsFile(filepath.Join(cfg.DataDir, "accounts.json"), recorder)
		creds := store.NewCredentialsFile(filepath.Join(cfg.DataDir, "clusters.json"), cfg.KubeconfigDir)
		return accounts, creds, recorder, nil, nil
	case "sqlite":
		db, err := store.NewSQLiteStore(filepath.Join(cfg.DataDir, "console.db"), cfg.KubeconfigDir)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("failed to initialize store: %w", err)
		}
		recorder := audit.NewRecorder(db.Audit(), m)
		db.SetLoginRecorder(recorder)
		return db.Accounts(), db.Credentials(), recorder, db, nil
	default:
		return nil, nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New())

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(
		s.metrics.Registry, promhttp.HandlerOpts{},
	)))

	authHandler := handlers.NewAuthHandler(s.accounts, s.audit, s.config.JWTSecret)
	s.app.Post("/api/login", authHandler.Login)

	// Everything below requires a valid session token.
	api := s.app.Group("/api", middleware.JWTAuth(s.config.JWTSecret))

	api.Post("/logout", authHandler.Logout)
	api.Get("/current-user", authHandler.CurrentUser)

	clusterHandlers := handlers.NewClusterHandlers(s.creds, s.accounts, s.resources, s.audit)
	api.Get("/clusters", clusterHandlers.ListVisible)

	// Admin surface: accounts, cluster credentials and the audit log.
	admin := api.Group("/admin", middleware.RequirePermission(s.evaluator, "admin"))

	userHandlers := handlers.NewUserHandlers(s.accounts, s.audit)
	admin.Get("/users", userHandlers.ListUsers)
	admin.Post("/users", userHandlers.CreateUser)
	admin.Get("/users/:username", userHandlers.GetUser)
	admin.Put("/users/:username", userHandlers.UpdateUser)
	admin.Delete("/users/:username", userHandlers.DeleteUser)

	admin.Get("/clusters", clusterHandlers.ListClusters)
	admin.Post("/clusters", clusterHandlers.CreateCluster)
	admin.Get("/clusters/:name", clusterHandlers.GetCluster)
	admin.Put("/clusters/:name", clusterHandlers.UpdateCluster)
	admin.Delete("/clusters/:name", clusterHandlers.DeleteCluster)

	auditHandlers := handlers.NewAuditHandlers(s.audit)
	admin.Get("/logs", auditHandlers.ListLogs)

	// Per-cluster resource reads. Registered after the literal /api routes so
	// the :cluster parameter never shadows them.
	readGuard := middleware.RequirePermission(s.evaluator, "read")
	writeGuard := middleware.RequirePermission(s.evaluator, "write")

	resourceHandlers := handlers.NewResourceHandlers(s.resources)
	api.Get("/:cluster/namespaces", readGuard, resourceHandlers.ListNamespaces)
	api.Get("/:cluster/nodes", readGuard, resourceHandlers.ListNodes)
	api.Get("/:cluster/:namespace/workloads", readGuard, resourceHandlers.ListWorkloads)
	api.Get("/:cluster/:namespace/workloads/:type/:name/yaml", readGuard, resourceHandlers.GetWorkloadYAML)
	api.Get("/:cluster/:namespace/pods", readGuard, resourceHandlers.ListPods)
	api.Get("/:cluster/:namespace/services", readGuard, resourceHandlers.ListServices)
	api.Get("/:cluster/:namespace/services/:type/:name/yaml", readGuard, resourceHandlers.GetServiceYAML)
	api.Get("/:cluster/:namespace/configs", readGuard, resourceHandlers.ListConfigs)
	api.Get("/:cluster/:namespace/configs/:type/:name/yaml", readGuard, resourceHandlers.GetConfigYAML)
	api.Get("/:cluster/:namespace/storage", readGuard, resourceHandlers.ListStorage)
	api.Get("/:cluster/:namespace/storage/:type/:name/yaml", readGuard, resourceHandlers.GetStorageYAML)
	api.Get("/:cluster/:namespace/:workloadType/:name/pods", readGuard, resourceHandlers.ListWorkloadPods)

	trafficHandlers := handlers.NewTrafficHandlers(s.resources, s.audit, s.hub)
	api.Post("/:cluster/:namespace/pods/:pod/remove-load", writeGuard, trafficHandlers.RemoveLoad)
	api.Post("/:cluster/:namespace/pods/:pod/restore-traffic", writeGuard, trafficHandlers.RestoreTraffic)

	// WebSocket for real-time updates
	s.app.Use("/ws", middleware.JWTAuth(s.config.JWTSecret), middleware.WebSocketUpgrade())
	s.app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		s.hub.HandleConnection(c)
	}))
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("Starting server on %s (backend=%s)", addr, storeBackendName(s.config.StoreBackend))
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.hub.Close()
	s.watcher.Stop()
	if s.sqliteStore != nil {
		if err := s.sqliteStore.Close(); err != nil {
			log.Printf("Warning: store shutdown error: %v", err)
		}
	}
	return s.app.Shutdown()
}

func storeBackendName(backend string) string {
	if backend == "" {
		return "json"
	}
	return backend
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": message,
	})
}

// LoadConfigFromEnv loads configuration from environment variables
func LoadConfigFromEnv() Config {
	port := 8080
	if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", &port)
	}

	return Config{
		Port:          port,
		DataDir:       getEnvOrDefault("DATA_DIR", "./data"),
		KubeconfigDir: getEnvOrDefault("KUBECONFIG_DIR", "./kubeconfigs"),
		JWTSecret:     getEnvOrDefault("JWT_SECRET", "dev-secret-kubetide-console-2026"),
		FrontendURL:   getEnvOrDefault("FRONTEND_URL", "http://localhost:5174"),
		StoreBackend:  getEnvOrDefault("STORE_BACKEND", "json"),
		LoadLabel:     getEnvOrDefault("LOAD_LABEL", "load"),
		LoadOnline:    getEnvOrDefault("LOAD_ONLINE_VALUE", "online"),
		LoadDone:      getEnvOrDefault("LOAD_DONE_VALUE", "done"),
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
