package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dhruvshah/sunbeam/internal/archive"
	"github.com/dhruvshah/sunbeam/internal/backup"
	"github.com/dhruvshah/sunbeam/internal/handler"
	"github.com/dhruvshah/sunbeam/internal/middleware"
	"github.com/dhruvshah/sunbeam/internal/storage"
	"github.com/dhruvshah/sunbeam/internal/store"
	ws "github.com/dhruvshah/sunbeam/internal/websocket"
)

type Server struct {
	db         *sql.DB
	hub        *ws.Hub
	customerH  *handler.CustomerHandler
	stepH      *handler.StepDataHandler
	backupH    *handler.BackupHandler
	workspaceH *handler.WorkspaceHandler
	logger     *slog.Logger
}

// New wires stores, the storage adapter, and the backup orchestrator into an
// HTTP server.
func New(db *sql.DB, objectStore storage.ObjectStore, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	customerStore := store.NewCustomerStore(db)
	stepStore := store.NewStepDataStore(db)
	logStore := store.NewBackupLogStore(db)

	accountant := storage.NewAccountant(objectStore, logger.With("component", "storage"))
	builder := archive.NewBuilder(objectStore, logger.With("component", "archive"))

	backupSvc := backup.NewService(
		customerStore, stepStore, logStore, builder, accountant,
		func(workspaceID, customerID int64, action string, extra map[string]any) {
			hub.Publish(workspaceID, ws.Event{Action: action, CustomerID: customerID, Extra: extra})
		},
		logger.With("component", "backup"),
	)

	return &Server{
		db:         db,
		hub:        hub,
		customerH:  handler.NewCustomerHandler(customerStore, logger.With("component", "customer")),
		stepH:      handler.NewStepDataHandler(stepStore, customerStore, logger.With("component", "step")),
		backupH:    handler.NewBackupHandler(backupSvc, logStore, logger.With("component", "backup_handler")),
		workspaceH: handler.NewWorkspaceHandler(store.NewWorkspaceStore(db), store.NewUserStore(db), logger.With("component", "workspace")),
		logger:     logger,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.registerAPIRoutes(mux)
	mux.Handle("GET /ws", middleware.RequireWorkspace(
		ws.Handler(s.hub, middleware.WorkspaceID, s.logger.With("component", "websocket")),
	))

	h := middleware.Metrics(mux)
	return middleware.RequestLogger(s.logger.With("component", "http"))(h)
}

// registerAPIRoutes wires every tenant-scoped route. Routes go on the root
// mux so the metrics middleware sees the matched pattern.
func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	api := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireWorkspace(h))
	}

	api("GET /api/me", s.workspaceH.Me)

	// Customer pipeline
	api("POST /api/customers", s.customerH.Create)
	api("GET /api/customers", s.customerH.List)
	api("GET /api/customers/{id}", s.customerH.Get)
	api("PUT /api/customers/{id}", s.customerH.Update)
	api("POST /api/customers/{id}/advance", s.customerH.AdvanceStep)

	// Step data
	api("GET /api/customers/{id}/steps", s.stepH.List)
	api("PUT /api/customers/{id}/steps/{step}", s.stepH.Upsert)

	// Backup and storage reclamation
	api("GET /api/customers/{id}/backup/usage", s.backupH.Usage)
	api("POST /api/customers/{id}/backup/download", s.backupH.Download)
	api("POST /api/customers/{id}/backup/cleanup", s.backupH.Cleanup)
	api("GET /api/backup-logs", s.backupH.History)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
