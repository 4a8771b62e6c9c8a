package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/config"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/handler/dto"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/middleware"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/service"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	pool              *pgxpool.Pool
	taskService       *service.TaskService
	statusService     *service.StatusService
	hierarchyService  *service.HierarchyService
	assignmentService *service.AssignmentService
	dependencyService *service.DependencyService
	templateService   *service.TemplateService
	taskRepo          *repository.TaskRepository
	historyRepo       *repository.TaskHistoryRepository
	depRepo           *repository.DependencyRepository
	authMiddleware    *middleware.AuthMiddleware
}

// New creates a new Handler instance with all dependencies.
func New(pool *pgxpool.Pool) *Handler {
	taskRepo := repository.NewTaskRepository(pool)
	historyRepo := repository.NewTaskHistoryRepository(pool)
	assignRepo := repository.NewAssignmentRepository(pool)
	depRepo := repository.NewDependencyRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	enquiryRepo := repository.NewEnquiryRepository(pool)

	registry := domain.DefaultTaskableRegistry()
	notifier := service.LogNotifier{}

	projection := service.NewProjectionService(taskRepo, enquiryRepo, registry, config.DefaultEnquiryProjection())
	hierarchy := service.NewHierarchyService(pool, taskRepo, historyRepo, projection)
	status := service.NewStatusService(pool, taskRepo, historyRepo, config.DefaultTransitions(), hierarchy, projection, notifier)
	tasks := service.NewTaskService(pool, taskRepo, historyRepo, assignRepo, registry, notifier)
	assignments := service.NewAssignmentService(pool, taskRepo, assignRepo, historyRepo, userRepo, notifier)
	dependencies := service.NewDependencyService(pool, taskRepo, depRepo, historyRepo)
	templates := service.NewTemplateService(pool, taskRepo, depRepo, assignRepo, historyRepo, templateRepo, registry)

	authMiddleware := middleware.NewAuthMiddleware(userRepo)

	return &Handler{
		pool:              pool,
		taskService:       tasks,
		statusService:     status,
		hierarchyService:  hierarchy,
		assignmentService: assignments,
		dependencyService: dependencies,
		templateService:   templates,
		taskRepo:          taskRepo,
		historyRepo:       historyRepo,
		depRepo:           depRepo,
		authMiddleware:    authMiddleware,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	auth := h.authMiddleware.Authenticate

	mux.Handle("GET /api/v1/tasks", auth(http.HandlerFunc(h.handleListTasks)))
	mux.Handle("POST /api/v1/tasks", auth(http.HandlerFunc(h.handleCreateTask)))
	mux.Handle("GET /api/v1/tasks/{id}", auth(http.HandlerFunc(h.handleGetTask)))
	mux.Handle("PATCH /api/v1/tasks/{id}", auth(http.HandlerFunc(h.handleUpdateTask)))
	mux.Handle("DELETE /api/v1/tasks/{id}", auth(http.HandlerFunc(h.handleDeleteTask)))
	mux.Handle("PATCH /api/v1/tasks/{id}/status", auth(http.HandlerFunc(h.handleTransitionStatus)))
	mux.Handle("POST /api/v1/tasks/{id}/assign", auth(http.HandlerFunc(h.handleAssignTask)))
	mux.Handle("POST /api/v1/tasks/{id}/reassign", auth(http.HandlerFunc(h.handleReassignTask)))
	mux.Handle("POST /api/v1/tasks/{id}/move", auth(http.HandlerFunc(h.handleMoveTask)))
	mux.Handle("GET /api/v1/tasks/{id}/tree", auth(http.HandlerFunc(h.handleGetTree)))
	mux.Handle("GET /api/v1/tasks/{id}/affected", auth(http.HandlerFunc(h.handleGetAffected)))
	mux.Handle("POST /api/v1/tasks/{id}/dependencies", auth(http.HandlerFunc(h.handleAddDependency)))
	mux.Handle("POST /api/v1/templates/{id}/instantiate", auth(http.HandlerFunc(h.handleInstantiateTemplate)))
	mux.Handle("POST /api/v1/templates/{id}/versions", auth(http.HandlerFunc(h.handleCreateTemplateVersion)))
}

// handleHealthz returns 200 OK if the database is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.pool.Ping(ctx); err != nil {
		slog.Error("database health check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Ping checks if the database is reachable (used for testing).
func (h *Handler) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondDomainError maps a domain error and writes the response.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapDomainError(err)
	respondError(w, status, code, message)
}

// extractPathID extracts and validates a UUID path parameter.
// Returns (id, true) if valid, ("", false) if invalid (error already sent).
func extractPathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "id is required")
		return "", false
	}

	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "id must be a valid UUID")
		return "", false
	}

	return id, true
}
