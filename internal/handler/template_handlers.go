package handler

import (
	"encoding/json"
	"net/http"

	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/handler/dto"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/middleware"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/service"
)

// handleInstantiateTemplate expands a template into live tasks.
func (h *Handler) handleInstantiateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	id, ok := extractPathID(w, r)
	if !ok {
		return
	}

	var req dto.InstantiateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	taskable, ok := taskableFromRequest(w, req.TaskableType, req.TaskableID)
	if !ok {
		return
	}

	result, err := h.templateService.Instantiate(ctx, id, req.Variables, service.InstantiationContext{
		Taskable:          taskable,
		DepartmentID:      req.DepartmentID,
		DefaultAssigneeID: req.DefaultAssigneeID,
		CreatedBy:         actor.ID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := dto.InstantiationResponse{
		Tasks:               make([]dto.TaskResponse, 0, len(result.Tasks)),
		Dependencies:        make([]dto.DependencyDetail, 0, len(result.Dependencies)),
		TaskIDMap:           result.TaskIDMap,
		SkippedDependencies: result.SkippedDependencies,
	}
	for _, task := range result.Tasks {
		resp.Tasks = append(resp.Tasks, dto.ToTaskResponse(task))
	}
	for _, dep := range result.Dependencies {
		resp.Dependencies = append(resp.Dependencies, dto.ToDependencyDetail(dep))
	}

	respondJSON(w, http.StatusCreated, resp)
}

// CreateTemplateVersionRequest is the body for POST /templates/:id/versions.
type CreateTemplateVersionRequest struct {
	TemplateData domain.TemplateData       `json:"template_data"`
	Variables    []domain.TemplateVariable `json:"variables,omitempty"`
}

// handleCreateTemplateVersion publishes a new version of a template.
func (h *Handler) handleCreateTemplateVersion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	id, ok := extractPathID(w, r)
	if !ok {
		return
	}

	var req CreateTemplateVersionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if len(req.TemplateData.Tasks) == 0 {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "template_data.tasks must not be empty")
		return
	}

	template, err := h.templateService.CreateVersion(ctx, id, req.TemplateData, req.Variables, actor.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToTemplateResponse(template))
}
