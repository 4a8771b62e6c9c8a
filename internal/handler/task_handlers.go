package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/handler/dto"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/middleware"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/service"
)

const defaultListLimit = 50

// handleCreateTask creates a task. When parent_task_id is present the task is
// created as a subtask and inherits context from its parent.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	actor, err := middleware.GetUserFromContext(ctx)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	var req dto.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	if req.Title == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "title is required")
		return
	}

	taskable, ok := taskableFromRequest(w, req.TaskableType, req.TaskableID)
	if !ok {
		return
	}

	var task *domain.Task
	if req.ParentTaskID != nil {
		task, err = h.hierarchyService.CreateSubtask(ctx, *req.ParentTaskID, service.CreateSubtaskParams{
			Title:          req.Title,
			Description:    req.Description,
			TaskType:       req.TaskType,
			Priority:       domain.TaskPriority(req.Priority),
			DepartmentID:   req.DepartmentID,
			Taskable:       taskable,
			DueDate:        req.DueDate,
			EstimatedHours: req.EstimatedHours,
			Tags:           req.Tags,
			Metadata:       req.Metadata,
		}, actor.ID)
	} else {
		task, err = h.taskService.CreateTask(ctx, service.CreateTaskParams{
			Title:          req.Title,
			Description:    req.Description,
			TaskType:       req.TaskType,
			Priority:       domain.TaskPriority(req.Priority),
			Taskable:       taskable,
			DepartmentID:   req.DepartmentID,
			CreatedBy:      actor.ID,
			AssigneeID:     req.AssigneeID,
			DueDate:        req.DueDate,
			EstimatedHours: req.EstimatedHours,
			Tags:           req.Tags,
			Metadata:       req.Metadata,
		})
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToTaskResponse(task))
}

// handleGetTask returns a task with its audit history and dependency edges.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := extractPathID(w, r)
	if !ok {
		return
	}

	task, err := h.taskRepo.GetByID(ctx, id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	history, err := h.historyRepo.GetByTaskID(ctx, id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	deps, err := h.depRepo.GetByTaskID(ctx, id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := dto.TaskDetailResponse{
		Task:    dto.ToTaskResponse(task),
		History: make([]dto.TaskHistoryInfo, 0, len(history)),
		Deps:    make([]dto.DependencyDetail, 0, len(deps)),
	}
	for _, entry := range history {
		resp.History = append(resp.History, dto.ToTaskHistoryInfo(entry))
	}
	for _, dep := range deps {
		resp.Deps = append(resp.Deps, dto.ToDependencyDetail(dep))
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleListTasks returns tasks matching the query filters.
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filters := repository.ListFilters{
		Limit:    defaultListLimit,
		RootOnly: q.Get("root_only") == "true",
	}

	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := domain.TaskStatus(strings.TrimSpace(s))
			if !status.IsValid() {
				respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "unknown status: "+string(status))
				return
			}
			filters.Status = append(filters.Status, status)
		}
	}

	if tt, tid := q.Get("taskable_type"), q.Get("taskable_id"); tt != "" || tid != "" {
		taskable, ok := taskableFromRequest(w, tt, tid)
		if !ok {
			return
		}
		filters.Taskable = taskable
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer")
			return
		}
		filters.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "offset must be a non-negative integer")
			return
		}
		filters.Offset = offset
	}

	tasks, err := h.taskRepo.List(ctx, filters)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := dto.TasksListResponse{
		Tasks:  make([]dto.TaskResponse, 0, len(tasks)),
		Total:  len(tasks),
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, dto.ToTaskResponse(task))
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleUpdateTask applies partial attribute updates.
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
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

	var req dto.UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	params := service.UpdateTaskParams{
		Title:          req.Title,
		Description:    req.Description,
		TaskType:       req.TaskType,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		Tags:           req.Tags,
		Metadata:       req.Metadata,
	}
	if req.Priority != nil {
		priority := domain.TaskPriority(*req.Priority)
		params.Priority = &priority
	}

	task, err := h.taskService.UpdateTask(ctx, id, params, actor.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// handleDeleteTask soft-deletes a task.
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
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

	if err := h.taskService.DeleteTask(ctx, id, actor.ID); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleTransitionStatus moves a task through the status state machine.
func (h *Handler) handleTransitionStatus(w http.ResponseWriter, r *http.Request) {
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

	var req dto.TransitionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "status is required")
		return
	}

	task, err := h.statusService.Transition(ctx, id, domain.TaskStatus(req.Status), actor.ID, req.Notes)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// handleAssignTask assigns one or more users to a task.
func (h *Handler) handleAssignTask(w http.ResponseWriter, r *http.Request) {
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

	var req dto.AssignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if len(req.UserIDs) == 0 {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "user_ids is required")
		return
	}

	task, err := h.assignmentService.Assign(ctx, id, service.AssignParams{
		UserIDs:         req.UserIDs,
		Role:            req.Role,
		ReplaceExisting: req.ReplaceExisting,
		DueDate:         req.DueDate,
	}, actor.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// handleReassignTask promotes a new primary assignee.
func (h *Handler) handleReassignTask(w http.ResponseWriter, r *http.Request) {
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

	var req dto.ReassignTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "user_id is required")
		return
	}

	task, err := h.assignmentService.Reassign(ctx, id, req.UserID, actor.ID, req.Reason)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// handleMoveTask reparents a task within the hierarchy.
func (h *Handler) handleMoveTask(w http.ResponseWriter, r *http.Request) {
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

	var req dto.MoveTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}

	task, err := h.hierarchyService.MoveSubtask(ctx, id, req.NewParentID, actor.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskResponse(task))
}

// handleGetTree returns the full subtree rooted at a task.
func (h *Handler) handleGetTree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := extractPathID(w, r)
	if !ok {
		return
	}

	tree, err := h.hierarchyService.GetHierarchyTree(ctx, id)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, tree)
}

// handleGetAffected previews which tasks a status change would touch.
func (h *Handler) handleGetAffected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := extractPathID(w, r)
	if !ok {
		return
	}

	status := domain.TaskStatus(r.URL.Query().Get("status"))
	if !status.IsValid() {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "status query parameter is required")
		return
	}

	affected, err := h.dependencyService.GetAffectedTasks(ctx, id, status)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	resp := dto.AffectedTasksResponse{
		Dependents: make([]dto.TaskResponse, 0, len(affected.Dependents)),
		Parents:    make([]dto.TaskResponse, 0, len(affected.Parents)),
		Subtasks:   make([]dto.TaskResponse, 0, len(affected.Subtasks)),
	}
	for _, t := range affected.Dependents {
		resp.Dependents = append(resp.Dependents, dto.ToTaskResponse(t))
	}
	for _, t := range affected.Parents {
		resp.Parents = append(resp.Parents, dto.ToTaskResponse(t))
	}
	for _, t := range affected.Subtasks {
		resp.Subtasks = append(resp.Subtasks, dto.ToTaskResponse(t))
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleAddDependency adds a dependency edge to a task.
func (h *Handler) handleAddDependency(w http.ResponseWriter, r *http.Request) {
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

	var req dto.AddDependencyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if req.DependsOnTaskID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "depends_on_task_id is required")
		return
	}

	dep, err := h.dependencyService.AddDependency(ctx, id, req.DependsOnTaskID, domain.DependencyType(req.DependencyType), actor.ID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToDependencyDetail(dep))
}

// taskableFromRequest validates the taskable pair from a request. Both fields
// must be present together or absent together.
func taskableFromRequest(w http.ResponseWriter, taskableType, taskableID string) (*domain.TaskableRef, bool) {
	if taskableType == "" && taskableID == "" {
		return nil, true
	}
	if taskableType == "" || taskableID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "taskable_type and taskable_id must be provided together")
		return nil, false
	}
	return &domain.TaskableRef{
		Type: domain.TaskableType(taskableType),
		ID:   taskableID,
	}, true
}
