package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
)

// TemplateService expands versioned task templates into concrete tasks,
// subtask links and dependency edges in one atomic operation.
type TemplateService struct {
	pool         *pgxpool.Pool
	taskRepo     *repository.TaskRepository
	depRepo      *repository.DependencyRepository
	assignRepo   *repository.AssignmentRepository
	historyRepo  *repository.TaskHistoryRepository
	templateRepo *repository.TemplateRepository
	registry     *domain.TaskableRegistry
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(
	pool *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	depRepo *repository.DependencyRepository,
	assignRepo *repository.AssignmentRepository,
	historyRepo *repository.TaskHistoryRepository,
	templateRepo *repository.TemplateRepository,
	registry *domain.TaskableRegistry,
) *TemplateService {
	return &TemplateService{
		pool:         pool,
		taskRepo:     taskRepo,
		depRepo:      depRepo,
		assignRepo:   assignRepo,
		historyRepo:  historyRepo,
		templateRepo: templateRepo,
		registry:     registry,
	}
}

// InstantiationContext carries the target context merged into every task
// created from a template.
type InstantiationContext struct {
	Taskable          *domain.TaskableRef
	DepartmentID      *string
	DefaultAssigneeID *string
	CreatedBy         string
}

// InstantiationResult reports what an instantiation produced. Dependency
// definitions whose endpoints were not both resolvable are skipped, not
// errored; SkippedDependencies makes that observable.
type InstantiationResult struct {
	Tasks               []*domain.Task
	Dependencies        []*domain.TaskDependency
	TaskIDMap           map[string]string
	SkippedDependencies int
}

// Instantiate expands a template into tasks, parent links and dependency
// edges. The whole expansion is one transaction: any failure rolls back every
// row written for this instantiation.
func (s *TemplateService) Instantiate(
	ctx context.Context,
	templateID string,
	variables map[string]string,
	ictx InstantiationContext,
) (*InstantiationResult, error) {
	if ictx.CreatedBy == "" {
		return nil, domain.ErrMissingCreator
	}
	if ictx.Taskable != nil {
		if _, err := s.registry.Resolve(ictx.Taskable.Type); err != nil {
			return nil, err
		}
	}

	tmpl, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tmpl.IsActive {
		return nil, fmt.Errorf("%w: template %s (version %d)", domain.ErrInactiveTemplate, tmpl.ID, tmpl.Version)
	}
	for _, v := range tmpl.Variables {
		if !v.Required {
			continue
		}
		if _, ok := variables[v.Name]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrMissingVariable, v.Name)
		}
	}
	if err := validateTemplateGraph(tmpl.TemplateData); err != nil {
		return nil, fmt.Errorf("template %s: %w", tmpl.ID, err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	now := time.Now()
	result := &InstantiationResult{
		TaskIDMap: make(map[string]string, len(tmpl.TemplateData.Tasks)),
	}

	// Pass 1: create tasks with substituted titles and descriptions.
	for _, def := range tmpl.TemplateData.Tasks {
		dueDate := def.DueDate
		if dueDate == nil && def.DueDateOffsetDays != nil {
			d := now.AddDate(0, 0, *def.DueDateOffsetDays)
			dueDate = &d
		}

		task := &domain.Task{
			Title:          SubstituteVariables(def.Title, variables),
			Description:    SubstituteVariables(def.Description, variables),
			TaskType:       def.TaskType,
			Status:         domain.TaskStatusPending,
			Priority:       def.Priority,
			Taskable:       ictx.Taskable,
			DepartmentID:   ictx.DepartmentID,
			CreatedBy:      ictx.CreatedBy,
			AssignedUserID: ictx.DefaultAssigneeID,
			DueDate:        dueDate,
			EstimatedHours: def.EstimatedHours,
			Metadata: map[string]any{
				"template_id":      tmpl.ID,
				"template_version": tmpl.Version,
				"template_task_id": def.ID,
			},
		}

		if _, err := s.taskRepo.Create(ctx, tx, task); err != nil {
			return nil, err
		}

		if ictx.DefaultAssigneeID != nil {
			assignment := &domain.TaskAssignment{
				TaskID:     task.ID,
				UserID:     *ictx.DefaultAssigneeID,
				AssignedBy: ictx.CreatedBy,
				IsPrimary:  true,
			}
			if err := s.assignRepo.Create(ctx, tx, assignment); err != nil {
				return nil, err
			}
		}

		entry := &domain.TaskHistory{
			TaskID:   task.ID,
			UserID:   ictx.CreatedBy,
			Action:   domain.HistoryActionCreated,
			Metadata: map[string]any{"template_id": tmpl.ID},
		}
		if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("create history: %w", err)
		}

		result.Tasks = append(result.Tasks, task)
		result.TaskIDMap[def.ID] = task.ID
	}

	// Pass 2: resolve parent links through the id map.
	for _, def := range tmpl.TemplateData.Tasks {
		if def.ParentID == "" {
			continue
		}
		parentID, ok := result.TaskIDMap[def.ParentID]
		if !ok {
			continue
		}
		childID := result.TaskIDMap[def.ID]
		if err := s.taskRepo.UpdateParent(ctx, tx, childID, &parentID); err != nil {
			return nil, err
		}
		for _, t := range result.Tasks {
			if t.ID == childID {
				t.ParentTaskID = &parentID
			}
		}
		if err := s.taskRepo.UpdateCompletionPercentage(ctx, tx, parentID, 0); err != nil {
			return nil, err
		}
	}

	// Pass 3: resolve dependency edges; definitions with an unresolved
	// endpoint are dropped, and counted.
	for _, def := range tmpl.TemplateData.Dependencies {
		fromID, okFrom := result.TaskIDMap[def.TaskID]
		toID, okTo := result.TaskIDMap[def.DependsOnTaskID]
		if !okFrom || !okTo {
			result.SkippedDependencies++
			continue
		}
		dep := &domain.TaskDependency{
			TaskID:          fromID,
			DependsOnTaskID: toID,
			DependencyType:  def.Type,
		}
		if err := s.depRepo.Create(ctx, tx, dep); err != nil {
			return nil, err
		}
		result.Dependencies = append(result.Dependencies, dep)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	slog.Info("template instantiated",
		"template_id", tmpl.ID,
		"template_version", tmpl.Version,
		"tasks_created", len(result.Tasks),
		"dependencies_created", len(result.Dependencies),
		"dependencies_skipped", result.SkippedDependencies,
	)

	return result, nil
}

// CreateVersion publishes a new immutable version of a template linked to its
// predecessor. Deactivating older versions is left to the caller.
func (s *TemplateService) CreateVersion(
	ctx context.Context,
	templateID string,
	data domain.TemplateData,
	variables []domain.TemplateVariable,
	actorID string,
) (*domain.TaskTemplate, error) {
	prev, err := s.templateRepo.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := validateTemplateGraph(data); err != nil {
		return nil, err
	}

	next := &domain.TaskTemplate{
		Name:              prev.Name,
		Category:          prev.Category,
		Version:           prev.Version + 1,
		PreviousVersionID: &prev.ID,
		IsActive:          true,
		TemplateData:      data,
		Variables:         variables,
		CreatedBy:         actorID,
	}

	if _, err := s.templateRepo.Create(ctx, next); err != nil {
		return nil, err
	}

	slog.Info("template version created",
		"template_id", next.ID,
		"previous_version_id", prev.ID,
		"version", next.Version,
	)

	return next, nil
}

// validateTemplateGraph rejects definitions whose parent links or dependency
// edges form a cycle among the in-template ids. Runs before any row is
// written, so a bad template never reaches the database. Edges with an
// endpoint outside the definition set are ignored here; instantiation skips
// them.
func validateTemplateGraph(data domain.TemplateData) error {
	defined := make(map[string]bool, len(data.Tasks))
	for _, def := range data.Tasks {
		defined[def.ID] = true
	}

	parent := make(map[string]string, len(data.Tasks))
	for _, def := range data.Tasks {
		if def.ParentID != "" && defined[def.ParentID] {
			parent[def.ID] = def.ParentID
		}
	}
	for id := range parent {
		seen := map[string]bool{id: true}
		for cur, ok := parent[id]; ok; cur, ok = parent[cur] {
			if seen[cur] {
				return fmt.Errorf("%w: parent chain through template task %q", domain.ErrCircularReference, cur)
			}
			seen[cur] = true
		}
	}

	adjacent := make(map[string][]string)
	for _, dep := range data.Dependencies {
		if dep.TaskID == dep.DependsOnTaskID {
			return fmt.Errorf("%w: template task %q depends on itself", domain.ErrCyclicDependency, dep.TaskID)
		}
		if defined[dep.TaskID] && defined[dep.DependsOnTaskID] {
			adjacent[dep.TaskID] = append(adjacent[dep.TaskID], dep.DependsOnTaskID)
		}
	}
	const unvisited, walking, done = 0, 1, 2
	state := make(map[string]int, len(adjacent))
	var walk func(id string) error
	walk = func(id string) error {
		state[id] = walking
		for _, next := range adjacent[id] {
			switch state[next] {
			case walking:
				return fmt.Errorf("%w: dependency cycle through template task %q", domain.ErrCyclicDependency, next)
			case unvisited:
				if err := walk(next); err != nil {
					return err
				}
			}
		}
		state[id] = done
		return nil
	}
	for id := range adjacent {
		if state[id] == unvisited {
			if err := walk(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// SubstituteVariables performs literal placeholder replacement: both
// {{name}} and {name} forms. Unresolved placeholders stay verbatim; this is
// not a templating language.
func SubstituteVariables(s string, variables map[string]string) string {
	if len(variables) == 0 || s == "" {
		return s
	}
	pairs := make([]string, 0, len(variables)*4)
	for name, value := range variables {
		pairs = append(pairs,
			"{{"+name+"}}", value,
			"{"+name+"}", value,
		)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
