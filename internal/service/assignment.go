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

// AssignmentService manages user assignments on tasks: multi-assignee sets,
// primary selection, reassignment and both audit ledgers.
type AssignmentService struct {
	pool        *pgxpool.Pool
	taskRepo    *repository.TaskRepository
	assignRepo  *repository.AssignmentRepository
	historyRepo *repository.TaskHistoryRepository
	userRepo    *repository.UserRepository
	notifier    Notifier
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	pool *pgxpool.Pool,
	taskRepo *repository.TaskRepository,
	assignRepo *repository.AssignmentRepository,
	historyRepo *repository.TaskHistoryRepository,
	userRepo *repository.UserRepository,
	notifier Notifier,
) *AssignmentService {
	return &AssignmentService{
		pool:        pool,
		taskRepo:    taskRepo,
		assignRepo:  assignRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
		notifier:    notifier,
	}
}

// AssignParams carries an assignment request.
type AssignParams struct {
	UserIDs         []string
	Role            string
	ReplaceExisting bool
	DueDate         *time.Time // optional due date change carried with the assignment
}

// Assign assigns one or more users to a task. The first user id becomes the
// primary assignee and is mirrored into the legacy assigned_user_id field.
func (s *AssignmentService) Assign(
	ctx context.Context,
	taskID string,
	params AssignParams,
	assignerID string,
) (*domain.Task, error) {
	if len(params.UserIDs) == 0 {
		return nil, fmt.Errorf("%w: no assignees given", domain.ErrInvalidReassignment)
	}
	if params.DueDate != nil && params.DueDate.Before(time.Now()) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidDueDate, params.DueDate.Format(time.RFC3339))
	}

	users, err := s.validateAssignees(ctx, params.UserIDs)
	if err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := s.taskRepo.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	s.warnCrossDepartment(task, users)

	assigned := make(map[string]bool, len(params.UserIDs))
	if params.ReplaceExisting {
		if err := s.assignRepo.DeleteByTaskID(ctx, tx, taskID); err != nil {
			return nil, err
		}
	} else {
		if err := s.assignRepo.ClearPrimary(ctx, tx, taskID); err != nil {
			return nil, err
		}
		current, err := s.assignRepo.GetByTaskID(ctx, tx, taskID)
		if err != nil {
			return nil, err
		}
		for _, a := range current {
			assigned[a.UserID] = true
		}
	}

	// One row per (task, user): users already on the task keep their row,
	// and the first requested user is promoted instead of re-inserted.
	for i, userID := range params.UserIDs {
		if assigned[userID] {
			if i == 0 {
				if err := s.assignRepo.SetPrimary(ctx, tx, taskID, userID); err != nil {
					return nil, err
				}
			}
			continue
		}
		assignment := &domain.TaskAssignment{
			TaskID:     taskID,
			UserID:     userID,
			AssignedBy: assignerID,
			Role:       params.Role,
			IsPrimary:  i == 0,
		}
		if err := s.assignRepo.Create(ctx, tx, assignment); err != nil {
			return nil, err
		}
		assigned[userID] = true
	}

	primary := params.UserIDs[0]
	if err := s.taskRepo.UpdateAssignment(ctx, tx, taskID, &primary, users[primary].DepartmentID); err != nil {
		return nil, err
	}
	task.AssignedUserID = &primary

	if params.DueDate != nil {
		task.DueDate = params.DueDate
		if err := s.taskRepo.UpdateDetails(ctx, tx, task); err != nil {
			return nil, err
		}
	}

	field := "assigned_user_id"
	newVal := strings.Join(params.UserIDs, ",")
	entry := &domain.TaskHistory{
		TaskID:    taskID,
		UserID:    assignerID,
		Action:    domain.HistoryActionAssigned,
		FieldName: &field,
		NewValue:  &newVal,
		Metadata: map[string]any{
			"replace_existing": params.ReplaceExisting,
			"role":             params.Role,
		},
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	notify(ctx, s.notifier, "task.assigned", params.UserIDs, map[string]any{
		"task_id":     taskID,
		"assigned_by": assignerID,
	})

	slog.Info("task assigned",
		"task_id", taskID,
		"assignee_count", len(params.UserIDs),
		"primary", primary,
		"assigner_id", assignerID,
	)

	return task, nil
}

// Reassign adds a new assignee on top of the existing set and makes them
// primary. Fails if the task was never assigned or the target user is already
// the sole current assignee.
func (s *AssignmentService) Reassign(
	ctx context.Context,
	taskID string,
	newUserID string,
	reassignerID string,
	reason string,
) (*domain.Task, error) {
	users, err := s.validateAssignees(ctx, []string{newUserID})
	if err != nil {
		return nil, err
	}
	newUser := users[newUserID]

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	task, err := s.taskRepo.GetByIDForUpdate(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}

	current, err := s.assignRepo.GetByTaskID(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if len(current) == 0 {
		return nil, fmt.Errorf("%w: task %s was never assigned", domain.ErrInvalidReassignment, taskID)
	}
	if len(current) == 1 && current[0].UserID == newUserID {
		return nil, fmt.Errorf("%w: user %s is already the sole assignee of task %s",
			domain.ErrInvalidReassignment, newUserID, taskID)
	}

	s.warnCrossDepartment(task, users)

	// Accretion: prior assignees stay; the new user joins as primary.
	if err := s.assignRepo.ClearPrimary(ctx, tx, taskID); err != nil {
		return nil, err
	}

	alreadyAssigned := false
	for _, a := range current {
		if a.UserID == newUserID {
			alreadyAssigned = true
			break
		}
	}
	if !alreadyAssigned {
		assignment := &domain.TaskAssignment{
			TaskID:     taskID,
			UserID:     newUserID,
			AssignedBy: reassignerID,
			IsPrimary:  true,
		}
		if err := s.assignRepo.Create(ctx, tx, assignment); err != nil {
			return nil, err
		}
	} else {
		if err := s.assignRepo.SetPrimary(ctx, tx, taskID, newUserID); err != nil {
			return nil, err
		}
	}

	if err := s.taskRepo.UpdateAssignment(ctx, tx, taskID, &newUserID, newUser.DepartmentID); err != nil {
		return nil, err
	}

	oldPrimary := task.AssignedUserID
	task.AssignedUserID = &newUserID

	field := "assigned_user_id"
	entry := &domain.TaskHistory{
		TaskID:    taskID,
		UserID:    reassignerID,
		Action:    domain.HistoryActionReassigned,
		FieldName: &field,
		OldValue:  oldPrimary,
		NewValue:  &newUserID,
	}
	if reason != "" {
		entry.Metadata = map[string]any{"reason": reason}
	}
	if err := s.historyRepo.Create(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}

	ledger := &domain.TaskAssignmentHistory{
		TaskID:     taskID,
		AssignedTo: newUserID,
		AssignedBy: reassignerID,
		Notes:      reason,
	}
	if err := s.assignRepo.CreateHistory(ctx, tx, ledger); err != nil {
		return nil, fmt.Errorf("create assignment history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	notify(ctx, s.notifier, "task.reassigned", []string{newUserID}, map[string]any{
		"task_id":       taskID,
		"reassigned_by": reassignerID,
	})

	slog.Info("task reassigned",
		"task_id", taskID,
		"new_user_id", newUserID,
		"reassigner_id", reassignerID,
	)

	return task, nil
}

// validateAssignees loads every user and rejects any without a department.
func (s *AssignmentService) validateAssignees(ctx context.Context, userIDs []string) (map[string]*domain.User, error) {
	users := make(map[string]*domain.User, len(userIDs))
	for _, id := range userIDs {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !user.HasDepartment() {
			return nil, fmt.Errorf("%w: user %s", domain.ErrUnassignableUser, id)
		}
		users[id] = user
	}
	return users, nil
}

// warnCrossDepartment logs assignments into a task owned by a different
// department. Allowed, but visible in the logs.
func (s *AssignmentService) warnCrossDepartment(task *domain.Task, users map[string]*domain.User) {
	if task.DepartmentID == nil {
		return
	}
	for id, user := range users {
		if user.DepartmentID != nil && *user.DepartmentID != *task.DepartmentID {
			slog.Warn("reassignment across departments",
				"task_id", task.ID,
				"task_department_id", *task.DepartmentID,
				"user_id", id,
				"user_department_id", *user.DepartmentID,
			)
		}
	}
}
