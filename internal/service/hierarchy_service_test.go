package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/config"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/service"
)

// HierarchyServiceTestSuite is the test suite for HierarchyService.
type HierarchyServiceTestSuite struct {
	suite.Suite
	pool             *pgxpool.Pool
	hierarchyService *service.HierarchyService
	statusService    *service.StatusService
	taskRepo         *repository.TaskRepository
	historyRepo      *repository.TaskHistoryRepository
}

func (s *HierarchyServiceTestSuite) SetupSuite() {
	s.pool = connectTestDB(&s.Suite)

	s.taskRepo = repository.NewTaskRepository(s.pool)
	s.historyRepo = repository.NewTaskHistoryRepository(s.pool)
	enquiryRepo := repository.NewEnquiryRepository(s.pool)

	registry := domain.DefaultTaskableRegistry()
	projection := service.NewProjectionService(s.taskRepo, enquiryRepo, registry, config.DefaultEnquiryProjection())
	s.hierarchyService = service.NewHierarchyService(s.pool, s.taskRepo, s.historyRepo, projection)
	s.statusService = service.NewStatusService(
		s.pool, s.taskRepo, s.historyRepo,
		config.DefaultTransitions(), s.hierarchyService, projection, service.LogNotifier{},
	)
}

func (s *HierarchyServiceTestSuite) SetupTest() {
	resetTestDB(&s.Suite, s.pool)
}

func (s *HierarchyServiceTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *HierarchyServiceTestSuite) futureDate() *time.Time {
	d := time.Now().Add(7 * 24 * time.Hour)
	return &d
}

func (s *HierarchyServiceTestSuite) TestCreateSubtask_InheritsFromParent() {
	ctx := context.Background()

	var parentID string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, status, priority, department_id, taskable_type, taskable_id, created_by)
		VALUES ('stage build', 'in_progress', 'high', $1, 'enquiry', $2, $3)
		RETURNING id
	`, testDeptA, testEnquiry, testUser1).Scan(&parentID)
	s.Require().NoError(err)

	child, err := s.hierarchyService.CreateSubtask(ctx, parentID, service.CreateSubtaskParams{
		Title:   "erect scaffolding",
		DueDate: s.futureDate(),
	}, testUser2)
	s.Require().NoError(err)

	s.Require().NotNil(child.ParentTaskID)
	s.Equal(parentID, *child.ParentTaskID)
	s.Equal(domain.TaskStatusPending, child.Status)
	s.Equal(domain.TaskPriorityHigh, child.Priority)
	s.Require().NotNil(child.DepartmentID)
	s.Equal(testDeptA, *child.DepartmentID)
	s.Require().NotNil(child.Taskable)
	s.Equal(domain.TaskableTypeEnquiry, child.Taskable.Type)
	s.Equal(testEnquiry, child.Taskable.ID)

	// Creation is audited with the parent link.
	history, err := s.historyRepo.GetByTaskID(ctx, child.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(domain.HistoryActionCreated, history[0].Action)
	s.Equal(parentID, history[0].Metadata["parent_task_id"])
}

func (s *HierarchyServiceTestSuite) TestCreateSubtask_ExplicitValuesWin() {
	ctx := context.Background()
	parentID := insertTask(&s.Suite, s.pool, "parent", domain.TaskStatusPending, nil, nil)

	child, err := s.hierarchyService.CreateSubtask(ctx, parentID, service.CreateSubtaskParams{
		Title:    "urgent child",
		Priority: domain.TaskPriorityUrgent,
		DueDate:  s.futureDate(),
	}, testUser1)
	s.Require().NoError(err)
	s.Equal(domain.TaskPriorityUrgent, child.Priority)
}

func (s *HierarchyServiceTestSuite) TestCreateSubtask_RequiresDueDate() {
	ctx := context.Background()
	parentID := insertTask(&s.Suite, s.pool, "parent", domain.TaskStatusPending, nil, nil)

	_, err := s.hierarchyService.CreateSubtask(ctx, parentID, service.CreateSubtaskParams{
		Title: "child",
	}, testUser1)
	s.Error(err)
	s.ErrorIs(err, domain.ErrMissingDueDate)
}

func (s *HierarchyServiceTestSuite) TestCreateSubtask_RejectsPastDueDate() {
	ctx := context.Background()
	parentID := insertTask(&s.Suite, s.pool, "parent", domain.TaskStatusPending, nil, nil)

	past := time.Now().Add(-time.Hour)
	_, err := s.hierarchyService.CreateSubtask(ctx, parentID, service.CreateSubtaskParams{
		Title:   "child",
		DueDate: &past,
	}, testUser1)
	s.Error(err)
	s.ErrorIs(err, domain.ErrInvalidDueDate)
}

func (s *HierarchyServiceTestSuite) TestCreateSubtask_ParentNotFound() {
	ctx := context.Background()

	_, err := s.hierarchyService.CreateSubtask(ctx, "00000000-0000-0000-0000-0000000000ff",
		service.CreateSubtaskParams{Title: "orphan", DueDate: s.futureDate()}, testUser1)
	s.Error(err)
	s.ErrorIs(err, domain.ErrTaskNotFound)
}

func (s *HierarchyServiceTestSuite) TestMoveSubtask_ToOwnDescendant() {
	ctx := context.Background()

	rootID := insertTask(&s.Suite, s.pool, "root", domain.TaskStatusPending, nil, nil)
	midID := insertTask(&s.Suite, s.pool, "mid", domain.TaskStatusPending, &rootID, nil)
	leafID := insertTask(&s.Suite, s.pool, "leaf", domain.TaskStatusPending, &midID, nil)

	_, err := s.hierarchyService.MoveSubtask(ctx, rootID, &leafID, testUser1)
	s.Error(err)
	s.ErrorIs(err, domain.ErrCircularReference)

	// The tree is unchanged.
	root, err := s.taskRepo.GetByID(ctx, rootID)
	s.Require().NoError(err)
	s.Nil(root.ParentTaskID)
}

func (s *HierarchyServiceTestSuite) TestMoveSubtask_ToItself() {
	ctx := context.Background()
	taskID := insertTask(&s.Suite, s.pool, "task", domain.TaskStatusPending, nil, nil)

	_, err := s.hierarchyService.MoveSubtask(ctx, taskID, &taskID, testUser1)
	s.Error(err)
	s.ErrorIs(err, domain.ErrCircularReference)
}

func (s *HierarchyServiceTestSuite) TestMoveSubtask_Reparent() {
	ctx := context.Background()

	oldParentID := insertTask(&s.Suite, s.pool, "old parent", domain.TaskStatusPending, nil, nil)
	newParentID := insertTask(&s.Suite, s.pool, "new parent", domain.TaskStatusPending, nil, nil)
	childID := insertTask(&s.Suite, s.pool, "child", domain.TaskStatusCompleted, &oldParentID, nil)

	moved, err := s.hierarchyService.MoveSubtask(ctx, childID, &newParentID, testUser1)
	s.Require().NoError(err)
	s.Require().NotNil(moved.ParentTaskID)
	s.Equal(newParentID, *moved.ParentTaskID)

	// Both parents see recomputed percentages.
	oldParent, err := s.taskRepo.GetByID(ctx, oldParentID)
	s.Require().NoError(err)
	s.Equal(float64(0), oldParent.CompletionPercentage)

	newParent, err := s.taskRepo.GetByID(ctx, newParentID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusCompleted, newParent.Status, "new parent should auto-complete with its only child done")

	history, err := s.historyRepo.GetByTaskID(ctx, childID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(domain.HistoryActionMoved, history[0].Action)
}

func (s *HierarchyServiceTestSuite) TestMoveSubtask_Detach() {
	ctx := context.Background()

	parentID := insertTask(&s.Suite, s.pool, "parent", domain.TaskStatusPending, nil, nil)
	childID := insertTask(&s.Suite, s.pool, "child", domain.TaskStatusPending, &parentID, nil)

	moved, err := s.hierarchyService.MoveSubtask(ctx, childID, nil, testUser1)
	s.Require().NoError(err)
	s.Nil(moved.ParentTaskID)
}

func (s *HierarchyServiceTestSuite) TestCompletionPropagation_PartialChildren() {
	ctx := context.Background()

	parentID := insertTask(&s.Suite, s.pool, "parent", domain.TaskStatusInProgress, nil, nil)
	child1 := insertTask(&s.Suite, s.pool, "child 1", domain.TaskStatusInProgress, &parentID, nil)
	insertTask(&s.Suite, s.pool, "child 2", domain.TaskStatusPending, &parentID, nil)

	_, err := s.statusService.Transition(ctx, child1, domain.TaskStatusCompleted, testUser1, "")
	s.Require().NoError(err)

	parent, err := s.taskRepo.GetByID(ctx, parentID)
	s.Require().NoError(err)
	s.Equal(float64(50), parent.CompletionPercentage)
	s.Equal(domain.TaskStatusInProgress, parent.Status)
}

func (s *HierarchyServiceTestSuite) TestCompletionPropagation_AutoComplete() {
	ctx := context.Background()

	parentID := insertTask(&s.Suite, s.pool, "parent", domain.TaskStatusInProgress, nil, nil)
	insertTask(&s.Suite, s.pool, "child 1", domain.TaskStatusCompleted, &parentID, nil)
	child2 := insertTask(&s.Suite, s.pool, "child 2", domain.TaskStatusInProgress, &parentID, nil)

	_, err := s.statusService.Transition(ctx, child2, domain.TaskStatusCompleted, testUser2, "")
	s.Require().NoError(err)

	parent, err := s.taskRepo.GetByID(ctx, parentID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusCompleted, parent.Status)
	s.Equal(float64(100), parent.CompletionPercentage)
	s.NotNil(parent.CompletedAt)

	// Auto-completion is attributed to the system actor, not the user who
	// completed the last child.
	history, err := s.historyRepo.GetByTaskID(ctx, parentID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(domain.HistoryActionAutoCompleted, history[0].Action)
	s.Equal(domain.SystemActorID, history[0].UserID)
}

func (s *HierarchyServiceTestSuite) TestCompletionPropagation_WalksUpChain() {
	ctx := context.Background()

	rootID := insertTask(&s.Suite, s.pool, "root", domain.TaskStatusInProgress, nil, nil)
	midID := insertTask(&s.Suite, s.pool, "mid", domain.TaskStatusInProgress, &rootID, nil)
	leafID := insertTask(&s.Suite, s.pool, "leaf", domain.TaskStatusInProgress, &midID, nil)

	_, err := s.statusService.Transition(ctx, leafID, domain.TaskStatusCompleted, testUser1, "")
	s.Require().NoError(err)

	mid, err := s.taskRepo.GetByID(ctx, midID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusCompleted, mid.Status)

	root, err := s.taskRepo.GetByID(ctx, rootID)
	s.Require().NoError(err)
	s.Equal(domain.TaskStatusCompleted, root.Status)
	s.Equal(float64(100), root.CompletionPercentage)
}

func (s *HierarchyServiceTestSuite) TestCompletionPropagation_ReopenLowersPercentage() {
	ctx := context.Background()

	parentID := insertTask(&s.Suite, s.pool, "parent", domain.TaskStatusInProgress, nil, nil)
	child1 := insertTask(&s.Suite, s.pool, "child 1", domain.TaskStatusCompleted, &parentID, nil)
	insertTask(&s.Suite, s.pool, "child 2", domain.TaskStatusCompleted, &parentID, nil)

	_, err := s.statusService.Transition(ctx, child1, domain.TaskStatusInProgress, testUser1, "rework")
	s.Require().NoError(err)

	parent, err := s.taskRepo.GetByID(ctx, parentID)
	s.Require().NoError(err)
	s.Equal(float64(50), parent.CompletionPercentage)
	// Reopening a child does not reopen the parent.
	s.Equal(domain.TaskStatusInProgress, parent.Status)
}

func (s *HierarchyServiceTestSuite) TestCompletionPercentage_NoChildren() {
	ctx := context.Background()
	taskID := insertTask(&s.Suite, s.pool, "leaf", domain.TaskStatusInProgress, nil, nil)

	pct, err := s.hierarchyService.CompletionPercentage(ctx, taskID)
	s.Require().NoError(err)
	s.Equal(float64(0), pct)
}

func (s *HierarchyServiceTestSuite) TestGetHierarchyTree() {
	ctx := context.Background()

	rootID := insertTask(&s.Suite, s.pool, "root", domain.TaskStatusInProgress, nil, nil)
	midID := insertTask(&s.Suite, s.pool, "mid", domain.TaskStatusPending, &rootID, nil)
	insertTask(&s.Suite, s.pool, "leaf a", domain.TaskStatusPending, &midID, nil)
	insertTask(&s.Suite, s.pool, "leaf b", domain.TaskStatusPending, &midID, nil)
	insertTask(&s.Suite, s.pool, "sibling", domain.TaskStatusPending, &rootID, nil)

	tree, err := s.hierarchyService.GetHierarchyTree(ctx, rootID)
	s.Require().NoError(err)

	s.Equal(rootID, tree.ID)
	s.Len(tree.Children, 2)

	var mid *domain.TaskTreeNode
	for _, c := range tree.Children {
		if c.ID == midID {
			mid = c
		}
	}
	s.Require().NotNil(mid)
	s.Len(mid.Children, 2)
}

func (s *HierarchyServiceTestSuite) TestGetAncestors() {
	ctx := context.Background()

	rootID := insertTask(&s.Suite, s.pool, "root", domain.TaskStatusPending, nil, nil)
	midID := insertTask(&s.Suite, s.pool, "mid", domain.TaskStatusPending, &rootID, nil)
	leafID := insertTask(&s.Suite, s.pool, "leaf", domain.TaskStatusPending, &midID, nil)

	ancestors, err := s.hierarchyService.GetAncestors(ctx, leafID)
	s.Require().NoError(err)
	s.Require().Len(ancestors, 2)
	s.Equal(midID, ancestors[0].ID)
	s.Equal(rootID, ancestors[1].ID)
}

func TestHierarchyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(HierarchyServiceTestSuite))
}
