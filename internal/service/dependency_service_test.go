package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/service"
)

// DependencyServiceTestSuite is the test suite for DependencyService.
type DependencyServiceTestSuite struct {
	suite.Suite
	pool              *pgxpool.Pool
	dependencyService *service.DependencyService
	taskRepo          *repository.TaskRepository
	depRepo           *repository.DependencyRepository
}

func (s *DependencyServiceTestSuite) SetupSuite() {
	s.pool = connectTestDB(&s.Suite)

	s.taskRepo = repository.NewTaskRepository(s.pool)
	s.depRepo = repository.NewDependencyRepository(s.pool)
	historyRepo := repository.NewTaskHistoryRepository(s.pool)

	s.dependencyService = service.NewDependencyService(s.pool, s.taskRepo, s.depRepo, historyRepo)
}

func (s *DependencyServiceTestSuite) SetupTest() {
	resetTestDB(&s.Suite, s.pool)
}

func (s *DependencyServiceTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *DependencyServiceTestSuite) TestAddDependency() {
	ctx := context.Background()

	taskA := insertTask(&s.Suite, s.pool, "task a", domain.TaskStatusPending, nil, nil)
	taskB := insertTask(&s.Suite, s.pool, "task b", domain.TaskStatusPending, nil, nil)

	dep, err := s.dependencyService.AddDependency(ctx, taskA, taskB, "", testUser1)
	s.Require().NoError(err)
	s.Equal(taskA, dep.TaskID)
	s.Equal(taskB, dep.DependsOnTaskID)
	s.Equal(domain.DependencyTypeBlockedBy, dep.DependencyType)

	deps, err := s.dependencyService.GetDependencies(ctx, taskA)
	s.Require().NoError(err)
	s.Len(deps, 1)
}

func (s *DependencyServiceTestSuite) TestAddDependency_SelfReference() {
	ctx := context.Background()
	taskA := insertTask(&s.Suite, s.pool, "task a", domain.TaskStatusPending, nil, nil)

	_, err := s.dependencyService.AddDependency(ctx, taskA, taskA, "", testUser1)
	s.Error(err)
	s.ErrorIs(err, domain.ErrCyclicDependency)
}

func (s *DependencyServiceTestSuite) TestAddDependency_ConcurrentOpposingEdges() {
	ctx := context.Background()

	taskA := insertTask(&s.Suite, s.pool, "task a", domain.TaskStatusPending, nil, nil)
	taskB := insertTask(&s.Suite, s.pool, "task b", domain.TaskStatusPending, nil, nil)

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for _, edge := range [][2]string{{taskA, taskB}, {taskB, taskA}} {
		wg.Add(1)
		go func(from, to string) {
			defer wg.Done()
			_, err := s.dependencyService.AddDependency(ctx, from, to, "", testUser1)
			results <- err
		}(edge[0], edge[1])
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else {
			s.ErrorIs(err, domain.ErrCyclicDependency)
		}
	}
	s.Equal(1, successCount, "exactly one edge should be accepted")

	depsA, err := s.depRepo.GetByTaskID(ctx, taskA)
	s.Require().NoError(err)
	depsB, err := s.depRepo.GetByTaskID(ctx, taskB)
	s.Require().NoError(err)
	s.Equal(1, len(depsA)+len(depsB))
}

func (s *DependencyServiceTestSuite) TestAddDependency_DirectCycle() {
	ctx := context.Background()

	taskA := insertTask(&s.Suite, s.pool, "task a", domain.TaskStatusPending, nil, nil)
	taskB := insertTask(&s.Suite, s.pool, "task b", domain.TaskStatusPending, nil, nil)

	_, err := s.dependencyService.AddDependency(ctx, taskA, taskB, "", testUser1)
	s.Require().NoError(err)

	_, err = s.dependencyService.AddDependency(ctx, taskB, taskA, "", testUser1)
	s.Error(err)
	s.ErrorIs(err, domain.ErrCyclicDependency)
}

func (s *DependencyServiceTestSuite) TestAddDependency_TransitiveCycle() {
	ctx := context.Background()

	taskA := insertTask(&s.Suite, s.pool, "task a", domain.TaskStatusPending, nil, nil)
	taskB := insertTask(&s.Suite, s.pool, "task b", domain.TaskStatusPending, nil, nil)
	taskC := insertTask(&s.Suite, s.pool, "task c", domain.TaskStatusPending, nil, nil)

	_, err := s.dependencyService.AddDependency(ctx, taskA, taskB, "", testUser1)
	s.Require().NoError(err)
	_, err = s.dependencyService.AddDependency(ctx, taskB, taskC, "", testUser1)
	s.Require().NoError(err)

	_, err = s.dependencyService.AddDependency(ctx, taskC, taskA, "", testUser1)
	s.Error(err)
	s.ErrorIs(err, domain.ErrCyclicDependency)

	// The rejected edge was not stored.
	deps, err := s.depRepo.GetByTaskID(ctx, taskC)
	s.Require().NoError(err)
	s.Empty(deps)
}

func (s *DependencyServiceTestSuite) TestAddDependency_DiamondIsAcyclic() {
	ctx := context.Background()

	taskA := insertTask(&s.Suite, s.pool, "task a", domain.TaskStatusPending, nil, nil)
	taskB := insertTask(&s.Suite, s.pool, "task b", domain.TaskStatusPending, nil, nil)
	taskC := insertTask(&s.Suite, s.pool, "task c", domain.TaskStatusPending, nil, nil)
	taskD := insertTask(&s.Suite, s.pool, "task d", domain.TaskStatusPending, nil, nil)

	_, err := s.dependencyService.AddDependency(ctx, taskA, taskB, "", testUser1)
	s.Require().NoError(err)
	_, err = s.dependencyService.AddDependency(ctx, taskA, taskC, "", testUser1)
	s.Require().NoError(err)
	_, err = s.dependencyService.AddDependency(ctx, taskB, taskD, "", testUser1)
	s.Require().NoError(err)
	_, err = s.dependencyService.AddDependency(ctx, taskC, taskD, "", testUser1)
	s.Require().NoError(err)
}

func (s *DependencyServiceTestSuite) TestAddDependency_MissingEndpoint() {
	ctx := context.Background()
	taskA := insertTask(&s.Suite, s.pool, "task a", domain.TaskStatusPending, nil, nil)

	_, err := s.dependencyService.AddDependency(ctx, taskA,
		"00000000-0000-0000-0000-0000000000ff", "", testUser1)
	s.Error(err)
	s.ErrorIs(err, domain.ErrTaskNotFound)
}

func (s *DependencyServiceTestSuite) TestGetAffectedTasks_OnCompletion() {
	ctx := context.Background()

	parentID := insertTask(&s.Suite, s.pool, "parent", domain.TaskStatusInProgress, nil, nil)
	taskID := insertTask(&s.Suite, s.pool, "task", domain.TaskStatusInProgress, &parentID, nil)
	childID := insertTask(&s.Suite, s.pool, "child", domain.TaskStatusPending, &taskID, nil)
	dependentID := insertTask(&s.Suite, s.pool, "dependent", domain.TaskStatusPending, nil, nil)

	_, err := s.dependencyService.AddDependency(ctx, dependentID, taskID, "", testUser1)
	s.Require().NoError(err)

	affected, err := s.dependencyService.GetAffectedTasks(ctx, taskID, domain.TaskStatusCompleted)
	s.Require().NoError(err)

	s.Require().Len(affected.Dependents, 1)
	s.Equal(dependentID, affected.Dependents[0].ID)
	s.Require().Len(affected.Parents, 1)
	s.Equal(parentID, affected.Parents[0].ID)
	s.Require().Len(affected.Subtasks, 1)
	s.Equal(childID, affected.Subtasks[0].ID)
}

func (s *DependencyServiceTestSuite) TestGetAffectedTasks_NonCompletion() {
	ctx := context.Background()

	parentID := insertTask(&s.Suite, s.pool, "parent", domain.TaskStatusInProgress, nil, nil)
	taskID := insertTask(&s.Suite, s.pool, "task", domain.TaskStatusInProgress, &parentID, nil)
	insertTask(&s.Suite, s.pool, "child", domain.TaskStatusPending, &taskID, nil)
	dependentID := insertTask(&s.Suite, s.pool, "dependent", domain.TaskStatusPending, nil, nil)

	_, err := s.dependencyService.AddDependency(ctx, dependentID, taskID, "", testUser1)
	s.Require().NoError(err)

	// Blocking only surfaces the parent; dependents and subtasks are not
	// affected by a non-terminal change.
	affected, err := s.dependencyService.GetAffectedTasks(ctx, taskID, domain.TaskStatusBlocked)
	s.Require().NoError(err)
	s.Empty(affected.Dependents)
	s.Require().Len(affected.Parents, 1)
	s.Empty(affected.Subtasks)
}

func TestDependencyServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DependencyServiceTestSuite))
}
