package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/domain"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/repository"
	"github.com/woodnorkgreen-tech/ERP-Backend-sub001/internal/service"
)

// TemplateServiceTestSuite is the test suite for TemplateService.
type TemplateServiceTestSuite struct {
	suite.Suite
	pool            *pgxpool.Pool
	templateService *service.TemplateService
	taskRepo        *repository.TaskRepository
	depRepo         *repository.DependencyRepository
	assignRepo      *repository.AssignmentRepository
	templateRepo    *repository.TemplateRepository
}

func (s *TemplateServiceTestSuite) SetupSuite() {
	s.pool = connectTestDB(&s.Suite)

	s.taskRepo = repository.NewTaskRepository(s.pool)
	s.depRepo = repository.NewDependencyRepository(s.pool)
	s.assignRepo = repository.NewAssignmentRepository(s.pool)
	s.templateRepo = repository.NewTemplateRepository(s.pool)
	historyRepo := repository.NewTaskHistoryRepository(s.pool)

	s.templateService = service.NewTemplateService(
		s.pool, s.taskRepo, s.depRepo, s.assignRepo, historyRepo, s.templateRepo,
		domain.DefaultTaskableRegistry(),
	)
}

func (s *TemplateServiceTestSuite) SetupTest() {
	resetTestDB(&s.Suite, s.pool)
}

func (s *TemplateServiceTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// seedTemplate stores a template and returns it.
func (s *TemplateServiceTestSuite) seedTemplate(data domain.TemplateData, vars []domain.TemplateVariable) *domain.TaskTemplate {
	tmpl, err := s.templateRepo.Create(context.Background(), &domain.TaskTemplate{
		Name:         "event setup",
		Category:     "production",
		IsActive:     true,
		TemplateData: data,
		Variables:    vars,
		CreatedBy:    testUser1,
	})
	s.Require().NoError(err)
	return tmpl
}

func (s *TemplateServiceTestSuite) TestInstantiate_MapsParentsAndDependencies() {
	ctx := context.Background()
	offset := 14

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{
			{ID: "setup", Title: "Setup for {{event_name}}", TaskType: "setup", Priority: domain.TaskPriorityHigh},
			{ID: "rig", Title: "Rig {event_name}", ParentID: "setup", DueDateOffsetDays: &offset},
			{ID: "sound", Title: "Sound check", ParentID: "setup"},
		},
		Dependencies: []domain.TemplateDependency{
			{TaskID: "sound", DependsOnTaskID: "rig", Type: domain.DependencyTypeBlockedBy},
		},
	}, nil)

	result, err := s.templateService.Instantiate(ctx, tmpl.ID,
		map[string]string{"event_name": "Summer Gala"},
		service.InstantiationContext{
			Taskable:  &domain.TaskableRef{Type: domain.TaskableTypeEnquiry, ID: testEnquiry},
			CreatedBy: testUser1,
		})
	s.Require().NoError(err)

	s.Require().Len(result.Tasks, 3)
	s.Len(result.TaskIDMap, 3)
	s.Equal(0, result.SkippedDependencies)

	byTemplateID := make(map[string]*domain.Task)
	for _, task := range result.Tasks {
		byTemplateID[task.Metadata["template_task_id"].(string)] = task
	}

	s.Equal("Setup for Summer Gala", byTemplateID["setup"].Title)
	s.Equal("Rig Summer Gala", byTemplateID["rig"].Title)
	s.Equal(domain.TaskPriorityHigh, byTemplateID["setup"].Priority)

	// Parent links point at the created tasks, not the template ids.
	rig, err := s.taskRepo.GetByID(ctx, byTemplateID["rig"].ID)
	s.Require().NoError(err)
	s.Require().NotNil(rig.ParentTaskID)
	s.Equal(byTemplateID["setup"].ID, *rig.ParentTaskID)
	s.Require().NotNil(rig.DueDate)
	s.WithinDuration(time.Now().AddDate(0, 0, offset), *rig.DueDate, time.Minute)

	// So does the dependency edge.
	s.Require().Len(result.Dependencies, 1)
	s.Equal(byTemplateID["sound"].ID, result.Dependencies[0].TaskID)
	s.Equal(byTemplateID["rig"].ID, result.Dependencies[0].DependsOnTaskID)

	// Provenance and target context land on every task.
	s.Equal(tmpl.ID, byTemplateID["setup"].Metadata["template_id"])
	s.Require().NotNil(byTemplateID["setup"].Taskable)
	s.Equal(testEnquiry, byTemplateID["setup"].Taskable.ID)
}

func (s *TemplateServiceTestSuite) TestInstantiate_UnresolvedPlaceholderStaysVerbatim() {
	ctx := context.Background()

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{
			{ID: "t1", Title: "Brief {crew_lead} on {{event_name}}"},
		},
	}, nil)

	result, err := s.templateService.Instantiate(ctx, tmpl.ID,
		map[string]string{"event_name": "Summer Gala"},
		service.InstantiationContext{CreatedBy: testUser1})
	s.Require().NoError(err)
	s.Require().Len(result.Tasks, 1)
	s.Equal("Brief {crew_lead} on Summer Gala", result.Tasks[0].Title)
}

func (s *TemplateServiceTestSuite) TestInstantiate_SkipsUnresolvableDependencies() {
	ctx := context.Background()

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{
			{ID: "t1", Title: "task one"},
			{ID: "t2", Title: "task two"},
		},
		Dependencies: []domain.TemplateDependency{
			{TaskID: "t2", DependsOnTaskID: "t1"},
			{TaskID: "t2", DependsOnTaskID: "ghost"},
			{TaskID: "phantom", DependsOnTaskID: "t1"},
		},
	}, nil)

	result, err := s.templateService.Instantiate(ctx, tmpl.ID, nil,
		service.InstantiationContext{CreatedBy: testUser1})
	s.Require().NoError(err)
	s.Len(result.Dependencies, 1)
	s.Equal(2, result.SkippedDependencies)
}

func (s *TemplateServiceTestSuite) TestInstantiate_RejectsCyclicDependencies() {
	ctx := context.Background()

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{
			{ID: "t1", Title: "task one"},
			{ID: "t2", Title: "task two"},
		},
		Dependencies: []domain.TemplateDependency{
			{TaskID: "t1", DependsOnTaskID: "t2"},
			{TaskID: "t2", DependsOnTaskID: "t1"},
		},
	}, nil)

	_, err := s.templateService.Instantiate(ctx, tmpl.ID, nil,
		service.InstantiationContext{CreatedBy: testUser1})
	s.Error(err)
	s.ErrorIs(err, domain.ErrCyclicDependency)

	// Nothing was created.
	tasks, err := s.taskRepo.List(ctx, repository.ListFilters{Limit: 10})
	s.Require().NoError(err)
	s.Empty(tasks)
}

func (s *TemplateServiceTestSuite) TestInstantiate_RejectsSelfDependency() {
	ctx := context.Background()

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{{ID: "t1", Title: "task one"}},
		Dependencies: []domain.TemplateDependency{
			{TaskID: "t1", DependsOnTaskID: "t1"},
		},
	}, nil)

	_, err := s.templateService.Instantiate(ctx, tmpl.ID, nil,
		service.InstantiationContext{CreatedBy: testUser1})
	s.Error(err)
	s.ErrorIs(err, domain.ErrCyclicDependency)
}

func (s *TemplateServiceTestSuite) TestInstantiate_RejectsCyclicParentLinks() {
	ctx := context.Background()

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{
			{ID: "t1", Title: "task one", ParentID: "t2"},
			{ID: "t2", Title: "task two", ParentID: "t1"},
		},
	}, nil)

	_, err := s.templateService.Instantiate(ctx, tmpl.ID, nil,
		service.InstantiationContext{CreatedBy: testUser1})
	s.Error(err)
	s.ErrorIs(err, domain.ErrCircularReference)

	tasks, err := s.taskRepo.List(ctx, repository.ListFilters{Limit: 10})
	s.Require().NoError(err)
	s.Empty(tasks)
}

func (s *TemplateServiceTestSuite) TestInstantiate_DefaultAssignee() {
	ctx := context.Background()

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{
			{ID: "t1", Title: "task one"},
			{ID: "t2", Title: "task two"},
		},
	}, nil)

	assignee := testUser2
	result, err := s.templateService.Instantiate(ctx, tmpl.ID, nil,
		service.InstantiationContext{CreatedBy: testUser1, DefaultAssigneeID: &assignee})
	s.Require().NoError(err)

	for _, task := range result.Tasks {
		s.Require().NotNil(task.AssignedUserID)
		s.Equal(testUser2, *task.AssignedUserID)

		assignments, err := s.assignRepo.GetByTaskID(ctx, s.pool, task.ID)
		s.Require().NoError(err)
		s.Require().Len(assignments, 1)
		s.True(assignments[0].IsPrimary)
	}
}

func (s *TemplateServiceTestSuite) TestInstantiate_MissingRequiredVariable() {
	ctx := context.Background()

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{{ID: "t1", Title: "Setup {{event_name}}"}},
	}, []domain.TemplateVariable{
		{Name: "event_name", Required: true},
		{Name: "venue", Required: false},
	})

	_, err := s.templateService.Instantiate(ctx, tmpl.ID,
		map[string]string{"venue": "Pier 9"},
		service.InstantiationContext{CreatedBy: testUser1})
	s.Error(err)
	s.ErrorIs(err, domain.ErrMissingVariable)
	s.Contains(err.Error(), "event_name")

	// Nothing was created.
	tasks, err := s.taskRepo.List(ctx, repository.ListFilters{Limit: 10})
	s.Require().NoError(err)
	s.Empty(tasks)
}

func (s *TemplateServiceTestSuite) TestInstantiate_InactiveTemplate() {
	ctx := context.Background()

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{{ID: "t1", Title: "task"}},
	}, nil)
	s.Require().NoError(s.templateRepo.SetActive(ctx, tmpl.ID, false))

	_, err := s.templateService.Instantiate(ctx, tmpl.ID, nil,
		service.InstantiationContext{CreatedBy: testUser1})
	s.Error(err)
	s.ErrorIs(err, domain.ErrInactiveTemplate)
}

func (s *TemplateServiceTestSuite) TestInstantiate_TemplateNotFound() {
	ctx := context.Background()

	_, err := s.templateService.Instantiate(ctx, "00000000-0000-0000-0000-0000000000ff", nil,
		service.InstantiationContext{CreatedBy: testUser1})
	s.Error(err)
	s.ErrorIs(err, domain.ErrTemplateNotFound)
}

func (s *TemplateServiceTestSuite) TestCreateVersion() {
	ctx := context.Background()

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{{ID: "t1", Title: "old task"}},
	}, nil)

	next, err := s.templateService.CreateVersion(ctx, tmpl.ID, domain.TemplateData{
		Tasks: []domain.TemplateTask{
			{ID: "t1", Title: "new task"},
			{ID: "t2", Title: "added task"},
		},
	}, nil, testUser2)
	s.Require().NoError(err)

	s.NotEqual(tmpl.ID, next.ID)
	s.Equal(tmpl.Version+1, next.Version)
	s.Require().NotNil(next.PreviousVersionID)
	s.Equal(tmpl.ID, *next.PreviousVersionID)
	s.True(next.IsActive)

	// The predecessor stays untouched; retiring it is a separate decision.
	prev, err := s.templateRepo.GetByID(ctx, tmpl.ID)
	s.Require().NoError(err)
	s.True(prev.IsActive)
	s.Len(prev.TemplateData.Tasks, 1)
}

func (s *TemplateServiceTestSuite) TestCreateVersion_RejectsCyclicData() {
	ctx := context.Background()

	tmpl := s.seedTemplate(domain.TemplateData{
		Tasks: []domain.TemplateTask{{ID: "t1", Title: "old task"}},
	}, nil)

	_, err := s.templateService.CreateVersion(ctx, tmpl.ID, domain.TemplateData{
		Tasks: []domain.TemplateTask{
			{ID: "t1", Title: "task one"},
			{ID: "t2", Title: "task two"},
		},
		Dependencies: []domain.TemplateDependency{
			{TaskID: "t1", DependsOnTaskID: "t2"},
			{TaskID: "t2", DependsOnTaskID: "t1"},
		},
	}, nil, testUser2)
	s.Error(err)
	s.ErrorIs(err, domain.ErrCyclicDependency)
}

func TestTemplateServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TemplateServiceTestSuite))
}
