package domain

import "fmt"

// TaskableType identifies the kind of business entity a task is attached to.
type TaskableType string

const (
	TaskableTypeEnquiry    TaskableType = "enquiry"
	TaskableTypeDepartment TaskableType = "department"
	TaskableTypeProject    TaskableType = "project"
)

// TaskableRef is a typed reference to a business entity. The referenced
// entity is owned by an external collaborator; the task never owns it.
type TaskableRef struct {
	Type TaskableType `json:"type"`
	ID   string       `json:"id"`
}

// TaskableKind describes a registered entity kind and whether completed
// tasks attached to it feed the status projection.
type TaskableKind struct {
	Type     TaskableType
	Projects bool
}

// TaskableRegistry resolves taskable types to registered kinds. It replaces
// the legacy stringly-typed runtime lookup with an explicit, injected table.
type TaskableRegistry struct {
	kinds map[TaskableType]TaskableKind
}

// NewTaskableRegistry creates a registry from the given kinds.
func NewTaskableRegistry(kinds ...TaskableKind) *TaskableRegistry {
	m := make(map[TaskableType]TaskableKind, len(kinds))
	for _, k := range kinds {
		m[k.Type] = k
	}
	return &TaskableRegistry{kinds: m}
}

// DefaultTaskableRegistry registers the entity kinds known to the system.
// Only enquiries participate in status projection.
func DefaultTaskableRegistry() *TaskableRegistry {
	return NewTaskableRegistry(
		TaskableKind{Type: TaskableTypeEnquiry, Projects: true},
		TaskableKind{Type: TaskableTypeDepartment},
		TaskableKind{Type: TaskableTypeProject},
	)
}

// Resolve returns the registered kind for a taskable type.
func (r *TaskableRegistry) Resolve(t TaskableType) (TaskableKind, error) {
	kind, ok := r.kinds[t]
	if !ok {
		return TaskableKind{}, fmt.Errorf("%w: %s", ErrUnknownTaskable, t)
	}
	return kind, nil
}

// Projects returns true if tasks attached to the given reference feed the
// status projection.
func (r *TaskableRegistry) Projects(ref *TaskableRef) bool {
	if ref == nil {
		return false
	}
	kind, ok := r.kinds[ref.Type]
	return ok && kind.Projects
}
