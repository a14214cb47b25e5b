package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/atinyakov/taskboard/internal/models"
	"github.com/atinyakov/taskboard/internal/repository"
)

var (
	// ErrTaskNotFound is returned for an unknown task id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrAttachmentNotFound is returned when a task has no stored attachment.
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrInvalidStatus is returned when a status id is outside the label list.
	ErrInvalidStatus = errors.New("invalid status id")
)

// defaultTitle is used when a task is added without a name.
const defaultTitle = "New task"

// TaskRepository persists the whole task list and the attachment blobs.
// Uploads are staged first and committed under a task id afterwards.
type TaskRepository interface {
	Load(ctx context.Context) ([]models.Task, error)
	Save(ctx context.Context, tasks []models.Task) error
	// AttachmentPath returns repository.ErrAttachmentNotFound when no blob
	// is stored for id.
	AttachmentPath(ctx context.Context, id int) (string, error)
	StageAttachment(ctx context.Context, src io.Reader) (string, error)
	CommitAttachment(ctx context.Context, id int, staged string) error
	DiscardAttachment(ctx context.Context, staged string) error
	RemoveAttachment(ctx context.Context, id int) error
}

// Attachment is an uploaded file with the name the client gave it.
type Attachment struct {
	Name    string
	Content io.Reader
}

// TaskFields is a partial task. Each field is kept, set or cleared.
// On Add a kept Title or StatusID takes its default, and a kept
// CompletionDate or Attachment means none.
type TaskFields struct {
	Title          models.Patch[string]
	StatusID       models.Patch[int]
	CompletionDate models.Patch[string]
	Attachment     models.Patch[Attachment]
}

// TaskService implements task operations over a TaskRepository. Every
// mutation reads, modifies and rewrites the whole list under a lock.
type TaskService struct {
	repo     TaskRepository
	statuses []string
	mu       sync.RWMutex
}

// NewTaskService constructs a TaskService with the fixed status label list.
func NewTaskService(repo TaskRepository, statuses []string) *TaskService {
	return &TaskService{repo: repo, statuses: slices.Clone(statuses)}
}

// Statuses returns the status labels in order.
func (s *TaskService) Statuses() []string {
	return slices.Clone(s.statuses)
}

// List returns all tasks in insertion order, or only those whose status id
// equals *filter when filter is non-nil.
func (s *TaskService) List(ctx context.Context, filter *int) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return tasks, nil
	}

	filtered := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.StatusID == *filter {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// Get returns the task with the given id.
func (s *TaskService) Get(ctx context.Context, id int) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return nil, ErrTaskNotFound
	}
	return &tasks[i], nil
}

// Add appends a task whose id is one past the last task's id (1 for an
// empty list) and returns that id.
func (s *TaskService) Add(ctx context.Context, fields TaskFields) (int, error) {
	if err := s.checkStatus(fields.StatusID); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.repo.Load(ctx)
	if err != nil {
		return 0, err
	}

	id := 1
	if len(tasks) > 0 {
		id = tasks[len(tasks)-1].ID + 1
	}

	task := models.Task{ID: id, Title: defaultTitle}
	if title, ok := fields.Title.Value(); ok {
		task.Title = title
	}
	if status, ok := fields.StatusID.Value(); ok {
		task.StatusID = status
	}
	fields.CompletionDate.ApplyTo(&task.CompletionDate)

	next := append(slices.Clip(tasks), task)
	if err := s.persist(ctx, tasks, next, &next[len(next)-1], fields.Attachment, true); err != nil {
		return 0, err
	}
	return id, nil
}

// Update applies fields to the task with the given id.
func (s *TaskService) Update(ctx context.Context, id int, fields TaskFields) error {
	if err := s.checkStatus(fields.StatusID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return ErrTaskNotFound
	}
	prev := slices.Clone(tasks)
	task := &tasks[i]

	if title, ok := fields.Title.Value(); ok {
		task.Title = title
	}
	if status, ok := fields.StatusID.Value(); ok {
		task.StatusID = status
	}
	fields.CompletionDate.ApplyTo(&task.CompletionDate)

	return s.persist(ctx, prev, tasks, task, fields.Attachment, false)
}

// Delete removes the task with the given id together with its attachment.
func (s *TaskService) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(tasks, id)
	if i < 0 {
		return ErrTaskNotFound
	}

	if err := s.repo.Save(ctx, slices.Delete(tasks, i, i+1)); err != nil {
		return err
	}
	// The saved list no longer references the blob. A leftover file is
	// replaced or removed when the id is next used.
	_ = s.repo.RemoveAttachment(ctx, id)
	return nil
}

// Attachment returns the on-disk path of the task's attachment and the
// original file name to present on download.
func (s *TaskService) Attachment(ctx context.Context, id int) (path, name string, err error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return "", "", err
	}
	if !task.HasAttachment() {
		return "", "", ErrAttachmentNotFound
	}

	path, err = s.repo.AttachmentPath(ctx, id)
	if errors.Is(err, repository.ErrAttachmentNotFound) {
		return "", "", ErrAttachmentNotFound
	}
	if err != nil {
		return "", "", err
	}
	return path, *task.File, nil
}

// persist saves next, with task's attachment patch applied, in place of
// prev. A new upload is staged before the save and moved into place only
// after it succeeds; a dropped blob is removed once the saved list no longer
// references it. On add a kept attachment counts as dropped so that a stale
// blob under a reused id does not leak into the new task.
func (s *TaskService) persist(ctx context.Context, prev, next []models.Task, task *models.Task, p models.Patch[Attachment], adding bool) error {
	a, upload := p.Value()
	if !upload {
		drop := p.IsClear() || adding
		if drop {
			task.File = nil
		}
		if err := s.repo.Save(ctx, next); err != nil {
			return err
		}
		if drop {
			_ = s.repo.RemoveAttachment(ctx, task.ID)
		}
		return nil
	}

	staged, err := s.repo.StageAttachment(ctx, a.Content)
	if err != nil {
		return err
	}
	name := a.Name
	task.File = &name

	if err := s.repo.Save(ctx, next); err != nil {
		_ = s.repo.DiscardAttachment(ctx, staged)
		return err
	}
	if err := s.repo.CommitAttachment(ctx, task.ID, staged); err != nil {
		_ = s.repo.DiscardAttachment(ctx, staged)
		if rerr := s.repo.Save(ctx, prev); rerr != nil {
			return errors.Join(err, fmt.Errorf("restore tasks: %w", rerr))
		}
		return err
	}
	return nil
}

func (s *TaskService) checkStatus(p models.Patch[int]) error {
	if v, ok := p.Value(); ok && (v < 0 || v >= len(s.statuses)) {
		return fmt.Errorf("%w: %d", ErrInvalidStatus, v)
	}
	return nil
}

func indexOf(tasks []models.Task, id int) int {
	return slices.IndexFunc(tasks, func(t models.Task) bool { return t.ID == id })
}
