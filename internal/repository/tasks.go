package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/atinyakov/taskboard/internal/models"
)

// stagingSuffix marks uploads that have not yet been moved into place.
const stagingSuffix = ".upload"

// FileTaskRepository keeps the task list in one JSON document and each
// attachment as <filesDir>/<taskId>.bin. The list is read and written whole.
type FileTaskRepository struct {
	tasksPath string
	filesDir  string
}

// NewFileTaskRepository creates the attachments directory if needed and
// returns a repository over it and the tasks file.
func NewFileTaskRepository(tasksPath, filesDir string) (*FileTaskRepository, error) {
	if err := os.MkdirAll(filesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create files dir: %w", err)
	}
	return &FileTaskRepository{tasksPath: tasksPath, filesDir: filesDir}, nil
}

// Load returns the persisted task list in insertion order.
func (r *FileTaskRepository) Load(_ context.Context) ([]models.Task, error) {
	tasks := []models.Task{}
	if err := readJSON(r.tasksPath, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Save overwrites the persisted task list.
func (r *FileTaskRepository) Save(_ context.Context, tasks []models.Task) error {
	if tasks == nil {
		tasks = []models.Task{}
	}
	return writeJSON(r.tasksPath, tasks)
}

// ErrAttachmentNotFound is returned when no blob is stored for a task.
var ErrAttachmentNotFound = errors.New("attachment not found")

func (r *FileTaskRepository) blobPath(id int) string {
	return filepath.Join(r.filesDir, strconv.Itoa(id)+".bin")
}

// AttachmentPath returns where the attachment of task id lives, or
// ErrAttachmentNotFound when no blob is stored for it.
func (r *FileTaskRepository) AttachmentPath(_ context.Context, id int) (string, error) {
	path := r.blobPath(id)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrAttachmentNotFound
		}
		return "", fmt.Errorf("stat attachment: %w", err)
	}
	return path, nil
}

// StageAttachment writes src to a new staging file in the attachments
// directory and returns its name. The upload is not visible as any task's
// attachment until CommitAttachment moves it into place.
func (r *FileTaskRepository) StageAttachment(_ context.Context, src io.Reader) (string, error) {
	staged := uuid.NewString() + stagingSuffix
	path := filepath.Join(r.filesDir, staged)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("stage attachment: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close attachment: %w", err)
	}
	return staged, nil
}

// CommitAttachment renames a staged upload over the attachment of task id,
// replacing any previous one.
func (r *FileTaskRepository) CommitAttachment(_ context.Context, id int, staged string) error {
	if err := os.Rename(r.stagedPath(staged), r.blobPath(id)); err != nil {
		return fmt.Errorf("move attachment: %w", err)
	}
	return nil
}

// DiscardAttachment deletes a staged upload that will not be committed. A
// missing file is not an error.
func (r *FileTaskRepository) DiscardAttachment(_ context.Context, staged string) error {
	err := os.Remove(r.stagedPath(staged))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("discard attachment: %w", err)
	}
	return nil
}

// RemoveAttachment deletes the attachment of task id. A missing file is not
// an error.
func (r *FileTaskRepository) RemoveAttachment(_ context.Context, id int) error {
	err := os.Remove(r.blobPath(id))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

// stagedPath confines a staged name to the attachments directory.
func (r *FileTaskRepository) stagedPath(staged string) string {
	return filepath.Join(r.filesDir, filepath.Base(staged))
}
