package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/atinyakov/taskboard/internal/models"
	"github.com/atinyakov/taskboard/internal/service"
)

// TaskService defines the task operations required by the handlers.
type TaskService interface {
	Statuses() []string
	List(ctx context.Context, filter *int) ([]models.Task, error)
	Add(ctx context.Context, fields service.TaskFields) (int, error)
	Update(ctx context.Context, id int, fields service.TaskFields) error
	Delete(ctx context.Context, id int) error
	Attachment(ctx context.Context, id int) (path, name string, err error)
}

// TaskHandler serves the task endpoints. All of them sit behind the
// request gate.
type TaskHandler struct {
	TaskService TaskService
	Logger      *zap.Logger
}

// Statuses handles GET /statuses.
func (h *TaskHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.TaskService.Statuses())
}

// List handles GET /tasks with an optional numeric filter query parameter.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter *int
	if raw := r.URL.Query().Get("filter"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid filter", http.StatusBadRequest)
			return
		}
		filter = &n
	}

	tasks, err := h.TaskService.List(r.Context(), filter)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, tasks)
}

// File handles GET /tasks/{id}/file and streams the attachment under its
// original name.
func (h *TaskHandler) File(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		h.fail(w, err)
		return
	}

	path, name, err := h.TaskService.Attachment(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Disposition", contentDisposition(name))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, path)
}

// contentDisposition names a download. Non-ASCII names are encoded as
// filename* per RFC 2231.
func contentDisposition(name string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

// Add handles POST /tasks/add with form fields name, statusid, date and an
// optional file. The response body is the new task id. A request without
// any form field is rejected.
func (h *TaskHandler) Add(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !hasFormBody(r) {
		h.fail(w, errNoBody)
		return
	}

	fields, cleanup, err := taskFields(r, false)
	defer cleanup()
	if err != nil {
		h.fail(w, err)
		return
	}

	id, err := h.TaskService.Add(r.Context(), fields)
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strconv.Itoa(id)))
}

// Update handles PUT /tasks/{id}/update. Sent name and statusid overwrite
// the task; an absent or empty date clears the completion date and an
// absent file removes the attachment. A request without any form field is
// rejected and changes nothing.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := parseForm(r); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !hasFormBody(r) {
		h.fail(w, errNoBody)
		return
	}

	fields, cleanup, err := taskFields(r, true)
	defer cleanup()
	if err != nil {
		h.fail(w, err)
		return
	}

	if err := h.TaskService.Update(r.Context(), id, fields); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Delete handles DELETE /tasks/{id}/delete.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := taskID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.TaskService.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

var errBadStatus = errors.New("bad status id")

// taskFields turns a parsed form into a partial task. An empty statusid
// means status 0. With clearMissing an absent date or file clears the field
// instead of leaving it unset. The returned cleanup closes the uploaded
// file, if any.
func taskFields(r *http.Request, clearMissing bool) (service.TaskFields, func(), error) {
	var fields service.TaskFields
	cleanup := func() {}

	if name, ok := postValue(r, "name"); ok {
		fields.Title = models.Set(name)
	}

	if raw, ok := postValue(r, "statusid"); ok {
		n := 0
		if raw != "" {
			var err error
			if n, err = strconv.Atoi(raw); err != nil {
				return fields, cleanup, errBadStatus
			}
		}
		fields.StatusID = models.Set(n)
	}

	if date, _ := postValue(r, "date"); date != "" {
		fields.CompletionDate = models.Set(date)
	} else if clearMissing {
		fields.CompletionDate = models.Clear[string]()
	}

	file, header, err := formFile(r)
	switch {
	case err != nil:
		return fields, cleanup, err
	case file != nil:
		cleanup = func() { file.Close() }
		fields.Attachment = models.Set(service.Attachment{Name: header.Filename, Content: file})
	case clearMissing:
		fields.Attachment = models.Clear[service.Attachment]()
	}

	return fields, cleanup, nil
}

// formFile returns the uploaded "file" part, or nil when none was sent.
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if r.MultipartForm == nil {
		return nil, nil, nil
	}
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read upload: %w", err)
	}
	return file, header, nil
}

// fail maps service errors to status codes. Unexpected errors are logged
// and answered with 500.
func (h *TaskHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadID), errors.Is(err, errNoBody), errors.Is(err, errBadStatus),
		errors.Is(err, service.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, service.ErrAttachmentNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.Logger.Error("task request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
