package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/taskboard/internal/models"
	"github.com/atinyakov/taskboard/internal/service"
)

// fakeTaskService records calls and returns preconfigured results.
type fakeTaskService struct {
	tasks      []models.Task
	gotFilter  *int
	gotID      int
	gotFields  service.TaskFields
	gotUpload  string
	addID      int
	err        error
	attachPath string
	attachName string
	called     bool
}

func (f *fakeTaskService) Statuses() []string { return []string{"Todo", "Doing", "Done"} }

func (f *fakeTaskService) List(ctx context.Context, filter *int) ([]models.Task, error) {
	f.gotFilter = filter
	return f.tasks, f.err
}

func (f *fakeTaskService) record(fields service.TaskFields) {
	f.called = true
	f.gotFields = fields
	if a, ok := fields.Attachment.Value(); ok {
		data, _ := io.ReadAll(a.Content)
		f.gotUpload = a.Name + ":" + string(data)
	}
}

func (f *fakeTaskService) Add(ctx context.Context, fields service.TaskFields) (int, error) {
	f.record(fields)
	return f.addID, f.err
}

func (f *fakeTaskService) Update(ctx context.Context, id int, fields service.TaskFields) error {
	f.gotID = id
	f.record(fields)
	return f.err
}

func (f *fakeTaskService) Delete(ctx context.Context, id int) error {
	f.gotID = id
	return f.err
}

func (f *fakeTaskService) Attachment(ctx context.Context, id int) (string, string, error) {
	f.gotID = id
	return f.attachPath, f.attachName, f.err
}

func withID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, fileName, fileBody string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(fileBody))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTaskHandler(svc *fakeTaskService) *TaskHandler {
	return &TaskHandler{TaskService: svc, Logger: zap.NewNop()}
}

func TestTaskHandler_Statuses(t *testing.T) {
	rec := httptest.NewRecorder()
	newTaskHandler(&fakeTaskService{}).Statuses(rec, httptest.NewRequest(http.MethodGet, "/statuses", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["Todo","Doing","Done"]`, rec.Body.String())
}

func TestTaskHandler_List(t *testing.T) {
	svc := &fakeTaskService{tasks: []models.Task{{ID: 2, Title: "B", StatusID: 2}}}
	h := newTaskHandler(svc)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/tasks?filter=2", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.gotFilter)
	assert.Equal(t, 2, *svc.gotFilter)
	assert.JSONEq(t, `[{"id":2,"title":"B","statusId":2,"completionDate":null,"file":null}]`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	assert.Nil(t, svc.gotFilter)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/tasks?filter=done", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandler_ListError(t *testing.T) {
	rec := httptest.NewRecorder()
	newTaskHandler(&fakeTaskService{err: errors.New("read tasks.json")}).
		List(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "tasks.json")
}

func TestTaskHandler_AddMultipart(t *testing.T) {
	svc := &fakeTaskService{addID: 3}
	req := multipartRequest(t, http.MethodPost, "/tasks/add",
		map[string]string{"name": "A", "statusid": "1", "date": "2025-02-02"}, "notes.txt", "body")

	rec := httptest.NewRecorder()
	newTaskHandler(svc).Add(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Body.String())

	title, _ := svc.gotFields.Title.Value()
	status, _ := svc.gotFields.StatusID.Value()
	date, _ := svc.gotFields.CompletionDate.Value()
	assert.Equal(t, "A", title)
	assert.Equal(t, 1, status)
	assert.Equal(t, "2025-02-02", date)
	assert.Equal(t, "notes.txt:body", svc.gotUpload)
}

func TestTaskHandler_AddDefaultsLeftToService(t *testing.T) {
	svc := &fakeTaskService{addID: 1}
	rec := httptest.NewRecorder()
	newTaskHandler(svc).Add(rec, formRequest("/tasks/add", url.Values{"date": {""}}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.gotFields.Title.IsKeep())
	assert.True(t, svc.gotFields.StatusID.IsKeep())
	assert.True(t, svc.gotFields.CompletionDate.IsKeep())
	assert.True(t, svc.gotFields.Attachment.IsKeep())
}

func TestTaskHandler_AddEmptyStatusIsZero(t *testing.T) {
	svc := &fakeTaskService{addID: 1}
	rec := httptest.NewRecorder()
	newTaskHandler(svc).Add(rec, formRequest("/tasks/add", url.Values{"name": {"A"}, "statusid": {""}}))

	assert.Equal(t, http.StatusOK, rec.Code)
	status, ok := svc.gotFields.StatusID.Value()
	assert.True(t, ok)
	assert.Equal(t, 0, status)
}

func TestTaskHandler_RejectsMissingBody(t *testing.T) {
	tests := []struct {
		name string
		req  func() *http.Request
		call func(h *TaskHandler, w http.ResponseWriter, r *http.Request)
	}{
		{
			name: "add without body",
			req:  func() *http.Request { return httptest.NewRequest(http.MethodPost, "/tasks/add", nil) },
			call: (*TaskHandler).Add,
		},
		{
			name: "add with empty form",
			req:  func() *http.Request { return formRequest("/tasks/add", url.Values{}) },
			call: (*TaskHandler).Add,
		},
		{
			name: "add with empty multipart",
			req: func() *http.Request {
				return multipartRequest(t, http.MethodPost, "/tasks/add", nil, "", "")
			},
			call: (*TaskHandler).Add,
		},
		{
			name: "update without body",
			req: func() *http.Request {
				return withID(httptest.NewRequest(http.MethodPut, "/tasks/4/update", nil), "4")
			},
			call: (*TaskHandler).Update,
		},
		{
			name: "update with empty form",
			req: func() *http.Request {
				req := withID(formRequest("/tasks/4/update", url.Values{}), "4")
				req.Method = http.MethodPut
				return req
			},
			call: (*TaskHandler).Update,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeTaskService{}
			rec := httptest.NewRecorder()
			tt.call(newTaskHandler(svc), rec, tt.req())

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, svc.called)
		})
	}
}

func TestTaskHandler_AddErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	newTaskHandler(&fakeTaskService{}).Add(rec, formRequest("/tasks/add", url.Values{"statusid": {"x"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	newTaskHandler(&fakeTaskService{err: service.ErrInvalidStatus}).
		Add(rec, formRequest("/tasks/add", url.Values{"statusid": {"9"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskHandler_UpdateClearsMissing(t *testing.T) {
	svc := &fakeTaskService{}
	req := withID(formRequest("/tasks/4/update", url.Values{"name": {"renamed"}}), "4")
	req.Method = http.MethodPut

	rec := httptest.NewRecorder()
	newTaskHandler(svc).Update(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, svc.gotID)
	title, ok := svc.gotFields.Title.Value()
	assert.True(t, ok)
	assert.Equal(t, "renamed", title)
	assert.True(t, svc.gotFields.StatusID.IsKeep())
	assert.True(t, svc.gotFields.CompletionDate.IsClear())
	assert.True(t, svc.gotFields.Attachment.IsClear())
}

func TestTaskHandler_UpdateEmptyDateClears(t *testing.T) {
	svc := &fakeTaskService{}
	req := withID(multipartRequest(t, http.MethodPut, "/tasks/4/update",
		map[string]string{"date": ""}, "new.bin", "x"), "4")

	rec := httptest.NewRecorder()
	newTaskHandler(svc).Update(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.gotFields.CompletionDate.IsClear())
	assert.Equal(t, "new.bin:x", svc.gotUpload)
}

func TestTaskHandler_UpdateErrors(t *testing.T) {
	tests := []struct {
		name string
		id   string
		err  error
		want int
	}{
		{"bad id", "abc", nil, http.StatusBadRequest},
		{"unknown task", "9", service.ErrTaskNotFound, http.StatusNotFound},
		{"bad status", "1", service.ErrInvalidStatus, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := withID(formRequest("/tasks/x/update", url.Values{"name": {"x"}}), tt.id)
			req.Method = http.MethodPut
			rec := httptest.NewRecorder()
			newTaskHandler(&fakeTaskService{err: tt.err}).Update(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestTaskHandler_Delete(t *testing.T) {
	svc := &fakeTaskService{}
	rec := httptest.NewRecorder()
	newTaskHandler(svc).Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/tasks/7/delete", nil), "7"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, svc.gotID)

	rec = httptest.NewRecorder()
	newTaskHandler(&fakeTaskService{err: service.ErrTaskNotFound}).
		Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/tasks/7/delete", nil), "7"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskHandler_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	svc := &fakeTaskService{attachPath: path, attachName: "report final.pdf"}
	rec := httptest.NewRecorder()
	newTaskHandler(svc).File(rec, withID(httptest.NewRequest(http.MethodGet, "/tasks/3/file", nil), "3"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, svc.gotID)
	assert.Equal(t, "payload", rec.Body.String())
	assert.Equal(t, `attachment; filename="report final.pdf"`, rec.Header().Get("Content-Disposition"))

	svc = &fakeTaskService{attachPath: path, attachName: "отчёт.pdf"}
	rec = httptest.NewRecorder()
	newTaskHandler(svc).File(rec, withID(httptest.NewRequest(http.MethodGet, "/tasks/3/file", nil), "3"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename*=utf-8''%D0%BE%D1%82%D1%87%D1%91%D1%82.pdf",
		rec.Header().Get("Content-Disposition"))

	rec = httptest.NewRecorder()
	newTaskHandler(&fakeTaskService{err: service.ErrAttachmentNotFound}).
		File(rec, withID(httptest.NewRequest(http.MethodGet, "/tasks/3/file", nil), "3"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskHandler_JSONShape(t *testing.T) {
	date, file := "2025-01-01", "a.txt"
	svc := &fakeTaskService{tasks: []models.Task{{ID: 1, Title: "A", CompletionDate: &date, File: &file}}}
	rec := httptest.NewRecorder()
	newTaskHandler(svc).List(rec, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	var out []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "2025-01-01", out[0]["completionDate"])
	assert.Equal(t, "a.txt", out[0]["file"])
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
}
