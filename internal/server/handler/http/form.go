package http

import (
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// maxUploadMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const maxUploadMemory = 32 << 20

var (
	errBadID  = errors.New("bad task id")
	errNoBody = errors.New("missing form body")
)

// parseForm parses an urlencoded or multipart body into r.PostForm.
func parseForm(r *http.Request) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		return r.ParseMultipartForm(maxUploadMemory)
	}
	return r.ParseForm()
}

// hasFormBody reports whether a parsed request carried any form field or
// uploaded part.
func hasFormBody(r *http.Request) bool {
	if r.MultipartForm != nil {
		return len(r.MultipartForm.Value) > 0 || len(r.MultipartForm.File) > 0
	}
	return len(r.PostForm) > 0
}

// postValue returns a body field and whether it was sent at all.
func postValue(r *http.Request, key string) (string, bool) {
	vs, ok := r.PostForm[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func taskID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, errBadID
	}
	return id, nil
}
