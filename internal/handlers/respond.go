package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/app"
	"github.com/shrimpsizemoose/gradebook/internal/apperr"
	"github.com/shrimpsizemoose/gradebook/internal/export"
)

const maxUpload = 10 << 20

type errorBody struct {
	Error   apperr.Kind `json:"error"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.Error.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		logger.Debug.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorBody{Error: kind, Message: apperr.Message(err)})
}

func writeFile(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpload)).Decode(v); err != nil {
		writeError(w, r, apperr.Validation("invalid request body: %v", err))
		return false
	}
	return true
}

// readUpload returns the uploaded file of a multipart form field "file", or
// the raw body for any other content type.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return io.ReadAll(r.Body)
	}

	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return nil, fmt.Errorf("invalid upload: %w", err)
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file: %w", err)
	}
	defer file.Close()
	return io.ReadAll(file)
}

type identity struct {
	UserID    string
	StudentID string
	CourseID  string
}

func identify(service *app.Service, r *http.Request) identity {
	api := service.Config.API
	return identity{
		UserID:    r.Header.Get(api.UserIDHeader),
		StudentID: r.Header.Get(api.StudentIDHeader),
		CourseID:  r.Header.Get(api.CourseIDHeader),
	}
}

var errNoUser = errors.New("missing user id")

func requireUser(w http.ResponseWriter, r *http.Request, id identity) bool {
	if id.UserID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: apperr.KindValidation, Message: errNoUser.Error()})
		return false
	}
	return true
}
