package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/gradebook/internal/app"
	"github.com/shrimpsizemoose/gradebook/internal/export"
	"github.com/shrimpsizemoose/gradebook/internal/models"
	"github.com/shrimpsizemoose/gradebook/internal/notify"
)

const testConfig = `
[server]
port = ":0"

[database]
dsn = ":memory:"
migrations_dir = "../../migrations"

[[api.required_headers]]
name = "X-Gradebook-Token"
value = "secret"
`

func setupRouter(t *testing.T) http.Handler {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))

	config, err := app.LoadConfig(path)
	require.NoError(t, err)
	s, err := app.NewStore(config)
	require.NoError(t, err)

	service := app.NewServiceWith(config, s, notify.LogPublisher{})
	t.Cleanup(func() { service.Close() })
	return NewRouter(service)
}

type call struct {
	method  string
	path    string
	body    interface{}
	raw     []byte
	user    string
	student string
	course  string
}

func do(t *testing.T, router http.Handler, c call) *httptest.ResponseRecorder {
	var body []byte
	switch {
	case c.raw != nil:
		body = c.raw
	case c.body != nil:
		var err error
		body, err = json.Marshal(c.body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(c.method, "/api/v1"+c.path, bytes.NewReader(body))
	req.Header.Set("X-Gradebook-Token", "secret")
	if c.user != "" {
		req.Header.Set("X-User-Id", c.user)
	}
	if c.student != "" {
		req.Header.Set("X-Student-Id", c.student)
	}
	if c.course != "" {
		req.Header.Set("X-Course-Id", c.course)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestRequiredHeaders(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/cs101/grade-structure", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, call{method: http.MethodGet, path: "/courses/cs101/grade-structure"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body errorBody
	decodeBody(t, rec, &body)
	assert.Equal(t, "not_found", string(body.Error))
}

func TestReviewFlow(t *testing.T) {
	router := setupRouter(t)

	rec := do(t, router, call{
		method: http.MethodPost,
		path:   "/grade-structures",
		course: "cs101",
		body: map[string]interface{}{
			"name":        "CS101 grading",
			"grade_types": []map[string]interface{}{{"label": "Final", "percentage": 100}},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var gs models.GradeStructure
	decodeBody(t, rec, &gs)
	assert.Equal(t, "cs101", gs.CourseID)
	require.Len(t, gs.GradeTypes, 1)
	final := gs.GradeTypes[0].ID

	rec = do(t, router, call{method: http.MethodPost, path: "/grade-types/" + final + "/scores",
		body: map[string]interface{}{"student_id": "alice", "point": 5}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, call{method: http.MethodPost, path: "/grade-reviews", user: "u-alice", student: "alice",
		body: map[string]interface{}{"grade_type_id": final, "topic": "recheck", "expected_grade": 8, "recipient_ids": []string{"teacher"}}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var r models.GradeReview
	decodeBody(t, rec, &r)

	rec = do(t, router, call{method: http.MethodPut, path: "/grade-reviews/" + r.ID + "/finalize", user: "teacher"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, call{method: http.MethodPost, path: "/grade-reviews/" + r.ID + "/results",
		body: map[string]interface{}{"point": 7}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, call{method: http.MethodPost, path: "/grade-reviews/" + r.ID + "/results", user: "teacher",
		body: map[string]interface{}{"point": 7, "feedback": "partially"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e models.GradeReviewResult
	decodeBody(t, rec, &e)
	assert.Equal(t, models.ResultEventAssign, e.Event)
	assert.Equal(t, 1, e.Version)

	rec = do(t, router, call{method: http.MethodPut, path: "/grade-reviews/" + r.ID + "/results", user: "teacher",
		body: map[string]interface{}{"point": 8}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, call{method: http.MethodPut, path: "/grade-reviews/" + r.ID + "/finalize", user: "teacher"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var d app.ReviewDetail
	decodeBody(t, rec, &d)
	assert.Equal(t, models.ReviewStatusDone, d.Status)
	assert.Equal(t, 3, d.Version)
	assert.Equal(t, 8.0, d.Point)

	rec = do(t, router, call{method: http.MethodGet, path: "/grade-types/" + final + "/scores"})
	require.Equal(t, http.StatusOK, rec.Code)
	var scores struct {
		Rows []app.Score `json:"rows"`
	}
	decodeBody(t, rec, &scores)
	require.Len(t, scores.Rows, 1)
	assert.Equal(t, 8.0, scores.Rows[0].Point)
	assert.Equal(t, models.ReviewSummaryDone, scores.Rows[0].ReviewStatus)

	rec = do(t, router, call{method: http.MethodPatch, path: "/grade-reviews/" + r.ID,
		body: map[string]interface{}{"topic": "again"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSheets(t *testing.T) {
	router := setupRouter(t)

	rec := do(t, router, call{
		method: http.MethodPost,
		path:   "/grade-structures",
		body: map[string]interface{}{
			"course_id": "cs101",
			"name":      "CS101 grading",
			"grade_types": []map[string]interface{}{
				{"label": "Midterm", "percentage": 40, "grade_sub_types": []map[string]interface{}{
					{"label": "Theory", "percentage": 60},
					{"label": "Practice", "percentage": 40},
				}},
				{"label": "Final", "percentage": 60},
			},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var gs models.GradeStructure
	decodeBody(t, rec, &gs)
	final := gs.GradeTypes[1].ID

	upload, err := export.WriteTemplate([][]string{{"StudentId", "Grade"}, {"alice", "7"}, {"bob", "4.5"}})
	require.NoError(t, err)

	rec = do(t, router, call{method: http.MethodPost, path: "/grade-types/" + final + "/import", raw: upload})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result app.ImportResult
	decodeBody(t, rec, &result)
	assert.Equal(t, app.ImportResult{Inserted: 2}, result)

	rec = do(t, router, call{method: http.MethodGet, path: "/grade-types/" + final + "/template"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))

	rec = do(t, router, call{method: http.MethodGet, path: "/grade-structures/" + gs.ID + "/board"})
	require.Equal(t, http.StatusOK, rec.Code)
	rows, err := export.ReadRows(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "bob", rows[len(rows)-1][0])

	rec = do(t, router, call{method: http.MethodPost, path: "/grade-types/" + final + "/import", raw: []byte("not a sheet")})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, call{method: http.MethodGet, path: "/grade-types/" + final + "/me", student: "alice"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, router, call{method: http.MethodPut, path: "/grade-types/" + final + "/finalize", user: "teacher"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, router, call{method: http.MethodGet, path: "/grade-types/" + final + "/me", student: "alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view app.StudentGrade
	decodeBody(t, rec, &view)
	require.NotNil(t, view.Point)
	assert.Equal(t, 7.0, *view.Point)
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
