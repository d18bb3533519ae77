package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shrimpsizemoose/gradebook/internal/app"
	"github.com/shrimpsizemoose/gradebook/internal/apperr"
)

// ScoreHandler serves student grades and the sheet import/export endpoints.
type ScoreHandler struct {
	service *app.Service
}

func NewScoreHandler(service *app.Service) *ScoreHandler {
	return &ScoreHandler{service: service}
}

func (h *ScoreHandler) Register(r chi.Router) {
	r.Get("/grade-types/{id}/scores", h.HandleListScores)
	r.Post("/grade-types/{id}/scores", h.HandleAddScore)
	r.Get("/grade-types/{id}/template", h.HandleTemplate)
	r.Post("/grade-types/{id}/import", h.HandleImport)
	r.Get("/grade-types/{id}/me", h.HandleStudentView)

	r.Patch("/scores/{id}", h.HandleUpdateScore)
	r.Delete("/scores/{id}", h.HandleDeleteScore)
	r.Put("/courses/{course}/students/{student}/scores", h.HandleUpsertStudentScores)
	r.Get("/courses/{course}/board", h.HandleCourseBoard)
}

func (h *ScoreHandler) HandleListScores(w http.ResponseWriter, r *http.Request) {
	scores, err := h.service.ListScores(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": scores})
}

func (h *ScoreHandler) HandleAddScore(w http.ResponseWriter, r *http.Request) {
	var in app.ScoreInput
	if !decode(w, r, &in) {
		return
	}
	g, err := h.service.AddScore(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

type pointBody struct {
	Point *float64 `json:"point"`
}

func (h *ScoreHandler) HandleUpdateScore(w http.ResponseWriter, r *http.Request) {
	var in pointBody
	if !decode(w, r, &in) {
		return
	}
	if in.Point == nil {
		writeError(w, r, apperr.Validation("point is required"))
		return
	}
	g, err := h.service.UpdateScore(r.Context(), chi.URLParam(r, "id"), *in.Point)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *ScoreHandler) HandleDeleteScore(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteScore(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScoreHandler) HandleUpsertStudentScores(w http.ResponseWriter, r *http.Request) {
	var in []app.TypePointInput
	if !decode(w, r, &in) {
		return
	}
	grades, err := h.service.UpsertStudentScores(r.Context(), chi.URLParam(r, "course"), chi.URLParam(r, "student"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": grades})
}

func (h *ScoreHandler) HandleTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ImportTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, "grade-template.xlsx", data)
}

func (h *ScoreHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	data, err := readUpload(w, r)
	if err != nil {
		writeError(w, r, apperr.Validation("%v", err))
		return
	}
	result, err := h.service.ImportScores(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ScoreHandler) HandleStudentView(w http.ResponseWriter, r *http.Request) {
	id := identify(h.service, r)
	studentID := id.StudentID
	if studentID == "" {
		studentID = r.URL.Query().Get("student_id")
	}
	if studentID == "" {
		writeError(w, r, apperr.Validation("student id is required"))
		return
	}
	view, err := h.service.StudentView(r.Context(), chi.URLParam(r, "id"), studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ScoreHandler) HandleCourseBoard(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.GradeBoard(r.Context(), chi.URLParam(r, "course"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, "grade-board.xlsx", data)
}
