package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shrimpsizemoose/gradebook/internal/app"
	"github.com/shrimpsizemoose/gradebook/internal/models"
)

// ReviewHandler serves grade reviews and their results.
type ReviewHandler struct {
	service *app.Service
}

func NewReviewHandler(service *app.Service) *ReviewHandler {
	return &ReviewHandler{service: service}
}

func (h *ReviewHandler) Register(r chi.Router) {
	r.Get("/grade-types/{id}/reviews", h.HandleListReviews)
	r.Get("/courses/{course}/reviews", h.HandleListCourseReviews)

	r.Post("/grade-reviews", h.HandleCreateReview)
	r.Get("/grade-reviews/{id}", h.HandleGetReview)
	r.Patch("/grade-reviews/{id}", h.HandleUpdateReview)
	r.Delete("/grade-reviews/{id}", h.HandleDeleteReview)
	r.Post("/grade-reviews/{id}/results", h.HandleCreateResult)
	r.Put("/grade-reviews/{id}/results", h.HandleReassignResult)
	r.Put("/grade-reviews/{id}/finalize", h.HandleFinalize)
}

func (h *ReviewHandler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListReviews(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("student_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": reviews})
}

func (h *ReviewHandler) HandleListCourseReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListCourseReviews(r.Context(), chi.URLParam(r, "course"), r.URL.Query().Get("student_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": reviews})
}

func (h *ReviewHandler) HandleCreateReview(w http.ResponseWriter, r *http.Request) {
	id := identify(h.service, r)
	if !requireUser(w, r, id) {
		return
	}
	var in app.CreateReviewInput
	if !decode(w, r, &in) {
		return
	}
	in.UserID = id.UserID
	in.StudentID = id.StudentID

	created, err := h.service.CreateReview(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *ReviewHandler) HandleGetReview(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.GetReview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *ReviewHandler) HandleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var in app.UpdateReviewInput
	if !decode(w, r, &in) {
		return
	}
	updated, err := h.service.UpdateReview(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ReviewHandler) HandleDeleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteReview(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) HandleCreateResult(w http.ResponseWriter, r *http.Request) {
	h.handleResult(w, r, http.StatusCreated, h.service.CreateResult)
}

func (h *ReviewHandler) HandleReassignResult(w http.ResponseWriter, r *http.Request) {
	h.handleResult(w, r, http.StatusOK, h.service.ReassignResult)
}

func (h *ReviewHandler) handleResult(w http.ResponseWriter, r *http.Request, status int,
	run func(ctx context.Context, reviewID string, in app.ResultInput) (*models.GradeReviewResult, error)) {
	id := identify(h.service, r)
	if !requireUser(w, r, id) {
		return
	}
	var in app.ResultInput
	if !decode(w, r, &in) {
		return
	}
	in.TeacherID = id.UserID

	e, err := run(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, e)
}

func (h *ReviewHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	id := identify(h.service, r)
	if !requireUser(w, r, id) {
		return
	}
	d, err := h.service.FinalizeReview(r.Context(), chi.URLParam(r, "id"), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
