package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shrimpsizemoose/gradebook/internal/app"
)

// StructureHandler serves grade structures and grade types.
type StructureHandler struct {
	service *app.Service
}

func NewStructureHandler(service *app.Service) *StructureHandler {
	return &StructureHandler{service: service}
}

func (h *StructureHandler) Register(r chi.Router) {
	r.Post("/grade-structures", h.HandleCreateStructure)
	r.Get("/grade-structures/{id}", h.HandleGetStructure)
	r.Patch("/grade-structures/{id}", h.HandleUpdateStructure)
	r.Delete("/grade-structures/{id}", h.HandleDeleteStructure)
	r.Put("/grade-structures/{id}/finalize", h.HandleFinalizeStructure)
	r.Get("/grade-structures/{id}/board", h.HandleBoard)
	r.Post("/grade-structures/{id}/types", h.HandleCreateType)
	r.Put("/grade-structures/{id}/types", h.HandleUpsertTypes)
	r.Get("/courses/{course}/grade-structure", h.HandleGetCourseStructure)

	r.Get("/grade-types/{id}", h.HandleGetType)
	r.Patch("/grade-types/{id}", h.HandleUpdateType)
	r.Delete("/grade-types/{id}", h.HandleDeleteType)
	r.Post("/grade-types/{id}/sub-types", h.HandleAddSubType)
	r.Put("/grade-types/{id}/finalize", h.HandleFinalizeType)
}

func (h *StructureHandler) HandleCreateStructure(w http.ResponseWriter, r *http.Request) {
	var in app.CreateStructureInput
	if !decode(w, r, &in) {
		return
	}
	if in.CourseID == "" {
		in.CourseID = identify(h.service, r).CourseID
	}
	gs, err := h.service.CreateStructure(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, gs)
}

func (h *StructureHandler) HandleGetStructure(w http.ResponseWriter, r *http.Request) {
	gs, err := h.service.GetStructure(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

func (h *StructureHandler) HandleGetCourseStructure(w http.ResponseWriter, r *http.Request) {
	gs, err := h.service.GetStructureByCourse(r.Context(), chi.URLParam(r, "course"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

func (h *StructureHandler) HandleUpdateStructure(w http.ResponseWriter, r *http.Request) {
	var in app.UpdateStructureInput
	if !decode(w, r, &in) {
		return
	}
	gs, err := h.service.UpdateStructure(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

func (h *StructureHandler) HandleDeleteStructure(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteStructure(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StructureHandler) finalizeInput(w http.ResponseWriter, r *http.Request) (app.FinalizeInput, bool) {
	id := identify(h.service, r)
	if !requireUser(w, r, id) {
		return app.FinalizeInput{}, false
	}
	var in app.FinalizeInput
	if r.ContentLength != 0 && !decode(w, r, &in) {
		return app.FinalizeInput{}, false
	}
	in.UserID = id.UserID
	return in, true
}

func (h *StructureHandler) HandleFinalizeStructure(w http.ResponseWriter, r *http.Request) {
	in, ok := h.finalizeInput(w, r)
	if !ok {
		return
	}
	gs, err := h.service.FinalizeStructure(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

func (h *StructureHandler) HandleBoard(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.GradeBoardByStructure(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, "grade-board.xlsx", data)
}

func (h *StructureHandler) HandleCreateType(w http.ResponseWriter, r *http.Request) {
	var in app.GradeTypeInput
	if !decode(w, r, &in) {
		return
	}
	gt, err := h.service.CreateType(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, gt)
}

func (h *StructureHandler) HandleUpsertTypes(w http.ResponseWriter, r *http.Request) {
	var in []app.GradeTypeInput
	if !decode(w, r, &in) {
		return
	}
	types, err := h.service.UpsertTypes(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("parent_id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": types})
}

func (h *StructureHandler) HandleGetType(w http.ResponseWriter, r *http.Request) {
	gt, err := h.service.GetType(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gt)
}

func (h *StructureHandler) HandleUpdateType(w http.ResponseWriter, r *http.Request) {
	var in app.UpdateTypeInput
	if !decode(w, r, &in) {
		return
	}
	gt, err := h.service.UpdateType(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gt)
}

func (h *StructureHandler) HandleDeleteType(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteType(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *StructureHandler) HandleAddSubType(w http.ResponseWriter, r *http.Request) {
	var in app.GradeTypeInput
	if !decode(w, r, &in) {
		return
	}
	gt, err := h.service.AddSubType(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, gt)
}

func (h *StructureHandler) HandleFinalizeType(w http.ResponseWriter, r *http.Request) {
	in, ok := h.finalizeInput(w, r)
	if !ok {
		return
	}
	gt, err := h.service.FinalizeType(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gt)
}
