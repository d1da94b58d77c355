package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/coursegen/internal/course"
	"github.com/nikhilbhutani/coursegen/internal/models"
	"github.com/nikhilbhutani/coursegen/internal/pipeline"
)

const maxUploadBytes = 32 << 20

type CourseHandler struct {
	orch    *pipeline.Orchestrator
	courses *course.Service
}

func NewCourseHandler(orch *pipeline.Orchestrator, courses *course.Service) *CourseHandler {
	return &CourseHandler{orch: orch, courses: courses}
}

// Create accepts a multipart upload and starts generation. The response is
// 202 for every outcome: the course may already exist, be in flight or have
// been restarted.
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	difficulty, err := models.ParseDifficulty(r.FormValue("difficulty"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := pipeline.SubmitRequest{
		OwnerID:    ownerID,
		Filename:   header.Filename,
		MimeType:   mimeType(header.Header.Get("Content-Type"), data),
		Data:       data,
		Difficulty: difficulty,
		CourseType: models.CourseType(r.FormValue("courseType")),
	}

	if raw := r.FormValue("classId"); raw != "" {
		classID, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid classId")
			return
		}
		if req.CourseType == "" {
			req.CourseType = models.CourseTypeEducator
		}
		req.Variant = &models.CourseVariant{
			Educator: &models.EducatorDetails{ClassID: &classID, EnrollmentRequired: true},
		}
	}

	res, err := h.orch.Submit(r.Context(), req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	list, err := h.courses.List(r.Context(), ownerID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"courses": list, "count": len(list)})
}

func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.courses.Get(r.Context(), ownerID, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req course.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeErr(w, r, err)
		return
	}

	c, err := h.courses.Update(r.Context(), ownerID, id, req)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CourseHandler) Chapters(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	list, err := h.courses.Chapters(r.Context(), ownerID, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chapters": list, "count": len(list)})
}

func (h *CourseHandler) Chapter(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ch, err := h.courses.Chapter(r.Context(), ownerID, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (h *CourseHandler) Quiz(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := h.courses.Quiz(r.Context(), ownerID, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *CourseHandler) PublishQuiz(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := h.courses.PublishQuiz(r.Context(), ownerID, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *CourseHandler) Flashcards(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.courses.Flashcards(r.Context(), ownerID, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// mimeType prefers the part's declared type and sniffs the content when the
// client sent none.
func mimeType(declared string, data []byte) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return http.DetectContentType(data)
}
