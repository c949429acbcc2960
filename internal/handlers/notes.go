package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/noteful/apiserver/internal/services"
	"github.com/noteful/apiserver/types"
	"github.com/sirupsen/logrus"
)

// NoteHandler provides HTTP handlers for the caller's notes.
type NoteHandler struct {
	notes *services.NoteService
	log   logrus.FieldLogger
}

func NewNoteHandler(noteService *services.NoteService, log logrus.FieldLogger) *NoteHandler {
	return &NoteHandler{notes: noteService, log: log}
}

// NoteRouter registers note routes on the given router. Every route requires
// authentication.
func NoteRouter(
	r chi.Router,
	noteService *services.NoteService,
	authMiddleware func(http.Handler) http.Handler,
	log logrus.FieldLogger,
) {
	handler := NewNoteHandler(noteService, log)

	r.Use(authMiddleware)
	r.Get("/", handler.ListNotes)
	r.Post("/", handler.CreateNote)
	r.Route("/{noteID}", func(r chi.Router) {
		r.Get("/", handler.GetNote)
		r.Put("/", handler.UpdateNote)
		r.Delete("/", handler.DeleteNote)
	})
}

func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	query := r.URL.Query()
	notes, err := h.notes.List(r.Context(), identity.ID, types.NoteFilter{
		SearchTerm: query.Get("searchTerm"),
		TagID:      query.Get("tagId"),
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	note, err := h.notes.Get(r.Context(), identity.ID, chi.URLParam(r, "noteID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req NoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	note, err := h.notes.Create(r.Context(), identity.ID, req.input())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	w.Header().Set("Location", locationFor(r, note.ID))
	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req NoteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	note, err := h.notes.Update(r.Context(), identity.ID, chi.URLParam(r, "noteID"), req.input())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	if err := h.notes.Delete(r.Context(), identity.ID, chi.URLParam(r, "noteID")); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type NoteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func (req NoteRequest) input() services.NoteInput {
	return services.NoteInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	}
}
