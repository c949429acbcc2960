package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/noteful/apiserver/internal/services"
	"github.com/sirupsen/logrus"
)

// TagHandler provides HTTP handlers for the caller's tags.
type TagHandler struct {
	tags *services.TagService
	log  logrus.FieldLogger
}

func NewTagHandler(tagService *services.TagService, log logrus.FieldLogger) *TagHandler {
	return &TagHandler{tags: tagService, log: log}
}

// TagRouter registers tag routes on the given router. Every route requires
// authentication.
func TagRouter(
	r chi.Router,
	tagService *services.TagService,
	authMiddleware func(http.Handler) http.Handler,
	log logrus.FieldLogger,
) {
	handler := NewTagHandler(tagService, log)

	r.Use(authMiddleware)
	r.Get("/", handler.ListTags)
	r.Post("/", handler.CreateTag)
	r.Route("/{tagID}", func(r chi.Router) {
		r.Get("/", handler.GetTag)
		r.Put("/", handler.UpdateTag)
		r.Delete("/", handler.DeleteTag)
	})
}

func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	tags, err := h.tags.List(r.Context(), identity.ID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, tags)
}

func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	tag, err := h.tags.Get(r.Context(), identity.ID, chi.URLParam(r, "tagID"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req TagRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	tag, err := h.tags.Create(r.Context(), identity.ID, req.Name)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	w.Header().Set("Location", locationFor(r, tag.ID))
	writeJSON(w, http.StatusCreated, tag)
}

func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	var req TagRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	tag, err := h.tags.Update(r.Context(), identity.ID, chi.URLParam(r, "tagID"), req.Name)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return
	}

	if err := h.tags.Delete(r.Context(), identity.ID, chi.URLParam(r, "tagID")); err != nil {
		respondError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type TagRequest struct {
	Name string `json:"name"`
}
