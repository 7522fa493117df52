package server

import (
	"net/http"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/stories"
	"github.com/rs/zerolog/log"
)

// GetDocumentHandler returns the caller's document of kind for a story. A
// document that was never saved comes back as {"json": null}.
func (s *Server) GetDocumentHandler(kind stories.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		storyID, err := stories.ParseStoryID(r.PathValue("storyId"))
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		doc, err := s.repos.Stories.Get(claims.UserID, kind, storyID)
		if errs.Is(err, errs.ErrNotFound) {
			writeJSON(w, http.StatusOK, stories.Document{})
			return
		}
		if err != nil {
			log.Err(err).Str("kind", string(kind)).Int64("story_id", storyID).Msg("document read failed")
			writeJSONError(w, "could not read document", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

// SaveDocumentHandler stores the body's "json" member as the document.
func (s *Server) SaveDocumentHandler(kind stories.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		storyID, err := stories.ParseStoryID(r.PathValue("storyId"))
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		var body stories.Document
		if err := decodeJSON(w, r, &body); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if body.Empty() {
			writeJSONError(w, `"json" is required`, http.StatusUnprocessableEntity)
			return
		}

		doc, err := s.repos.Stories.Put(claims.UserID, kind, storyID, body.JSON)
		if err != nil {
			log.Err(err).Str("kind", string(kind)).Int64("story_id", storyID).Msg("document write failed")
			writeJSONError(w, "could not save document", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "saved", "lastModified": doc.LastModified})
	}
}
