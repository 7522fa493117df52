package server

import (
	"net/http"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/jrsteele09/storyforge/stories"
	"github.com/rs/zerolog/log"
)

func (s *Server) ListStoriesHandler() http.HandlerFunc {
	return s.listStories(s.repos.Stories.List)
}

// ListDeletedStoriesHandler returns the caller's stories that are in the bin.
func (s *Server) ListDeletedStoriesHandler() http.HandlerFunc {
	return s.listStories(s.repos.Stories.ListDeleted)
}

func (s *Server) listStories(list func(ownerID string) ([]stories.Story, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		out, err := list(claims.UserID)
		if err != nil {
			log.Err(err).Str("user_id", claims.UserID).Msg("story list failed")
			writeJSONError(w, "could not list stories", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) CreateStoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())

		var req stories.CreateStoryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := req.Validate(); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		story, err := s.repos.Stories.Create(claims.UserID, req)
		if err != nil {
			log.Err(err).Str("user_id", claims.UserID).Msg("story create failed")
			writeJSONError(w, "could not create story", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, story)
	}
}

// DeleteStoryHandler moves a story to the bin. Its documents are kept.
func (s *Server) DeleteStoryHandler() http.HandlerFunc {
	return s.changeStory("delete", s.repos.Stories.Delete, http.StatusNoContent)
}

func (s *Server) RestoreStoryHandler() http.HandlerFunc {
	return s.changeStory("restore", s.repos.Stories.Restore, http.StatusOK)
}

func (s *Server) changeStory(action string, change func(ownerID string, storyID int64) error, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		storyID, err := stories.ParseStoryID(r.PathValue("storyId"))
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		err = change(claims.UserID, storyID)
		if errs.Is(err, errs.ErrNotFound) {
			writeJSONError(w, "story not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Err(err).Str("action", action).Int64("story_id", storyID).Msg("story update failed")
			writeJSONError(w, "could not "+action+" story", http.StatusInternalServerError)
			return
		}
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, map[string]string{"message": action + "d"})
	}
}
