package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/storyforge/stories"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// AUTH
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefreshToken, ChainMiddleware(s.RefreshTokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRevoke, ChainMiddleware(s.RevokeHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(func(w http.ResponseWriter, r *http.Request) {}, s.APIMiddleware()...))

	// STORY CATALOGUE
	s.RegisterRouteHandler("GET "+RouteStories, ChainMiddleware(s.ListStoriesHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteStories, ChainMiddleware(s.CreateStoryHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("DELETE "+RouteStory, ChainMiddleware(s.DeleteStoryHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("GET "+RouteDeletedStories, ChainMiddleware(s.ListDeletedStoriesHandler(), s.APIMiddleware(s.RequireAuth())...))
	s.RegisterRouteHandler("POST "+RouteRestoreStory, ChainMiddleware(s.RestoreStoryHandler(), s.APIMiddleware(s.RequireAuth())...))

	// STORY DOCUMENTS (require a bearer access token)
	for _, kind := range stories.Kinds {
		path := strings.Replace(RouteStoryDocument, "{kind}", string(kind), 1)
		s.RegisterRouteHandler("GET "+path, ChainMiddleware(s.GetDocumentHandler(kind), s.APIMiddleware(s.RequireAuth())...))
		s.RegisterRouteHandler("POST "+path, ChainMiddleware(s.SaveDocumentHandler(kind), s.APIMiddleware(s.RequireAuth())...))
	}
}
