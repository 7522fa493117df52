package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/storyforge/auth"
	"github.com/jrsteele09/storyforge/internal/config"
	"github.com/jrsteele09/storyforge/stories"
	"github.com/jrsteele09/storyforge/token"
	"github.com/jrsteele09/storyforge/token/refresh"
	"github.com/jrsteele09/storyforge/users"
	"github.com/rs/zerolog/log"
)

// Repos is the storage the dev backend runs on.
type Repos struct {
	Users         users.UserRepo
	RefreshTokens refresh.Repo
	Stories       stories.Repo
}

// Server is the development story API: account auth with rotating refresh
// tokens plus per-story document storage.
type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	repos    Repos
	accounts *auth.AccountService
}

func New(config config.Config, repos Repos) (*Server, error) {
	tokens := token.New(token.NewHMACSigner(config.GetJWTSecret()),
		token.WithIssuer(config.GetIssuer()),
		token.WithAccessTokenExpiry(config.GetDefaultAccessTokenExpiry()),
	)
	accounts, err := auth.NewAccountService(repos.Users, tokens, refresh.NewManager(repos.RefreshTokens, config))
	if err != nil {
		return nil, fmt.Errorf("[Server New] %w", err)
	}

	s := &Server{
		env:      config.GetEnv(),
		mux:      http.NewServeMux(),
		config:   config,
		repos:    repos,
		accounts: accounts,
	}

	if err := s.InitialiseSystem(); err != nil {
		return nil, fmt.Errorf("[Server New] Failed to initialise the system: %w", err)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// RunMaintenance drops expired entries from the access token revocation list
// every interval until ctx is done.
func (s *Server) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.accounts.CleanupRevokedTokens()
		}
	}
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}
