package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteAuthRegister     = "/api/auth/register"
	RouteAuthLogin        = "/api/auth/login"
	RouteAuthRefreshToken = "/api/auth/refresh-token"
	RouteAuthRevoke       = "/api/auth/revoke"

	// Story document routes; one per stories.Kind
	RouteStoryDocument = "/api/{kind}/{storyId}"

	// Story catalogue routes
	RouteStories        = "/api/story"
	RouteStory          = "/api/story/{storyId}"
	RouteDeletedStories = "/api/story/deleted"
	RouteRestoreStory   = "/api/story/restore/{storyId}"

	RouteHealth = "/healthz"
)
