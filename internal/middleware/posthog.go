package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/portfolio_ledger/internal/utils"
	"github.com/gin-gonic/gin"
)

// pathsToSkip contains paths that should not be tracked by PostHog
var pathsToSkip = map[string]bool{
	"/health": true,
}

// PosthogMiddleware creates a Gin middleware handler that tracks API events with PostHog
func PosthogMiddleware(posthogClient *utils.PosthogClientWrapper) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip if PostHog is not initialized or path is in skip list
		if posthogClient == nil || !posthogClient.IsInitialized() || pathsToSkip[c.Request.URL.Path] {
			c.Next()
			return
		}

		// Process request first
		c.Next()

		// Skip rejected requests; only completed ledger actions are tracked
		if len(c.Errors) > 0 || c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		// Get account ID from context (set by auth middleware)
		accountID, exists := GetAccountIDFromContext(c)
		if !exists {
			// Public route, nobody to attribute the event to
			return
		}

		// Skip if event name is empty (e.g., for 404s)
		eventName := posthogEventName(c.FullPath())
		if eventName == "" {
			return
		}

		// Prepare event properties
		props := map[string]any{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
		}

		// Add route parameters if any (e.g., the quoted symbol)
		if len(c.Params) > 0 {
			params := make(map[string]string)
			for _, param := range c.Params {
				params[param.Key] = param.Value
			}
			props["params"] = params
		}

		// Send event to PostHog
		posthogClient.Enqueue(accountID, eventName, props)
	}
}

// posthogEventName derives the event name from the route pattern
// (e.g., "/api/v1/quotes/:symbol" -> "api_v1_quotes_symbol").
func posthogEventName(fullPath string) string {
	eventName := strings.TrimPrefix(fullPath, "/")
	eventName = strings.ReplaceAll(eventName, "/", "_")
	return strings.ReplaceAll(eventName, ":", "")
}
