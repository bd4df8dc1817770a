package utils

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/eventstats-backend-go/pkg/errors"
)

// Response represents a standard API response
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
	Meta      interface{} `json:"meta,omitempty"`
}

// ErrorResponse represents an error response with request context
type ErrorResponse struct {
	Success   bool        `json:"success"`
	Error     string      `json:"error"`
	Code      int         `json:"code"`
	Timestamp string      `json:"timestamp"`
	Request   RequestInfo `json:"request"`
	Details   interface{} `json:"details,omitempty"`
}

// RequestInfo provides context about the failed request
type RequestInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query,omitempty"`
}

// SendSuccess sends a successful response
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendCreated sends a 201 response
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendSuccessWithMeta sends a successful response with metadata
func SendSuccessWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Meta:      meta,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SendError sends an error response with request context
func SendError(c *gin.Context, statusCode int, message string) {
	sendError(c, statusCode, message, nil)
}

// SendAppError maps err to a response. AppErrors keep their code and
// details; anything else becomes a 500 with a generic message.
func SendAppError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		sendError(c, http.StatusInternalServerError, errors.ErrInternalServer.Message, nil)
		return
	}

	var details interface{}
	if appErr.Details != "" {
		details = map[string]interface{}{"message": appErr.Details}
	}
	sendError(c, appErr.Code, appErr.Message, details)
}

// SendValidationError sends a 422 listing every problem found
func SendValidationError(c *gin.Context, message string, problems []string) {
	sendError(c, http.StatusUnprocessableEntity, message, map[string]interface{}{"problems": problems})
}

func sendError(c *gin.Context, statusCode int, message string, details interface{}) {
	errorResponse := ErrorResponse{
		Success:   false,
		Error:     message,
		Code:      statusCode,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Request: RequestInfo{
			Method: c.Request.Method,
			Path:   c.Request.URL.Path,
			Query:  c.Request.URL.RawQuery,
		},
		Details: details,
	}

	if details == nil {
		switch statusCode {
		case http.StatusNotFound:
			if suggestions := generateNotFoundSuggestions(c.Request.URL.Path); len(suggestions) > 0 {
				errorResponse.Details = map[string]interface{}{
					"suggestions": suggestions,
					"message":     "The requested endpoint or resource does not exist. Check the suggestions below for similar endpoints.",
				}
			}
		case http.StatusMethodNotAllowed:
			errorResponse.Details = map[string]interface{}{
				"message": "The HTTP method is not supported for this endpoint.",
			}
		}
	}

	c.JSON(statusCode, errorResponse)
}

var commonEndpoints = []string{
	"/health",
	"/metrics",
	"/ws",
	"/api/v1/chart-types",
	"/api/v1/charts",
	"/api/v1/projects/:projectId/stats",
	"/api/v1/projects/:projectId/layout",
	"/api/v1/projects/:projectId/results",
	"/api/v1/projects/:projectId/report",
	"/api/v1/projects/:projectId/export.csv",
	"/api/v1/layout/columns",
	"/api/v1/layout/solve",
	"/api/v1/formula/evaluate",
	"/api/v1/media/aspect-ratio",
}

// suggestionKeywords maps a path fragment to the endpoint fragment it hints at
var suggestionKeywords = []struct {
	pathHint     string
	endpointHint string
}{
	{"chart-type", "chart-types"},
	{"chart", "/charts"},
	{"stat", "/stats"},
	{"layout", "layout"},
	{"result", "/results"},
	{"report", "/report"},
	{"export", "export"},
	{"csv", "export"},
	{"formula", "formula"},
	{"media", "media"},
	{"image", "media"},
	{"socket", "/ws"},
	{"health", "health"},
	{"metric", "metrics"},
}

// generateNotFoundSuggestions provides endpoint suggestions for 404 errors
func generateNotFoundSuggestions(path string) []string {
	pathLower := strings.ToLower(path)

	seen := make(map[string]bool)
	var unique []string
	for _, kw := range suggestionKeywords {
		if !strings.Contains(pathLower, kw.pathHint) {
			continue
		}
		for _, endpoint := range commonEndpoints {
			if strings.Contains(endpoint, kw.endpointHint) && !seen[endpoint] && len(unique) < 5 {
				seen[endpoint] = true
				unique = append(unique, endpoint)
			}
		}
	}
	return unique
}
