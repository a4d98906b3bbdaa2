package respond

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"

	"example.com/dirserve/internal/dispatch"
	"example.com/dirserve/internal/logger"
)

// ErrorDetail represents the inner structure of a JSON error response.
type ErrorDetail struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
}

// ErrorResponseJSON represents the full JSON error response body.
type ErrorResponseJSON struct {
	Error ErrorDetail `json:"error"`
}

// defaultHTMLMessages maps HTTP status codes to their default HTML pages.
var defaultHTMLMessages = map[int]struct {
	Title   string
	Heading string
	Message string
}{
	http.StatusNotFound: {
		Title:   "404 Not Found",
		Heading: "Not Found",
		Message: "The requested resource was not found on this server.",
	},
	http.StatusInternalServerError: {
		Title:   "500 Internal Server Error",
		Heading: "Internal Server Error",
		Message: "The server encountered an internal error and was unable to complete your request.",
	},
	http.StatusForbidden: {
		Title:   "403 Forbidden",
		Heading: "Forbidden",
		Message: "You do not have permission to access this resource.",
	},
	http.StatusMethodNotAllowed: {
		Title:   "405 Method Not Allowed",
		Heading: "Method Not Allowed",
		Message: "The method is not allowed for this resource.",
	},
	http.StatusBadRequest: {
		Title:   "400 Bad Request",
		Heading: "Bad Request",
		Message: "The server cannot or will not process the request due to an apparent client error.",
	},
}

// WriteError sends a default error response, negotiating between HTML
// and JSON on the Accept header. It is a no-op when a response was
// already written, so it is always safe to call after a failed dispatch.
func WriteError(rs *dispatch.ResponseState, req *http.Request, statusCode int, detail string, log *logger.Logger) {
	if rs.Written() {
		return
	}

	statusText := http.StatusText(statusCode)
	if statusText == "" {
		statusText = "Error"
	}

	accept := ""
	if req != nil {
		accept = req.Header.Get("Accept")
	}

	var body []byte
	var contentType string
	if PrefersJSON(accept) {
		contentType = "application/json; charset=utf-8"
		var err error
		body, err = json.Marshal(ErrorResponseJSON{Error: ErrorDetail{
			StatusCode: statusCode,
			Message:    statusText,
			Detail:     detail,
		}})
		if err != nil {
			if log != nil {
				log.Error("respond: failed to marshal JSON error body, falling back to HTML", logger.LogFields{
					"status": statusCode,
					"error":  err.Error(),
				})
			}
			body = nil
		}
	}

	if body == nil {
		contentType = "text/html; charset=utf-8"
		body = errorHTMLBody(statusCode, statusText, detail)
	}

	rs.Header().Set("Content-Type", contentType)
	rs.Header().Set("Content-Length", strconv.Itoa(len(body)))
	// Error responses must not be cached.
	rs.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	rs.WriteHeader(statusCode)

	if req != nil && req.Method == http.MethodHead {
		return
	}
	if _, err := rs.Write(body); err != nil && log != nil {
		log.Error("respond: failed to write error body", logger.LogFields{
			"status": statusCode,
			"error":  err.Error(),
		})
	}
}

// errorHTMLBody builds the HTML error page for a status code. The detail
// is escaped and appended to the stock message when present.
func errorHTMLBody(statusCode int, statusText, detail string) []byte {
	var title, heading, message string
	if info, ok := defaultHTMLMessages[statusCode]; ok {
		title, heading, message = info.Title, info.Heading, info.Message
		if detail != "" {
			message = message + " " + html.EscapeString(detail)
		}
	} else {
		title = fmt.Sprintf("%d %s", statusCode, statusText)
		heading = statusText
		if detail != "" {
			message = html.EscapeString(detail)
		} else {
			message = "The server encountered an error processing your request."
		}
	}

	page := fmt.Sprintf(`<html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>`,
		html.EscapeString(title), html.EscapeString(heading), message)
	return []byte(page)
}
