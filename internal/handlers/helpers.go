package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

// Pagination bounds applied to list endpoints.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// PathParam returns the path segment directly after the prefix, dropping any
// trailing segments. Empty when the path carries no parameter.
func PathParam(r *http.Request, prefix string) string {
	param := strings.TrimPrefix(r.URL.Path, prefix)
	if idx := strings.Index(param, "/"); idx >= 0 {
		param = param[:idx]
	}
	return param
}

// DomainParam returns the domain path segment after the prefix, lowercased
// to match how sites are registered.
func DomainParam(r *http.Request, prefix string) string {
	return strings.ToLower(PathParam(r, prefix))
}

// GetPaginationParams extracts pagination parameters from the query string.
// Returns page (0-indexed) and page_size (default 10, max 100).
func GetPaginationParams(r *http.Request) (page, pageSize int) {
	page = 0
	pageSize = DefaultPageSize

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p >= 0 {
			page = p
		}
	}

	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if ps, err := strconv.Atoi(pageSizeStr); err == nil && ps > 0 && ps <= MaxPageSize {
			pageSize = ps
		}
	}

	return page, pageSize
}
