package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Error codes carried in the envelope's code field.
const (
	CodeBadRequest       = "bad_request"
	CodeInvalidTicker    = "invalid_ticker"
	CodeNotFound         = "not_found"
	CodeNoBitcoinPrice   = "no_bitcoin_price"
	CodeUpstream         = "upstream_unavailable"
	CodeRateLimited      = "rate_limited"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeInternal         = "internal_error"
)

// Envelope is the standard format for REST API responses.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Code      string      `json:"code,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// WriteJSON writes a successful envelope with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	writeEnvelope(w, statusCode, Envelope{Success: true, Data: data})
}

// WriteError writes a failed envelope.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteErrorWithCode(w, statusCode, message, "")
}

// WriteErrorWithCode writes a failed envelope with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	writeEnvelope(w, statusCode, Envelope{Error: message, Code: code})
}

func writeEnvelope(w http.ResponseWriter, statusCode int, env Envelope) {
	env.Timestamp = time.Now().UTC()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(env)
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteErrorWithCode(w, http.StatusMethodNotAllowed, "Method not allowed", CodeMethodNotAllowed)
	return false
}

// PathParam extracts a path parameter from the URL path.
// For /api/companies/{ticker}, PathParam(r, "/api/companies/", "") returns {ticker}.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix: return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// QueryInt parses an integer query parameter. A missing parameter yields
// def; a malformed one or one outside [min, max] yields ok=false.
func QueryInt(r *http.Request, name string, def, min, max int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, false
	}
	return v, true
}

// QueryBool parses a boolean query parameter; anything unparseable is false.
func QueryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
