package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
)

const (
	contentJSON    = "application/json"
	contentProblem = "application/problem+json"
	maxBodyBytes   = 1 << 20
)

// ProblemDetail is an RFC7807 problem document.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data with status. Responses carry user scoped figures and are never cached.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, contentJSON, data)
}

// Problem writes an RFC7807 response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	write(w, status, contentProblem, ProblemDetail{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

// write encodes before touching the header so an encoding failure still yields a clean 500.
func write(w http.ResponseWriter, status int, contentType string, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		status, contentType = http.StatusInternalServerError, contentProblem
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(ProblemDetail{Type: "about:blank", Title: "Internal Error", Status: status})
	}
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// DecodeJSON strictly decodes a request body of at most 1 MiB into target.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
