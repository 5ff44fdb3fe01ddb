package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// problemDetail mirrors api.ProblemDetail. It is duplicated here because middleware cannot
// import package api without an import cycle.
type problemDetail struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	Detail        string `json:"detail"`
	Instance      string `json:"instance"`
	CorrelationID string `json:"correlation_id,omitempty"` //nolint:tagliatelle
}

// writeRFC7807Error writes an RFC 7807 problem+json response.
func writeRFC7807Error(w http.ResponseWriter, r *http.Request, statusCode int, detail, correlationID string) error {
	problem := problemDetail{
		Type:          fmt.Sprintf("https://secdash.local/problems/%d", statusCode),
		Title:         http.StatusText(statusCode),
		Status:        statusCode,
		Detail:        detail,
		Instance:      r.URL.Path,
		CorrelationID: correlationID,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		return fmt.Errorf("failed to encode problem detail: %w", err)
	}

	return nil
}
