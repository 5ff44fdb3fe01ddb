package export

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	contentTypeCSV = "text/csv; charset=utf-8"
	dateLayout     = "2006-01-02"
	filePerm       = 0o644
)

// ErrEmptyDataset indicates an export filename was requested without a dataset label.
var ErrEmptyDataset = errors.New("dataset label cannot be empty")

// Filename returns the download name for a dataset export: <dataset>-<YYYY-MM-DD>.csv.
// The label is lowercased and characters outside [a-z0-9-] become "-".
//
// Example:
//
//	Filename("High Risk Users", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC))
//	// → "high-risk-users-2026-03-14.csv"
func Filename(dataset string, date time.Time) (string, error) {
	label := sanitizeLabel(dataset)
	if label == "" {
		return "", ErrEmptyDataset
	}

	return label + "-" + date.Format(dateLayout) + ".csv", nil
}

func sanitizeLabel(dataset string) string {
	var b strings.Builder

	lastDash := false

	for _, r := range strings.ToLower(strings.TrimSpace(dataset)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)

			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')

			lastDash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}

// WriteAttachment writes a serialized CSV payload as a file download.
// The payload must be complete: callers serialize first and only then call WriteAttachment,
// so a serialization failure never produces a truncated download.
func WriteAttachment(w http.ResponseWriter, filename, payload string) error {
	w.Header().Set("Content-Type", contentTypeCSV)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(payload)); err != nil {
		return fmt.Errorf("failed to write csv attachment: %w", err)
	}

	return nil
}

// SaveFile writes the payload to dir/filename and returns the final path.
//
// The payload is written to a temporary file in the same directory and renamed into place, so
// a failure part-way leaves no truncated export behind.
func SaveFile(dir, filename, payload string) (string, error) {
	if dir == "" {
		dir = "."
	}

	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd // standard directory permissions
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filename+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary export file: %w", err)
	}

	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.WriteString(payload); err != nil {
		cleanup()

		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)

		return "", fmt.Errorf("failed to close export file: %w", err)
	}

	if err := os.Chmod(tmpPath, filePerm); err != nil {
		_ = os.Remove(tmpPath)

		return "", fmt.Errorf("failed to set export file permissions: %w", err)
	}

	finalPath := filepath.Join(dir, filename)

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)

		return "", fmt.Errorf("failed to move export file into place: %w", err)
	}

	return finalPath, nil
}
