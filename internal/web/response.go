// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package web

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"lexscan/internal/extraction"
	"lexscan/internal/formatters"
	"lexscan/internal/orchestrator"
	"lexscan/internal/paths"
	"lexscan/internal/versioning"

	"github.com/go-playground/validator/v10"
)

// Response is the envelope for every JSON reply
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Response{Success: true, Data: data}); err != nil {
		s.log.Warn().Err(err).Msg("failed to write response")
	}
}

// sendReport writes report in the format named by the format query
// parameter, or as a JSON envelope holding data when none is given
func (s *Server) sendReport(w http.ResponseWriter, r *http.Request, report formatters.Report, data any) {
	format := r.URL.Query().Get("format")
	if format == "" || format == "json" {
		s.sendJSON(w, http.StatusOK, data)
		return
	}
	content, mimeType, filename, err := formatters.ExportForWeb(format, report, formatters.FormatterOptions{
		NoColor:  true,
		Verbose:  r.URL.Query().Get("verbose") == "true",
		ShowText: r.URL.Query().Get("show_text") == "true",
	})
	if err != nil {
		s.sendError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(content))
}

// sendError sends an error response with enhanced error information
func (s *Server) sendError(w http.ResponseWriter, message string) {
	s.sendErrorWithStatus(w, message, http.StatusBadRequest)
}

// sendErrorWithStatus sends an error response with a specific HTTP status code
func (s *Server) sendErrorWithStatus(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   enhanceErrorMessage(message, statusCode),
	})
}

// sendFailure maps err to a status code and sends it
func (s *Server) sendFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.sendErrorWithStatus(w, err.Error(), status)
}

func statusFor(err error) int {
	var verrs validator.ValidationErrors
	var bad errInvalidBody
	var badPath *paths.PathValidationError
	switch {
	case errors.As(err, &verrs), errors.As(err, &bad), errors.As(err, &badPath):
		return http.StatusBadRequest
	case errors.Is(err, versioning.ErrDocumentNotFound),
		errors.Is(err, versioning.ErrVersionNotFound),
		errors.Is(err, versioning.ErrBranchNotFound),
		errors.Is(err, orchestrator.ErrJobNotFound),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, versioning.ErrBranchExists),
		errors.Is(err, versioning.ErrIntegrityCheckFailed),
		errors.Is(err, orchestrator.ErrJobCancelled):
		return http.StatusConflict
	case errors.Is(err, versioning.ErrMalformedHistory):
		return http.StatusBadRequest
	case errors.Is(err, extraction.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// enhanceErrorMessage adds troubleshooting information to error messages
func enhanceErrorMessage(message string, statusCode int) string {
	switch {
	case strings.Contains(message, "no file uploaded"):
		return message + "\nTroubleshooting: upload the document as multipart/form-data in the 'file' field, or send JSON with file_path"
	case statusCode == http.StatusUnsupportedMediaType:
		return message + "\nTroubleshooting: supported formats are .txt, .md, .pdf, .docx, .odt and .rtf"
	case statusCode == http.StatusInternalServerError:
		return message + "\nTroubleshooting: check server logs for detailed error information"
	default:
		return message
	}
}

// decodeJSON reads a bounded JSON body into v and validates it
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errInvalidBody{err}
	}
	return s.validate.Struct(v)
}

type errInvalidBody struct{ err error }

func (e errInvalidBody) Error() string { return "invalid request body: " + e.err.Error() }
func (e errInvalidBody) Unwrap() error { return e.err }

// sanitizeUserInput removes dangerous characters from user input for safe output
func sanitizeUserInput(input string, maxLength int) string {
	sanitized := strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		switch r {
		case '<', '>', '"', '\'', '&':
			return -1
		}
		return r
	}, input)

	if len(sanitized) > maxLength {
		sanitized = sanitized[:maxLength] + "..."
	}
	return sanitized
}

// isAlphanumeric checks if string contains only alphanumeric characters
func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
