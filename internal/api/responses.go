// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/credissuer/internal/logging"
	"github.com/tomtom215/credissuer/internal/models"
	"github.com/tomtom215/credissuer/internal/providers"
	"github.com/tomtom215/credissuer/internal/validation"
)

// maxBodySize bounds JSON request bodies.
const maxBodySize = 1 << 20

// sanitizeLogValue escapes control characters so request data cannot forge
// log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeEnvelope(w, r, status, &models.APIResponse{Status: "success", Data: data})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		logging.Ctx(r.Context()).Error().
			Str("code", code).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}
	writeEnvelope(w, r, status, &models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: code, Message: message},
	})
}

func respondAPIError(w http.ResponseWriter, r *http.Request, status int, apiErr *models.APIError) {
	writeEnvelope(w, r, status, &models.APIResponse{Status: "error", Error: apiErr})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp *models.APIResponse) {
	resp.Metadata = models.Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Failed to write JSON response")
	}
}

func respondImage(w http.ResponseWriter, img *providers.Image, maxAge time.Duration) {
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	if maxAge > 0 {
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
	} else {
		w.Header().Set("Cache-Control", "no-store")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

// decodeAndValidate reads a JSON body into v and validates its struct tags.
// It writes the error response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Failed to read request body", err)
		return false
	}
	if len(body) > maxBodySize {
		respondError(w, r, http.StatusRequestEntityTooLarge, "VALIDATION_ERROR", "Request body too large", nil)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be valid JSON", nil)
		return false
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		apiErr := verr.ToAPIError()
		respondAPIError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		})
		return false
	}
	return true
}
