// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/holomush/accountd/internal/auth"
	"github.com/holomush/accountd/pkg/errutil"
)

// Transport-level codes. Service codes are passed through unchanged.
const (
	CodeRateLimited = "RATE_LIMITED"
	CodeInternal    = "INTERNAL_ERROR"
)

// ErrorBody is the JSON envelope for every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable code and a fixed message. Diagnostic context
// never appears here.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorMapping struct {
	status  int
	message string
}

var errorMappings = map[string]errorMapping{
	auth.CodeInvalidInput:       {http.StatusBadRequest, "request is invalid"},
	auth.CodeEmailConflict:      {http.StatusConflict, "email is already registered"},
	auth.CodeInvalidCredentials: {http.StatusUnauthorized, "invalid email or password"},
	auth.CodeUnauthenticated:    {http.StatusUnauthorized, "authentication required"},
	auth.CodeUnavailable:        {http.StatusServiceUnavailable, "service temporarily unavailable"},
	CodeRateLimited:             {http.StatusTooManyRequests, "too many requests"},
}

var internalMapping = errorMapping{http.StatusInternalServerError, "internal error"}

// StatusFor returns the HTTP status for a service error code.
func StatusFor(code string) int {
	if m, ok := errorMappings[code]; ok {
		return m.status
	}
	return internalMapping.status
}

// writeServiceError translates a service error into a response. Errors
// without a known code become 500. 5xx causes are logged.
func writeServiceError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	code := auth.ErrorCode(err)
	m, ok := errorMappings[code]
	if !ok {
		code, m = CodeInternal, internalMapping
	}
	if m.status >= http.StatusInternalServerError {
		errutil.LogErrorContext(ctx, logger, "request failed", err)
	}
	writeError(w, m.status, code, m.message)
}

func writeCode(w http.ResponseWriter, code string) {
	m := errorMappings[code]
	writeError(w, m.status, code, m.message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect; status is already committed
	json.NewEncoder(w).Encode(v)
}
