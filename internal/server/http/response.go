package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/labandina/internal/common"
	"github.com/dmitrijs2005/labandina/internal/logging"
)

type apiError struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, map[string]any{
		"status": "success",
		"data":   data,
	})
}

func writeMessage(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{
		"status":  "success",
		"message": message,
	})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, apiError{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}

func mapError(err error) (int, string, string) {
	switch {
	case common.IsAuthFailure(err):
		return http.StatusUnauthorized, "AUTHENTICATION_FAILED", "could not validate credentials"
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED", "authentication required"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "incorrect login or password"
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "REFRESH_TOKEN_EXPIRED", "refresh token expired"
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "not enough permissions"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "VALIDATION_ERROR", err.Error()
	case errors.Is(err, common.ErrLoginAlreadyExists):
		return http.StatusConflict, "CONFLICT", "email or username already registered"
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, "CONFLICT", "resource already exists"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error"
	}
}

func writeMappedError(ctx context.Context, log logging.Logger, w http.ResponseWriter, operation string, err error) {
	status, code, msg := mapError(err)
	fields := []any{
		"operation", operation,
		"status_code", status,
		"error_code", code,
		"error", err.Error(),
		"request_id", requestIDFromContext(ctx),
	}
	if status >= 500 {
		log.Error(ctx, "http operation failed", fields...)
	} else {
		log.Debug(ctx, "http operation failed", fields...)
	}
	if status == http.StatusUnauthorized && code == "AUTHENTICATION_FAILED" {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	writeError(w, status, code, msg)
}

func writeValidationError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
}

// decodeBody reads exactly one JSON value into dst. allowEmpty lets an
// absent body through untouched.
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

func parseIntDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
