// SPDX-License-Identifier: MIT
package api

import (
	"context"
	"errors"
	"net/http"

	"spectra/internal/asset"
	"spectra/internal/equalizer"
	"spectra/internal/graph"
	"spectra/internal/playback"
	"spectra/internal/visual"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorStatus maps domain errors onto HTTP statuses and short codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, asset.ErrInvalidFileType):
		return http.StatusUnsupportedMediaType, "invalid_file_type"
	case errors.Is(err, asset.ErrDecode):
		return http.StatusUnprocessableEntity, "decode_failed"
	case errors.Is(err, playback.ErrGraphNotReady):
		return http.StatusConflict, "graph_not_ready"
	case errors.Is(err, playback.ErrSourceRestart):
		return http.StatusConflict, "source_restart"
	case errors.Is(err, equalizer.ErrInvalidBand),
		errors.Is(err, graph.ErrUnknownQuality),
		errors.Is(err, visual.ErrUnknownType):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

// fail writes err with its mapped status and aborts the chain.
func fail(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: err.Error()})
}

// badRequest rejects malformed input.
func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: message})
}
