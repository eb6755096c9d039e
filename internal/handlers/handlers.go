package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"attempt-service/internal/apperrors"
	"attempt-service/internal/dto"

	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy onto HTTP statuses. Raw
// storage errors never reach the caller; unexpected failures get a bare 500.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		dto.JsonError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrInvalidState):
		dto.JsonError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrTransient), errors.Is(err, context.DeadlineExceeded):
		dto.JsonError(c, http.StatusServiceUnavailable, "temporary failure, please retry")
	default:
		log.Printf("Request failed: %v", err)
		dto.JsonError(c, http.StatusInternalServerError)
	}
}
