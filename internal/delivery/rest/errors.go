package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func badRequest(c *gin.Context, message string) {
	abortWithError(c, http.StatusBadRequest, "bad_request", message)
}

// writeError maps a domain error to its HTTP status and logs what needs a follow-up.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, entities.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, entities.ErrLanguageMismatch):
		abortWithError(c, http.StatusBadRequest, "language_mismatch", err.Error())
	case errors.Is(err, entities.ErrAlreadyAnswered):
		abortWithError(c, http.StatusConflict, "already_answered", "exercise already answered")
	case errors.Is(err, entities.ErrNoContentAvailable):
		abortWithError(c, http.StatusUnprocessableEntity, "no_content", "no content available for a session")
	case errors.Is(err, entities.ErrTranslationPairMissing):
		h.logger.Error("content missing",
			zap.String("request_id", requestID(c)),
			zap.Error(err),
		)
		abortWithError(c, http.StatusInternalServerError, "translation_missing", "item has no translation in the requested languages")
	case errors.Is(err, entities.ErrTransient):
		h.logger.Warn("storage unavailable",
			zap.String("request_id", requestID(c)),
			zap.Error(err),
		)
		abortWithError(c, http.StatusServiceUnavailable, "unavailable", "temporarily unavailable, retry later")
	default:
		h.logger.Error("handle error",
			zap.String("request_id", requestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		abortWithError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
