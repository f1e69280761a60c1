package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/macfarley/dream-weaver-backend/internal"
	"github.com/macfarley/dream-weaver-backend/internal/response"
	"github.com/macfarley/dream-weaver-backend/internal/service"
)

// HandleError translates a service error into the wire envelope. System
// errors are logged with their cause and surfaced generically.
func HandleError(c *gin.Context, logger internal.Logger, err error) {
	requestID := c.GetString("request_id")

	if errors.Is(err, service.ErrInvalidCredentials) {
		logger.Warnf("[request_id=%s] invalid credentials", requestID)
		c.JSON(http.StatusUnauthorized, response.Failure(
			&internal.AppError{Kind: internal.KindValidation, Message: "invalid username or password"}))
		return
	}

	var appErr *internal.AppError
	if !errors.As(err, &appErr) {
		appErr = internal.NewSystemError("internal error", err)
	}

	status := statusFor(appErr.Kind)
	if appErr.Kind == internal.KindSystem {
		logger.Errorf("[request_id=%s] %s: %v", requestID, appErr.Message, appErr.Err)
		// Never leak internal diagnostics.
		c.JSON(status, response.InternalError("internal error"))
		return
	}
	logger.Infof("[request_id=%s] %s: %s", requestID, appErr.Kind, appErr.Message)
	c.JSON(status, response.Failure(appErr))
}

func statusFor(kind internal.ErrorKind) int {
	switch kind {
	case internal.KindValidation:
		return http.StatusBadRequest
	case internal.KindConflict:
		return http.StatusConflict
	case internal.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func HandleSuccess(c *gin.Context, data interface{}, meta map[string]any) {
	c.JSON(http.StatusOK, response.Success(data, meta))
}

func HandleCreated(c *gin.Context, data interface{}, meta map[string]any) {
	c.JSON(http.StatusCreated, response.Success(data, meta))
}

// BindJSON decodes the body, reporting malformed JSON or unparseable
// timestamps as a validation failure.
func BindJSON(c *gin.Context, logger internal.Logger, out interface{}) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		HandleError(c, logger, internal.NewValidationError("invalid request body: "+err.Error()))
		return false
	}
	return true
}
