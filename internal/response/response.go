package response

import "github.com/macfarley/dream-weaver-backend/internal"

// APIResponse is the envelope every handler writes. Exactly one of Data or
// Error is set; Meta carries derived values (counts, flags) alongside Data.
type APIResponse struct {
	Data  interface{}        `json:"data,omitempty"`
	Meta  map[string]any     `json:"meta,omitempty"`
	Error *internal.AppError `json:"error,omitempty"`
}

func Success(data interface{}, meta map[string]any) APIResponse {
	return APIResponse{Data: data, Meta: meta}
}

func Failure(err *internal.AppError) APIResponse {
	return APIResponse{Error: err}
}

func BadRequest(msg string) APIResponse {
	return Failure(internal.NewValidationError(msg))
}

func NotFound(msg string) APIResponse {
	return Failure(internal.NewNotFoundError(msg))
}

func Conflict(msg string, details interface{}) APIResponse {
	return Failure(internal.NewConflictError(msg, details))
}

func InternalError(msg string) APIResponse {
	return Failure(internal.NewSystemError(msg, nil))
}
