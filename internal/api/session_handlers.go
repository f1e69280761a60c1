package api

import (
	"github.com/gin-gonic/gin"

	"github.com/macfarley/dream-weaver-backend/internal/auth"
	"github.com/macfarley/dream-weaver-backend/internal/service"
)

// PostSession begins a new sleep session. If one is already active the
// conflict response carries its summary so clients can switch to the wake-up
// flow instead of retrying.
func PostSession(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		var req service.BeginSessionRequest
		if !BindJSON(c, app.Logger(), &req) {
			return
		}
		session, err := app.Sessions().BeginSession(c.Request.Context(), ident.UserID, &req)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleCreated(c, session, nil)
	}
}

// PostWakeUp appends a wake-up to the caller's active session.
func PostWakeUp(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		var req service.WakeUpRequest
		if !BindJSON(c, app.Logger(), &req) {
			return
		}
		result, err := app.Sessions().RecordWakeUp(c.Request.Context(), ident.UserID, &req)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, result.Session, map[string]any{
			"wake_up_count":  result.WakeUpCount,
			"session_closed": result.SessionClosed,
		})
	}
}

// GetActiveSession reports whether a session is currently open. Read-only,
// safe to poll.
func GetActiveSession(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		status, err := app.Sessions().ActiveSession(c.Request.Context(), ident.UserID)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, status, nil)
	}
}

func GetSessions(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		sessions, err := app.Sessions().ListSessions(c.Request.Context(), ident.UserID)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, sessions, map[string]any{"count": len(sessions)})
	}
}

func GetSession(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		session, err := app.Sessions().GetSession(c.Request.Context(), ident.UserID, c.Param("id"))
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, session, nil)
	}
}
