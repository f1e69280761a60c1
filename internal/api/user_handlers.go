package api

import (
	"github.com/gin-gonic/gin"

	"github.com/macfarley/dream-weaver-backend/internal/auth"
	"github.com/macfarley/dream-weaver-backend/internal/service"
)

func PostRegister(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterRequest
		if !BindJSON(c, app.Logger(), &req) {
			return
		}
		user, token, err := app.Users().Register(c.Request.Context(), &req)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleCreated(c, user, map[string]any{"token": token})
	}
}

func PostLogin(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.LoginRequest
		if !BindJSON(c, app.Logger(), &req) {
			return
		}
		user, token, err := app.Users().Login(c.Request.Context(), &req)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, user, map[string]any{"token": token})
	}
}

func GetProfile(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		user, err := app.Users().Profile(c.Request.Context(), ident.UserID)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, user, nil)
	}
}

func PutProfile(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		var req service.UpdateProfileRequest
		if !BindJSON(c, app.Logger(), &req) {
			return
		}
		user, err := app.Users().UpdateProfile(c.Request.Context(), ident.UserID, &req)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, user, nil)
	}
}
