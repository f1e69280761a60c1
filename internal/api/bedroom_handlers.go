package api

import (
	"github.com/gin-gonic/gin"

	"github.com/macfarley/dream-weaver-backend/internal/auth"
	"github.com/macfarley/dream-weaver-backend/internal/service"
)

func PostBedroom(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		var req service.BedroomRequest
		if !BindJSON(c, app.Logger(), &req) {
			return
		}
		bedroom, err := app.Bedrooms().Create(c.Request.Context(), ident.UserID, &req)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleCreated(c, bedroom, nil)
	}
}

func GetBedrooms(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		bedrooms, err := app.Bedrooms().List(c.Request.Context(), ident.UserID)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, bedrooms, map[string]any{"count": len(bedrooms)})
	}
}

func GetBedroom(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		bedroom, err := app.Bedrooms().Get(c.Request.Context(), ident.UserID, c.Param("id"))
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, bedroom, nil)
	}
}

func PutBedroom(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		var req service.BedroomRequest
		if !BindJSON(c, app.Logger(), &req) {
			return
		}
		bedroom, err := app.Bedrooms().Update(c.Request.Context(), ident.UserID, c.Param("id"), &req)
		if err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, bedroom, nil)
	}
}

func DeleteBedroom(app App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := auth.MustIdentity(c)
		if err := app.Bedrooms().Delete(c.Request.Context(), ident.UserID, c.Param("id")); err != nil {
			HandleError(c, app.Logger(), err)
			return
		}
		HandleSuccess(c, gin.H{"deleted": true}, nil)
	}
}
