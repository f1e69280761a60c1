package api

import (
	"github.com/gin-gonic/gin"

	"github.com/macfarley/dream-weaver-backend/internal/auth"
)

// NewRouter wires all routes. Auth endpoints sit outside the bearer
// middleware; everything else requires an identity.
func NewRouter(app App, provider auth.Provider, limiter Limiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	if limiter != nil {
		r.Use(RateLimitMiddleware(limiter, app.Logger()))
	}

	r.POST("/auth/register", PostRegister(app))
	r.POST("/auth/login", PostLogin(app))

	protected := r.Group("/")
	protected.Use(auth.Middleware(provider))
	{
		protected.GET("/users/profile", GetProfile(app))
		protected.PUT("/users/profile", PutProfile(app))

		protected.POST("/bedrooms", PostBedroom(app))
		protected.GET("/bedrooms", GetBedrooms(app))
		protected.GET("/bedrooms/:id", GetBedroom(app))
		protected.PUT("/bedrooms/:id", PutBedroom(app))
		protected.DELETE("/bedrooms/:id", DeleteBedroom(app))

		protected.POST("/sleepsessions", PostSession(app))
		protected.GET("/sleepsessions", GetSessions(app))
		protected.GET("/sleepsessions/active", GetActiveSession(app))
		protected.POST("/sleepsessions/wakeup", PostWakeUp(app))
		protected.GET("/sleepsessions/:id", GetSession(app))
	}

	return r
}
