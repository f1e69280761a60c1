package api

import (
	"github.com/macfarley/dream-weaver-backend/internal"
	"github.com/macfarley/dream-weaver-backend/internal/service"
)

// App is what handlers need from the wired application.
type App interface {
	Logger() internal.Logger
	Users() *service.UserService
	Bedrooms() *service.BedroomService
	Sessions() *service.SessionService
}
