package storage

import (
	"context"
	"errors"

	"github.com/macfarley/dream-weaver-backend/internal"
)

// ErrNotFound is returned by lookups that matched nothing. Callers translate
// it into their own error taxonomy.
var ErrNotFound = errors.New("storage: not found")

type UserRepository interface {
	CreateUser(ctx context.Context, user *internal.User) error
	GetUserByID(ctx context.Context, id string) (*internal.User, error)
	GetUserByUsername(ctx context.Context, username string) (*internal.User, error)
	UpdateUser(ctx context.Context, user *internal.User) error
}

type BedroomRepository interface {
	CreateBedroom(ctx context.Context, bedroom *internal.Bedroom) error
	GetBedroom(ctx context.Context, id string) (*internal.Bedroom, error)
	ListBedrooms(ctx context.Context, ownerID string) ([]internal.Bedroom, error)
	UpdateBedroom(ctx context.Context, bedroom *internal.Bedroom) error
	DeleteBedroom(ctx context.Context, id string) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, session *internal.SleepSession) error
	GetSession(ctx context.Context, id string) (*internal.SleepSession, error)
	// ListSessionsByUser returns all of a user's sessions, newest first.
	ListSessionsByUser(ctx context.Context, userID string) ([]internal.SleepSession, error)
	// FindRecentSessionsByUser returns up to limit sessions, newest first.
	FindRecentSessionsByUser(ctx context.Context, userID string, limit int) ([]internal.SleepSession, error)
	// AppendWakeUp atomically appends a wake-up to the session's wake_ups and
	// returns the updated session.
	AppendWakeUp(ctx context.Context, sessionID string, wakeUp internal.WakeUp) (*internal.SleepSession, error)
	// CountSessionsByBedroom reports how many sessions reference a bedroom.
	CountSessionsByBedroom(ctx context.Context, bedroomID string) (int, error)
}
