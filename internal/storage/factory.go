package storage

import (
	"io"

	"github.com/macfarley/dream-weaver-backend/internal"
)

// Repositories bundles the three collections plus the backing store's
// lifecycle handle.
type Repositories struct {
	Users    UserRepository
	Bedrooms BedroomRepository
	Sessions SessionRepository
	io.Closer
}

func NewFileRepositories(usersFile, bedroomsFile, sessionsFile string, logger internal.Logger) (*Repositories, error) {
	s, err := NewFileStorage(usersFile, bedroomsFile, sessionsFile, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{Users: s, Bedrooms: s, Sessions: s, Closer: s}, nil
}

func NewPostgresRepositories(dsn string, logger internal.Logger) (*Repositories, error) {
	s, err := NewPostgresStorage(dsn, logger)
	if err != nil {
		return nil, err
	}
	return &Repositories{Users: s, Bedrooms: s, Sessions: s, Closer: s}, nil
}
