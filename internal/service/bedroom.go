package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/macfarley/dream-weaver-backend/internal"
	"github.com/macfarley/dream-weaver-backend/internal/storage"
)

type BedroomRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	BedType     string `json:"bed_type" validate:"required,max=32"`
	Temperature int    `json:"temperature" validate:"required,gte=40,lte=100"`
	LightLevel  string `json:"light_level" validate:"required,oneof=dark dim bright"`
	NoiseLevel  string `json:"noise_level" validate:"required,oneof=silent quiet moderate loud"`
	Notes       string `json:"notes" validate:"max=500"`
}

type BedroomService struct {
	bedrooms storage.BedroomRepository
	sessions storage.SessionRepository
	logger   internal.Logger
}

func NewBedroomService(bedrooms storage.BedroomRepository, sessions storage.SessionRepository, logger internal.Logger) *BedroomService {
	return &BedroomService{bedrooms: bedrooms, sessions: sessions, logger: logger}
}

func (s *BedroomService) Create(ctx context.Context, ownerID string, req *BedroomRequest) (*internal.Bedroom, error) {
	if err := validate.Struct(req); err != nil {
		return nil, internal.NewValidationError(err.Error())
	}
	bedroom := &internal.Bedroom{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        req.Name,
		BedType:     req.BedType,
		Temperature: req.Temperature,
		LightLevel:  req.LightLevel,
		NoiseLevel:  req.NoiseLevel,
		Notes:       req.Notes,
		CreatedAt:   time.Now(),
	}
	if err := s.bedrooms.CreateBedroom(ctx, bedroom); err != nil {
		return nil, internal.NewSystemError("failed to create bedroom", err)
	}
	return bedroom, nil
}

func (s *BedroomService) List(ctx context.Context, ownerID string) ([]internal.Bedroom, error) {
	bedrooms, err := s.bedrooms.ListBedrooms(ctx, ownerID)
	if err != nil {
		return nil, internal.NewSystemError("failed to list bedrooms", err)
	}
	return bedrooms, nil
}

// Get enforces ownership: another user's bedroom reads as not found.
func (s *BedroomService) Get(ctx context.Context, ownerID, id string) (*internal.Bedroom, error) {
	bedroom, err := s.bedrooms.GetBedroom(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, internal.NewNotFoundError("bedroom not found")
		}
		return nil, internal.NewSystemError("failed to fetch bedroom", err)
	}
	if bedroom.OwnerID != ownerID {
		return nil, internal.NewNotFoundError("bedroom not found")
	}
	return bedroom, nil
}

func (s *BedroomService) Update(ctx context.Context, ownerID, id string, req *BedroomRequest) (*internal.Bedroom, error) {
	if err := validate.Struct(req); err != nil {
		return nil, internal.NewValidationError(err.Error())
	}
	bedroom, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	bedroom.Name = req.Name
	bedroom.BedType = req.BedType
	bedroom.Temperature = req.Temperature
	bedroom.LightLevel = req.LightLevel
	bedroom.NoiseLevel = req.NoiseLevel
	bedroom.Notes = req.Notes
	if err := s.bedrooms.UpdateBedroom(ctx, bedroom); err != nil {
		return nil, internal.NewSystemError("failed to update bedroom", err)
	}
	return bedroom, nil
}

// Delete refuses while sleep sessions still reference the bedroom; history
// would otherwise dangle.
func (s *BedroomService) Delete(ctx context.Context, ownerID, id string) error {
	bedroom, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	count, err := s.sessions.CountSessionsByBedroom(ctx, bedroom.ID)
	if err != nil {
		return internal.NewSystemError("failed to count sessions", err)
	}
	if count > 0 {
		return internal.NewConflictError("bedroom is referenced by sleep sessions", map[string]any{"session_count": count})
	}
	if err := s.bedrooms.DeleteBedroom(ctx, bedroom.ID); err != nil {
		return internal.NewSystemError("failed to delete bedroom", err)
	}
	s.logger.Infof("bedroom %s deleted by %s", bedroom.ID, ownerID)
	return nil
}
