package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macfarley/dream-weaver-backend/internal"
)

func validBedroomRequest() *BedroomRequest {
	return &BedroomRequest{
		Name:        "Main bedroom",
		BedType:     "queen",
		Temperature: 68,
		LightLevel:  "dark",
		NoiseLevel:  "quiet",
	}
}

func setupBedroomService(t *testing.T) (*BedroomService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return NewBedroomService(store, store, internal.NewNopLogger()), store
}

func TestBedroomCRUD(t *testing.T) {
	svc, _ := setupBedroomService(t)

	bedroom, err := svc.Create(context.Background(), "u1", validBedroomRequest())
	require.NoError(t, err)
	assert.Equal(t, "u1", bedroom.OwnerID)

	got, err := svc.Get(context.Background(), "u1", bedroom.ID)
	require.NoError(t, err)
	assert.Equal(t, "Main bedroom", got.Name)

	req := validBedroomRequest()
	req.Temperature = 72
	updated, err := svc.Update(context.Background(), "u1", bedroom.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 72, updated.Temperature)

	require.NoError(t, svc.Delete(context.Background(), "u1", bedroom.ID))
	_, err = svc.Get(context.Background(), "u1", bedroom.ID)
	var appErr *internal.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, internal.KindNotFound, appErr.Kind)
}

func TestBedroomValidation(t *testing.T) {
	svc, _ := setupBedroomService(t)

	req := validBedroomRequest()
	req.LightLevel = "strobe"
	_, err := svc.Create(context.Background(), "u1", req)
	var appErr *internal.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, internal.KindValidation, appErr.Kind)

	req = validBedroomRequest()
	req.Temperature = 300
	_, err = svc.Create(context.Background(), "u1", req)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, internal.KindValidation, appErr.Kind)
}

func TestBedroomOwnership(t *testing.T) {
	svc, _ := setupBedroomService(t)
	bedroom, err := svc.Create(context.Background(), "u1", validBedroomRequest())
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "u2", bedroom.ID)
	var appErr *internal.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, internal.KindNotFound, appErr.Kind)

	err = svc.Delete(context.Background(), "u2", bedroom.ID)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, internal.KindNotFound, appErr.Kind)
}

func TestBedroomDelete_RefusedWhileReferenced(t *testing.T) {
	svc, store := setupBedroomService(t)
	bedroom, err := svc.Create(context.Background(), "u1", validBedroomRequest())
	require.NoError(t, err)

	store.sessions["s1"] = &internal.SleepSession{
		ID: "s1", UserID: "u1", BedroomID: bedroom.ID, CreatedAt: time.Now(),
		WakeUps: []internal.WakeUp{{SleepQuality: 8, FinishedSleeping: true}},
	}

	err = svc.Delete(context.Background(), "u1", bedroom.ID)
	var appErr *internal.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, internal.KindConflict, appErr.Kind)

	// Still there.
	_, err = svc.Get(context.Background(), "u1", bedroom.ID)
	require.NoError(t, err)
}
