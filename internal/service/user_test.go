package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macfarley/dream-weaver-backend/internal"
)

type stubTokenProvider struct{}

func (stubTokenProvider) IssueToken(user *internal.User) (string, error) {
	return "token-for-" + user.Username, nil
}

func (stubTokenProvider) VerifyToken(ctx context.Context, token string) (*internal.Identity, error) {
	return nil, nil
}

func setupUserService(t *testing.T) (*UserService, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return NewUserService(store, stubTokenProvider{}, internal.NewNopLogger()), store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := setupUserService(t)

	user, token, err := svc.Register(context.Background(), &RegisterRequest{
		Username: "dreamer",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "dreamer", user.Username)
	assert.Equal(t, internal.RoleUser, user.Role)
	assert.Equal(t, "token-for-dreamer", token)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)

	logged, token, err := svc.Login(context.Background(), &LoginRequest{
		Username: "dreamer",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, logged.ID)
	assert.Equal(t, "token-for-dreamer", token)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := setupUserService(t)
	_, _, err := svc.Register(context.Background(), &RegisterRequest{Username: "dreamer", Password: "hunter2hunter2"})
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), &RegisterRequest{Username: "dreamer", Password: "otherpassword"})
	var appErr *internal.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, internal.KindConflict, appErr.Kind)
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := setupUserService(t)
	cases := []RegisterRequest{
		{Username: "", Password: "hunter2hunter2"},
		{Username: "ab", Password: "hunter2hunter2"},
		{Username: "dreamer", Password: "short"},
		{Username: "bad name!", Password: "hunter2hunter2"},
	}
	for _, req := range cases {
		_, _, err := svc.Register(context.Background(), &req)
		var appErr *internal.AppError
		require.ErrorAs(t, err, &appErr, "username=%q", req.Username)
		assert.Equal(t, internal.KindValidation, appErr.Kind)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := setupUserService(t)
	_, _, err := svc.Register(context.Background(), &RegisterRequest{Username: "dreamer", Password: "hunter2hunter2"})
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), &LoginRequest{Username: "dreamer", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), &LoginRequest{Username: "nobody", Password: "hunter2hunter2"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := setupUserService(t)
	user, _, err := svc.Register(context.Background(), &RegisterRequest{Username: "dreamer", Password: "hunter2hunter2"})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(context.Background(), user.ID, &UpdateProfileRequest{Username: "nightowl"})
	require.NoError(t, err)
	assert.Equal(t, "nightowl", updated.Username)

	// Old password still valid; only the username changed.
	_, _, err = svc.Login(context.Background(), &LoginRequest{Username: "nightowl", Password: "hunter2hunter2"})
	require.NoError(t, err)

	_, err = svc.UpdateProfile(context.Background(), user.ID, &UpdateProfileRequest{})
	var appErr *internal.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, internal.KindValidation, appErr.Kind)
}
