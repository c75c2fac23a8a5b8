package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brikx/coach/internal/apikey/domain"
	"github.com/brikx/coach/internal/apikey/repository"
	"github.com/brikx/coach/internal/clock"
	"github.com/brikx/coach/internal/testutil"
	"github.com/brikx/coach/internal/usercontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	db := testutil.OpenDB(t)
	fc := clock.NewFakeClock(time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC))
	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: testutil.NewNode(t),
		Repo:  repository.Provide(),
		Clock: fc,
	}), fc
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, err := svc.EnsureUser(ctx, domain.EnsureUserRequest{Email: " Ada@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", first.Email)
	assert.Equal(t, "ada", first.DisplayName)

	second, err := svc.EnsureUser(ctx, domain.EnsureUserRequest{Email: "ada@example.com", DisplayName: "Other"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = svc.EnsureUser(ctx, domain.EnsureUserRequest{Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	user, err := svc.EnsureUser(context.Background(), domain.EnsureUserRequest{Email: "ada@example.com"})
	require.NoError(t, err)

	secret, err := svc.CreateForUser(context.Background(), user.ID, domain.CreateRequest{Name: "cli"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(secret.APIKey, apiKeyPrefix))
	assert.True(t, strings.HasPrefix(secret.KeyID, "key_"))

	userID, err := svc.Authenticate(context.Background(), secret.APIKey)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, err = svc.Authenticate(context.Background(), secret.APIKey+"x")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)

	_, err = svc.Authenticate(context.Background(), "Bearer whatever")
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)

	ctx := usercontext.WithUserID(context.Background(), user.ID)
	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, "cli", keys[0].Name)
	assert.NotNil(t, keys[0].LastUsedAt)
}

func TestRotateKeepsOldKeyDuringGracePeriod(t *testing.T) {
	svc, fc := newService(t)
	user, err := svc.EnsureUser(context.Background(), domain.EnsureUserRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	ctx := usercontext.WithUserID(context.Background(), user.ID)

	old, err := svc.Create(ctx, domain.CreateRequest{Name: "laptop"})
	require.NoError(t, err)

	next, err := svc.Rotate(ctx, old.KeyID)
	require.NoError(t, err)
	assert.NotEqual(t, old.KeyID, next.KeyID)

	_, err = svc.Authenticate(ctx, old.APIKey)
	require.NoError(t, err)

	fc.Advance(apiKeyRotationGracePeriod + time.Minute)
	_, err = svc.Authenticate(ctx, old.APIKey)
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)

	_, err = svc.Authenticate(ctx, next.APIKey)
	require.NoError(t, err)
}

func TestRevoke(t *testing.T) {
	svc, _ := newService(t)
	user, err := svc.EnsureUser(context.Background(), domain.EnsureUserRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	ctx := usercontext.WithUserID(context.Background(), user.ID)

	key, err := svc.Create(ctx, domain.CreateRequest{Name: "ci"})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, key.KeyID))

	_, err = svc.Authenticate(ctx, key.APIKey)
	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)

	assert.ErrorIs(t, svc.Revoke(ctx, "key_missing"), domain.ErrNotFound)
	_, err = svc.Create(ctx, domain.CreateRequest{Name: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}
