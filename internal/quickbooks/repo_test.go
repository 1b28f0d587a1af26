package quickbooks

import (
	"context"
	"testing"
	"time"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupQBTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS quickbooks_oauth_sessions (
  id TEXT PRIMARY KEY,
  session_token TEXT NOT NULL UNIQUE,
  nonce TEXT NOT NULL,
  organization_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  redirect_url TEXT,
  origin_url TEXT,
  used INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);
CREATE TABLE IF NOT EXISTS quickbooks_credentials (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  realm_id TEXT NOT NULL,
  access_token TEXT NOT NULL,
  refresh_token TEXT NOT NULL,
  access_token_expires_at DATETIME NOT NULL,
  refresh_token_expires_at DATETIME NOT NULL,
  connected_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (organization_id, realm_id)
);`
	require.NoError(t, db.Exec(schema).Error)
	t.Cleanup(func() {
		db.Exec("DELETE FROM quickbooks_credentials")
		db.Exec("DELETE FROM quickbooks_oauth_sessions")
	})
	return db
}

func TestConsumeSessionIsSingleUse(t *testing.T) {
	db := setupQBTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	session := &models.QuickBooksOAuthSession{
		ID:             uuid.New(),
		SessionToken:   "tok-1",
		Nonce:          "nonce-1",
		OrganizationID: uuid.New(),
		UserID:         uuid.New(),
	}
	require.NoError(t, repo.CreateSession(ctx, session))

	notBefore := time.Now().UTC().Add(-time.Hour)
	got, err := repo.ConsumeSession(ctx, "tok-1", notBefore)
	require.NoError(t, err)
	assert.Equal(t, session.OrganizationID, got.OrganizationID)
	assert.True(t, got.Used)

	_, err = repo.ConsumeSession(ctx, "tok-1", notBefore)
	require.ErrorIs(t, err, ErrSessionUsed)
}

func TestConsumeSessionUnknownToken(t *testing.T) {
	db := setupQBTestDB(t)
	repo := NewRepository(db)

	_, err := repo.ConsumeSession(context.Background(), "missing", time.Now().UTC().Add(-time.Hour))
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestConsumeSessionRejectsStaleRow(t *testing.T) {
	db := setupQBTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	session := &models.QuickBooksOAuthSession{
		ID:             uuid.New(),
		SessionToken:   "tok-old",
		Nonce:          "nonce-old",
		OrganizationID: uuid.New(),
		UserID:         uuid.New(),
		CreatedAt:      time.Now().UTC().Add(-2 * time.Hour),
	}
	require.NoError(t, repo.CreateSession(ctx, session))

	_, err := repo.ConsumeSession(ctx, "tok-old", time.Now().UTC().Add(-time.Hour))
	require.ErrorIs(t, err, ErrSessionExpired)

	// The stale row must remain unused so the failure is observable, not
	// silently consumed.
	var stored models.QuickBooksOAuthSession
	require.NoError(t, db.Where("session_token = ?", "tok-old").First(&stored).Error)
	assert.False(t, stored.Used)
}

func TestUpsertCredentialOverwritesOnConflict(t *testing.T) {
	db := setupQBTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	first := &models.QuickBooksCredential{
		ID:                    uuid.New(),
		OrganizationID:        orgID,
		RealmID:               "realm-1",
		AccessToken:           "access-1",
		RefreshToken:          "refresh-1",
		AccessTokenExpiresAt:  now.Add(time.Hour),
		RefreshTokenExpiresAt: now.Add(100 * 24 * time.Hour),
		ConnectedBy:           uuid.New(),
	}
	require.NoError(t, repo.UpsertCredential(ctx, first))

	second := &models.QuickBooksCredential{
		ID:                    uuid.New(),
		OrganizationID:        orgID,
		RealmID:               "realm-1",
		AccessToken:           "access-2",
		RefreshToken:          "refresh-2",
		AccessTokenExpiresAt:  now.Add(2 * time.Hour),
		RefreshTokenExpiresAt: now.Add(101 * 24 * time.Hour),
		ConnectedBy:           uuid.New(),
	}
	require.NoError(t, repo.UpsertCredential(ctx, second))

	var count int64
	require.NoError(t, db.Model(&models.QuickBooksCredential{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	stored, err := repo.FindCredential(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, "access-2", stored.AccessToken)
}

func TestUpdateCredentialTokens(t *testing.T) {
	db := setupQBTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	now := time.Now().UTC().Truncate(time.Second)
	credential := &models.QuickBooksCredential{
		ID:                    uuid.New(),
		OrganizationID:        orgID,
		RealmID:               "realm-1",
		AccessToken:           "old-access",
		RefreshToken:          "old-refresh",
		AccessTokenExpiresAt:  now,
		RefreshTokenExpiresAt: now.Add(24 * time.Hour),
		ConnectedBy:           uuid.New(),
	}
	require.NoError(t, repo.UpsertCredential(ctx, credential))

	err := repo.UpdateCredentialTokens(ctx, credential.ID, "new-access", "new-refresh", now.Add(time.Hour), now.Add(48*time.Hour))
	require.NoError(t, err)

	stored, err := repo.FindCredential(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, "new-access", stored.AccessToken)
	assert.Equal(t, "new-refresh", stored.RefreshToken)

	err = repo.UpdateCredentialTokens(ctx, uuid.New(), "x", "y", now, now)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteCredentialByOrg(t *testing.T) {
	db := setupQBTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	orgID := uuid.New()
	now := time.Now().UTC()
	require.NoError(t, repo.UpsertCredential(ctx, &models.QuickBooksCredential{
		ID: uuid.New(), OrganizationID: orgID, RealmID: "realm-1",
		AccessToken: "a", RefreshToken: "r",
		AccessTokenExpiresAt: now, RefreshTokenExpiresAt: now,
		ConnectedBy: uuid.New(),
	}))

	require.NoError(t, repo.DeleteCredential(ctx, orgID))

	_, err := repo.FindCredential(ctx, orgID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
