package quickbooks

import (
	"context"
	"errors"
	"time"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSessionUsed marks a connect session that has already been consumed.
// Seeing it on a callback means the state value is being replayed.
var ErrSessionUsed = errors.New("oauth session already used")

// ErrSessionExpired marks a connect session created before the validity
// cutoff. The row-level check is authoritative; the state timestamp is
// client-supplied and cannot be trusted on its own.
var ErrSessionExpired = errors.New("oauth session expired")

// Repository persists connect sessions and company credentials.
type Repository interface {
	CreateSession(ctx context.Context, session *models.QuickBooksOAuthSession) error
	ConsumeSession(ctx context.Context, sessionToken string, notBefore time.Time) (*models.QuickBooksOAuthSession, error)
	UpsertCredential(ctx context.Context, credential *models.QuickBooksCredential) error
	FindCredential(ctx context.Context, orgID uuid.UUID) (*models.QuickBooksCredential, error)
	UpdateCredentialTokens(ctx context.Context, credentialID uuid.UUID, accessToken, refreshToken string, accessExpiresAt, refreshExpiresAt time.Time) error
	DeleteCredential(ctx context.Context, orgID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository constructs a QuickBooks repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateSession(ctx context.Context, session *models.QuickBooksOAuthSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// ConsumeSession marks the session used and returns it. The conditional
// update makes the session single-use even under concurrent callbacks, and
// the created_at predicate enforces the validity window against the stored
// row rather than the forgeable state timestamp: only one caller sees a
// fresh row flip from unused to used.
func (r *repository) ConsumeSession(ctx context.Context, sessionToken string, notBefore time.Time) (*models.QuickBooksOAuthSession, error) {
	result := r.db.WithContext(ctx).
		Model(&models.QuickBooksOAuthSession{}).
		Where("session_token = ?", sessionToken).
		Where("used = ?", false).
		Where("created_at > ?", notBefore).
		Update("used", true)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var existing models.QuickBooksOAuthSession
		err := r.db.WithContext(ctx).
			Where("session_token = ?", sessionToken).
			First(&existing).Error
		if err != nil {
			return nil, err
		}
		if existing.Used {
			return nil, ErrSessionUsed
		}
		return nil, ErrSessionExpired
	}

	var session models.QuickBooksOAuthSession
	err := r.db.WithContext(ctx).
		Where("session_token = ?", sessionToken).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repository) UpsertCredential(ctx context.Context, credential *models.QuickBooksCredential) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "organization_id"}, {Name: "realm_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token",
				"refresh_token",
				"access_token_expires_at",
				"refresh_token_expires_at",
				"connected_by",
				"updated_at",
			}),
		}).
		Create(credential).Error
}

func (r *repository) FindCredential(ctx context.Context, orgID uuid.UUID) (*models.QuickBooksCredential, error) {
	var credential models.QuickBooksCredential
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("updated_at DESC").
		First(&credential).Error
	if err != nil {
		return nil, err
	}
	return &credential, nil
}

func (r *repository) UpdateCredentialTokens(ctx context.Context, credentialID uuid.UUID, accessToken, refreshToken string, accessExpiresAt, refreshExpiresAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.QuickBooksCredential{}).
		Where("id = ?", credentialID).
		Updates(map[string]any{
			"access_token":             accessToken,
			"refresh_token":            refreshToken,
			"access_token_expires_at":  accessExpiresAt,
			"refresh_token_expires_at": refreshExpiresAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeleteCredential(ctx context.Context, orgID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Delete(&models.QuickBooksCredential{}).Error
}
