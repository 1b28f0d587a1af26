package profiles

import (
	"context"

	"github.com/equipqr/equipqr-backend/pkg/db/models"
	"github.com/equipqr/equipqr-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UnknownUser is the display-name fallback when a lookup misses.
const UnknownUser = "Unknown User"

// Repository resolves user display names and membership roles. The user table
// is not organization scoped, so every lookup goes through memberships.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a profiles repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DisplayNames resolves display names for the given users, scoped to the
// organization. IDs without a membership in the org are omitted from the map.
func (r *Repository) DisplayNames(ctx context.Context, orgID uuid.UUID, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	var rows []struct {
		ID          uuid.UUID
		DisplayName string
	}
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Select("users.id, users.display_name").
		Joins("JOIN organization_memberships om ON om.user_id = users.id").
		Where("om.organization_id = ?", orgID).
		Where("users.id IN ?", userIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		names[row.ID] = row.DisplayName
	}
	return names, nil
}

// UserHasRole reports whether the user holds any of the given roles in the org.
func (r *Repository) UserHasRole(ctx context.Context, userID, orgID uuid.UUID, roles ...enums.MemberRole) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrganizationMembership{}).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		Where("role IN ?", roles).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IsMember reports whether the user belongs to the organization at all.
func (r *Repository) IsMember(ctx context.Context, userID, orgID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrganizationMembership{}).
		Where("user_id = ? AND organization_id = ?", userID, orgID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
