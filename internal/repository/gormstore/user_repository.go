package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/repository"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds the SQLite user store.
func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = repository.NewID()
	}
	repository.StampTimes(&user.CreatedAt, &user.UpdatedAt, time.Now().UTC())

	row := userFromDomain(user)
	return translate(r.db.WithContext(ctx).Create(&row).Error, repository.ErrInvalidReference)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *userRepository) first(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).Where(cond, arg).Take(&row).Error; err != nil {
		return nil, translate(err, repository.ErrInvalidReference)
	}
	user := row.toDomain()
	return &user, nil
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		release := tx.Model(&ticketRow{}).
			Where("assignee_id = ?", id).
			UpdateColumns(map[string]any{
				"assignee_id": nil,
				"assigned_at": nil,
				"updated_at":  time.Now().UTC(),
			})
		if release.Error != nil {
			return translate(release.Error, repository.ErrStillReferenced)
		}

		result := tx.Where("id = ?", id).Delete(&userRow{})
		if result.Error != nil {
			return translate(result.Error, repository.ErrStillReferenced)
		}
		if result.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
}
