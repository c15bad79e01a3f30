package settings

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/asarum-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the stored value and whether the key exists.
func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.StoreSetting
	err := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return "", false, err
	}
	if row.Key == "" {
		return "", false, nil
	}
	return row.Value, true, nil
}

func (r *Repository) Put(ctx context.Context, key, value string) error {
	row := models.StoreSetting{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}
