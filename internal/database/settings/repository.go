// Package settings persists settings groups as JSON text keyed by group name.
//
//	repo := settings.NewRepository(db)
//	setting, err := repo.GetSetting("general")
package settings

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sboapp/admin/internal/entities"
)

var ErrNotFound = errors.New("setting not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting upserts key, recording who changed it.
func (r *Repository) SetSetting(key, value, updatedBy string) error {
	setting := entities.Setting{Key: key, Value: value, UpdatedBy: updatedBy}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(&setting).Error
}

func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}

// ListSettings returns every stored row ordered by key.
func (r *Repository) ListSettings() ([]entities.Setting, error) {
	var out []entities.Setting
	err := r.db.Order("key").Find(&out).Error
	return out, err
}
