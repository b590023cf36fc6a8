// Package admins lists and removes administrator accounts. Creation and
// authentication live in internal/auth.
package admins

import (
	"errors"

	"gorm.io/gorm"

	"github.com/sboapp/admin/internal/entities"
)

var (
	ErrNotFound  = errors.New("admin not found")
	ErrLastOwner = errors.New("cannot remove the last owner")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// List returns accounts ordered by email.
func (r *Repository) List() ([]entities.Admin, error) {
	var out []entities.Admin
	err := r.db.Order("email").Find(&out).Error
	return out, err
}

func (r *Repository) GetByEmail(email string) (*entities.Admin, error) {
	var admin entities.Admin
	err := r.db.Where("email = ?", email).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// Delete soft-deletes an account. The last remaining owner cannot be
// removed.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var admin entities.Admin
		if err := tx.First(&admin, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if admin.Role == entities.AdminRoleOwner {
			var owners int64
			if err := tx.Model(&entities.Admin{}).Where("role = ?", entities.AdminRoleOwner).Count(&owners).Error; err != nil {
				return err
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}
		return tx.Delete(&admin).Error
	})
}
