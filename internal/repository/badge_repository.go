package repository

import (
	"watchlearn/internal/model"

	"gorm.io/gorm"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) Create(badge *model.Badge) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(badge).Error; err != nil {
			return err
		}
		// is_active defaults to true in the schema, so a false value has
		// to be written explicitly
		if !badge.IsActive {
			return tx.Model(badge).Update("is_active", false).Error
		}
		return nil
	})
}

func (r *BadgeRepository) Update(badge *model.Badge) error {
	return r.DB.Model(badge).
		Select("name", "description", "image_url", "image_key", "xp_threshold", "is_active").
		Updates(badge).Error
}

func (r *BadgeRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("badge_id = ?", id).Delete(&model.UserBadge{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Badge{}, id).Error
	})
}

func (r *BadgeRepository) FindByID(id uint) (*model.Badge, error) {
	var badge model.Badge
	if err := r.DB.First(&badge, id).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

func (r *BadgeRepository) List(activeOnly bool) ([]model.Badge, error) {
	query := r.DB.Order("xp_threshold ASC")
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var badges []model.Badge
	err := query.Find(&badges).Error
	return badges, err
}
