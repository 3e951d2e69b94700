package repository

import (
	"errors"
	"strings"
	"time"

	"watchlearn/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

type UserFilter struct {
	Role     string
	Search   string
	Approved *bool
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.DB.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.DB.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UsernameTaken reports whether another user already owns username.
func (r *UserRepository) UsernameTaken(username string, exceptID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.User{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdateLastSeen(userID uint) error {
	return r.DB.Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen", time.Now()).
		Error
}

func (r *UserRepository) SetApproved(userID uint, approved bool) error {
	res := r.DB.Model(&model.User{}).Where("id = ?", userID).Update("approved", approved)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *UserRepository) List(page, pageSize int, filter UserFilter) ([]model.User, int64, error) {
	query := r.DB.Model(&model.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR email LIKE ? OR username LIKE ?", like, like, like)
	}
	if filter.Approved != nil {
		query = query.Where("approved = ?", *filter.Approved)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []model.User
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	return users, total, err
}

// Ban creates or replaces the ban of ban.UserID.
func (r *UserRepository) Ban(ban *model.Ban) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("user_id = ?", ban.UserID).Delete(&model.Ban{}).Error; err != nil {
			return err
		}
		return tx.Create(ban).Error
	})
}

func (r *UserRepository) Unban(userID uint) error {
	return r.DB.Unscoped().Where("user_id = ?", userID).Delete(&model.Ban{}).Error
}

// FindBan returns the active ban of userID, or nil.
func (r *UserRepository) FindBan(userID uint) (*model.Ban, error) {
	var ban model.Ban
	err := r.DB.Where("user_id = ?", userID).First(&ban).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ban, nil
}

func (r *UserRepository) ListBans() ([]model.Ban, error) {
	var bans []model.Ban
	err := r.DB.Preload("User").Order("banned_at DESC").Find(&bans).Error
	return bans, err
}
