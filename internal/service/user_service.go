package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"watchlearn/internal/model"
	"watchlearn/internal/repository"
	"watchlearn/internal/util"

	"gorm.io/gorm"
)

// UserService covers profile completion and the admin user tools.
type UserService struct {
	UserRepo *repository.UserRepository
	Media    *MediaService
}

func NewUserService(userRepo *repository.UserRepository, media *MediaService) *UserService {
	return &UserService{
		UserRepo: userRepo,
		Media:    media,
	}
}

// AccessStatus is what the access middleware needs to know about a user.
type AccessStatus struct {
	Role     model.UserRole `json:"role"`
	Approved bool           `json:"approved"`
	Ban      *model.Ban     `json:"ban,omitempty"`
}

func (s *UserService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	return user, err
}

func (s *UserService) AccessStatus(userID uint) (*AccessStatus, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	ban, err := s.UserRepo.FindBan(userID)
	if err != nil {
		return nil, err
	}
	return &AccessStatus{Role: user.Role, Approved: user.Approved, Ban: ban}, nil
}

func (s *UserService) Touch(userID uint) error {
	return s.UserRepo.UpdateLastSeen(userID)
}

type ProfileRequest struct {
	Name     string `json:"name"`
	Username string `json:"username" binding:"required,min=3,max=50"`
}

// CompleteProfile sets the display name and a unique username.
func (s *UserService) CompleteProfile(userID uint, req ProfileRequest) (*model.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	taken, err := s.UserRepo.UsernameTaken(username, userID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, util.ErrUsernameTaken
	}

	user.Username = &username
	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) UpdateAvatar(ctx context.Context, userID uint, fh *multipart.FileHeader) (*model.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	media, err := s.Media.SaveImage(ctx, "avatars", fh)
	if err != nil {
		return nil, err
	}
	user.Avatar = media.URL
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(page, pageSize int, filter repository.UserFilter) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.UserRepo.List(page, pageSize, filter)
}

// SetApproval approves or revokes a lecturer account.
func (s *UserService) SetApproval(userID uint, approved bool) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user.Role != model.Lecturer {
		return util.ErrPermissionDenied
	}
	return s.UserRepo.SetApproved(userID, approved)
}

func (s *UserService) Ban(adminID, userID uint, reason string) (*model.Ban, error) {
	if adminID == userID {
		return nil, util.ErrPermissionDenied
	}
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user.Role == model.Admin {
		return nil, util.ErrPermissionDenied
	}
	ban := &model.Ban{
		UserID:   userID,
		AdminID:  adminID,
		Reason:   strings.TrimSpace(reason),
		BannedAt: time.Now(),
	}
	if err := s.UserRepo.Ban(ban); err != nil {
		return nil, err
	}
	return ban, nil
}

func (s *UserService) Unban(userID uint) error {
	return s.UserRepo.Unban(userID)
}

func (s *UserService) ListBans() ([]model.Ban, error) {
	return s.UserRepo.ListBans()
}
