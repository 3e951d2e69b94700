package service

import (
	"context"
	"errors"
	"mime/multipart"

	"watchlearn/internal/model"
	"watchlearn/internal/repository"
	"watchlearn/internal/util"

	"gorm.io/gorm"
)

type BadgeService struct {
	BadgeRepo    *repository.BadgeRepository
	Gamification *repository.GamificationRepository
	Media        *MediaService
}

func NewBadgeService(badgeRepo *repository.BadgeRepository, gamification *repository.GamificationRepository, media *MediaService) *BadgeService {
	return &BadgeService{
		BadgeRepo:    badgeRepo,
		Gamification: gamification,
		Media:        media,
	}
}

type BadgeRequest struct {
	Name        string `form:"name" json:"name" binding:"required,max=100"`
	Description string `form:"description" json:"description"`
	XPThreshold int    `form:"xpThreshold" json:"xpThreshold" binding:"min=0"`
	IsActive    *bool  `form:"isActive" json:"isActive"`
}

// BadgeProgress is a badge as seen by one learner.
type BadgeProgress struct {
	model.Badge
	Earned    bool `json:"earned"`
	Remaining int  `json:"remaining"`
}

type UserBadges struct {
	TotalXP int             `json:"totalXp"`
	Badges  []BadgeProgress `json:"badges"`
}

func (s *BadgeService) find(id uint) (*model.Badge, error) {
	badge, err := s.BadgeRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrBadgeNotFound
	}
	return badge, err
}

func (s *BadgeService) List() ([]model.Badge, error) {
	return s.BadgeRepo.List(false)
}

// Create stores a badge and, when given, its image.
func (s *BadgeService) Create(ctx context.Context, req BadgeRequest, image *multipart.FileHeader) (*model.Badge, error) {
	badge := &model.Badge{
		Name:        req.Name,
		Description: req.Description,
		XPThreshold: req.XPThreshold,
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if image != nil {
		media, err := s.Media.SaveImage(ctx, "badges", image)
		if err != nil {
			return nil, err
		}
		badge.ImageURL, badge.ImageKey = media.URL, media.Key
	}
	if err := s.BadgeRepo.Create(badge); err != nil {
		s.Media.Remove(ctx, badge.ImageKey)
		return nil, err
	}
	return badge, nil
}

// Update edits a badge; a new image replaces the old one.
func (s *BadgeService) Update(ctx context.Context, id uint, req BadgeRequest, image *multipart.FileHeader) (*model.Badge, error) {
	badge, err := s.find(id)
	if err != nil {
		return nil, err
	}
	badge.Name = req.Name
	badge.Description = req.Description
	badge.XPThreshold = req.XPThreshold
	if req.IsActive != nil {
		badge.IsActive = *req.IsActive
	}

	oldKey := ""
	if image != nil {
		media, err := s.Media.SaveImage(ctx, "badges", image)
		if err != nil {
			return nil, err
		}
		oldKey = badge.ImageKey
		badge.ImageURL, badge.ImageKey = media.URL, media.Key
	}
	if err := s.BadgeRepo.Update(badge); err != nil {
		return nil, err
	}
	s.Media.Remove(ctx, oldKey)
	return badge, nil
}

func (s *BadgeService) SetActive(id uint, active bool) (*model.Badge, error) {
	badge, err := s.find(id)
	if err != nil {
		return nil, err
	}
	badge.IsActive = active
	if err := s.BadgeRepo.Update(badge); err != nil {
		return nil, err
	}
	return badge, nil
}

// Delete removes the badge and, best effort, its stored image.
func (s *BadgeService) Delete(ctx context.Context, id uint) error {
	badge, err := s.find(id)
	if err != nil {
		return err
	}
	if err := s.BadgeRepo.Delete(id); err != nil {
		return err
	}
	s.Media.Remove(ctx, badge.ImageKey)
	return nil
}

// ForUser lists active badges with the learner's progress towards each.
func (s *BadgeService) ForUser(userID uint) (*UserBadges, error) {
	total, err := s.Gamification.TotalXP(userID)
	if err != nil {
		return nil, err
	}
	owned, err := s.Gamification.UserBadges(userID)
	if err != nil {
		return nil, err
	}
	earned := make(map[uint]bool, len(owned))
	for _, ub := range owned {
		earned[ub.BadgeID] = true
	}

	badges, err := s.BadgeRepo.List(true)
	if err != nil {
		return nil, err
	}
	out := &UserBadges{TotalXP: total, Badges: make([]BadgeProgress, 0, len(badges))}
	for _, b := range badges {
		p := BadgeProgress{Badge: b, Earned: earned[b.ID]}
		if !p.Earned && b.XPThreshold > total {
			p.Remaining = b.XPThreshold - total
		}
		out.Badges = append(out.Badges, p)
	}
	return out, nil
}
