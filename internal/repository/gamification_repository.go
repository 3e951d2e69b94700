package repository

import (
	"errors"
	"time"

	"watchlearn/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GamificationRepository struct {
	DB *gorm.DB
}

func NewGamificationRepository(db *gorm.DB) *GamificationRepository {
	return &GamificationRepository{DB: db}
}

// civilDay truncates t to midnight of its calendar day in UTC.
func civilDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from a to b.
func daysBetween(a, b time.Time) int {
	return int(civilDay(b).Sub(civilDay(a)).Hours() / 24)
}

// ApplyStreak folds an attempt completed at `at` into the user's streak.
// Same day keeps the streak, the next day extends it, a longer gap restarts
// it at one. Applying the same attempt twice changes nothing.
func (r *GamificationRepository) ApplyStreak(userID uint, attemptID string, at time.Time) (*model.UserStreak, error) {
	var streak model.UserStreak
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() != "sqlite" {
			query = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		err := query.First(&streak, "user_id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			streak = model.UserStreak{
				UserID:          userID,
				CurrentStreak:   1,
				LongestStreak:   1,
				LastAttemptDate: civilDay(at),
				LastAttemptID:   attemptID,
			}
			return tx.Create(&streak).Error
		}
		if err != nil {
			return err
		}
		if streak.LastAttemptID == attemptID {
			return nil
		}

		switch diff := daysBetween(streak.LastAttemptDate, at); {
		case diff < 0:
			// an older attempt arriving late does not rewind the streak
			streak.LastAttemptID = attemptID
			return tx.Save(&streak).Error
		case diff == 0:
		case diff == 1:
			streak.CurrentStreak++
		default:
			streak.CurrentStreak = 1
		}
		if streak.CurrentStreak > streak.LongestStreak {
			streak.LongestStreak = streak.CurrentStreak
		}
		streak.LastAttemptDate = civilDay(at)
		streak.LastAttemptID = attemptID
		return tx.Save(&streak).Error
	})
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

// CurrentStreak reads the streak as of now: a streak whose last attempt is
// older than yesterday is reported as broken.
func (r *GamificationRepository) CurrentStreak(userID uint, now time.Time) (model.UserStreak, error) {
	var streak model.UserStreak
	err := r.DB.First(&streak, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.UserStreak{UserID: userID}, nil
	}
	if err != nil {
		return streak, err
	}
	if daysBetween(streak.LastAttemptDate, now) > 1 {
		streak.CurrentStreak = 0
	}
	return streak, nil
}

// XPAward is the result of one AwardXP call.
type XPAward struct {
	// Applied is false when the ledger entry already existed.
	Applied   bool
	TotalXP   int
	NewBadges []model.Badge
}

// AwardXP records a ledger entry keyed by entryID, bumps the user's total
// and awards every active badge whose threshold the new total reaches.
// Replaying the same entryID leaves the total unchanged.
func (r *GamificationRepository) AwardXP(entryID string, userID uint, amount int, reason, attemptID string) (*XPAward, error) {
	award := &XPAward{}
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		entry := model.XPTransaction{
			ID:        entryID,
			UserID:    userID,
			Amount:    amount,
			Reason:    reason,
			AttemptID: attemptID,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected > 0 {
			award.Applied = true
			if err := tx.Where(model.UserXP{UserID: userID}).FirstOrCreate(&model.UserXP{UserID: userID}).Error; err != nil {
				return err
			}
			if err := tx.Model(&model.UserXP{}).
				Where("user_id = ?", userID).
				Updates(map[string]interface{}{
					"total_xp":   gorm.Expr("total_xp + ?", amount),
					"updated_at": time.Now(),
				}).Error; err != nil {
				return err
			}
		}

		var total model.UserXP
		if err := tx.Where("user_id = ?", userID).Limit(1).Find(&total).Error; err != nil {
			return err
		}
		award.TotalXP = total.TotalXP

		owned := tx.Model(&model.UserBadge{}).Select("badge_id").Where("user_id = ?", userID)
		var badges []model.Badge
		if err := tx.Where("is_active = ? AND xp_threshold <= ?", true, total.TotalXP).
			Where("id NOT IN (?)", owned).
			Order("xp_threshold ASC").
			Find(&badges).Error; err != nil {
			return err
		}
		now := time.Now()
		for _, b := range badges {
			ub := model.UserBadge{UserID: userID, BadgeID: b.ID, AwardedAt: now}
			if err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&ub).Error; err != nil {
				return err
			}
		}
		award.NewBadges = badges
		return nil
	})
	if err != nil {
		return nil, err
	}
	return award, nil
}

func (r *GamificationRepository) TotalXP(userID uint) (int, error) {
	var xp model.UserXP
	err := r.DB.Where("user_id = ?", userID).Limit(1).Find(&xp).Error
	return xp.TotalXP, err
}

func (r *GamificationRepository) UserBadges(userID uint) ([]model.UserBadge, error) {
	var badges []model.UserBadge
	err := r.DB.Preload("Badge").Where("user_id = ?", userID).Order("awarded_at ASC").Find(&badges).Error
	return badges, err
}

// LeaderboardRow is one ranked user.
type LeaderboardRow struct {
	Rank   int    `json:"rank" gorm:"-"`
	UserID uint   `json:"userId"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	XP     int    `json:"xp"`
}

// Leaderboard sums ledger entries created since `since`; a zero since
// ranks lifetime totals.
func (r *GamificationRepository) Leaderboard(since time.Time, limit int) ([]LeaderboardRow, error) {
	query := r.DB.Table("xp_transactions").
		Select("xp_transactions.user_id AS user_id, users.name AS name, users.avatar AS avatar, SUM(xp_transactions.amount) AS xp").
		Joins("JOIN users ON users.id = xp_transactions.user_id AND users.deleted_at IS NULL")
	if !since.IsZero() {
		query = query.Where("xp_transactions.created_at >= ?", since)
	}
	var rows []LeaderboardRow
	err := query.Group("xp_transactions.user_id, users.name, users.avatar").
		Order("xp DESC, user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, err
}

// XPByDay returns the XP earned per calendar day in [from, to).
func (r *GamificationRepository) XPByDay(userID uint, from, to time.Time) (map[string]int, error) {
	var entries []model.XPTransaction
	err := r.DB.Select("amount, created_at").
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from, to).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	days := make(map[string]int)
	for _, e := range entries {
		days[civilDay(e.CreatedAt).Format("2006-01-02")] += e.Amount
	}
	return days, nil
}
