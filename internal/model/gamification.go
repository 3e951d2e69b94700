package model

import "time"

type UserStreak struct {
	UserID          uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	CurrentStreak   int       `gorm:"default:0" json:"currentStreak"`
	LongestStreak   int       `gorm:"default:0" json:"longestStreak"`
	LastAttemptDate time.Time `json:"lastAttemptDate"`
	// last attempt applied, so a replayed update is skipped
	LastAttemptID string    `gorm:"type:varchar(36)" json:"-"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (UserStreak) TableName() string {
	return "user_streaks"
}

type UserXP struct {
	UserID    uint      `gorm:"primaryKey;autoIncrement:false" json:"userId"`
	TotalXP   int       `gorm:"default:0" json:"totalXp"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserXP) TableName() string {
	return "user_xp"
}

// XPTransaction is the append-only XP ledger. Leaderboards sum it by window.
type XPTransaction struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"userId"`
	Amount    int       `gorm:"not null" json:"amount"`
	Reason    string    `gorm:"size:100" json:"reason"`
	AttemptID string    `gorm:"type:varchar(36);index" json:"attemptId,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (XPTransaction) TableName() string {
	return "xp_transactions"
}

// swagger:model Badge
type Badge struct {
	BaseModel
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"size:500" json:"description"`
	ImageURL    string `gorm:"size:500" json:"imageUrl"`
	// object key in storage, used to delete the image with the badge
	ImageKey    string `gorm:"size:255" json:"-"`
	XPThreshold int    `gorm:"not null;default:0" json:"xpThreshold"`
	IsActive    bool   `gorm:"default:true" json:"isActive"`
}

func (Badge) TableName() string {
	return "badges"
}

type UserBadge struct {
	BaseModel
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"userId"`
	BadgeID   uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"badgeId"`
	AwardedAt time.Time `json:"awardedAt"`
	Badge     Badge     `gorm:"foreignKey:BadgeID" json:"badge"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
