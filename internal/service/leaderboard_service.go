package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"watchlearn/internal/repository"
	"watchlearn/internal/util"
	"watchlearn/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const leaderboardKeyPrefix = "leaderboard:"

type Period string

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case Weekly, Monthly:
		return Period(s), nil
	case "":
		return Weekly, nil
	}
	return "", util.ErrInvalidPeriod
}

func (p Period) window() time.Duration {
	if p == Monthly {
		return 30 * 24 * time.Hour
	}
	return 7 * 24 * time.Hour
}

type Leaderboard struct {
	Period      Period                      `json:"period"`
	Entries     []repository.LeaderboardRow `json:"entries"`
	GeneratedAt time.Time                   `json:"generatedAt"`
}

// LeaderboardService ranks users by XP earned in a rolling window. Results
// are cached in Redis when a client is configured.
type LeaderboardService struct {
	Repo  *repository.GamificationRepository
	Redis *redis.Client

	mu    sync.RWMutex
	ttl   time.Duration
	limit int
	now   func() time.Time
}

func NewLeaderboardService(repo *repository.GamificationRepository, rdb *redis.Client, ttl time.Duration, limit int) *LeaderboardService {
	if limit <= 0 {
		limit = 50
	}
	return &LeaderboardService{
		Repo:  repo,
		Redis: rdb,
		ttl:   ttl,
		limit: limit,
		now:   time.Now,
	}
}

// SetTTL changes the cache lifetime for entries written from now on.
func (s *LeaderboardService) SetTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = ttl
}

func (s *LeaderboardService) settings() (time.Duration, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ttl, s.limit
}

func (s *LeaderboardService) Get(ctx context.Context, period Period) (*Leaderboard, error) {
	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, leaderboardKeyPrefix+string(period)).Result()
		if err == nil {
			var board Leaderboard
			if err := json.Unmarshal([]byte(val), &board); err == nil {
				return &board, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("Leaderboard cache read failed", zap.Error(err))
		}
	}
	return s.compute(ctx, period)
}

func (s *LeaderboardService) compute(ctx context.Context, period Period) (*Leaderboard, error) {
	ttl, limit := s.settings()
	now := s.now()

	rows, err := s.Repo.Leaderboard(now.Add(-period.window()), limit)
	if err != nil {
		return nil, err
	}
	board := &Leaderboard{Period: period, Entries: rows, GeneratedAt: now}

	if s.Redis != nil && ttl > 0 {
		data, err := json.Marshal(board)
		if err == nil {
			err = s.Redis.Set(ctx, leaderboardKeyPrefix+string(period), data, ttl).Err()
		}
		if err != nil {
			logger.Log.Warn("Leaderboard cache write failed", zap.Error(err))
		}
	}
	return board, nil
}

// Refresh recomputes every period and rewrites the cache.
func (s *LeaderboardService) Refresh(ctx context.Context) error {
	for _, p := range []Period{Weekly, Monthly} {
		if _, err := s.compute(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Invalidate drops the cached boards so the next read recomputes them.
func (s *LeaderboardService) Invalidate(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, leaderboardKeyPrefix+string(Weekly), leaderboardKeyPrefix+string(Monthly)).Err(); err != nil {
		logger.Log.Warn("Leaderboard cache invalidation failed", zap.Error(err))
	}
}
