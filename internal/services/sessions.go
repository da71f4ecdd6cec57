package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/murshop24/admin/internal/models"
)

// Clock abstracts time.Now for session expiry.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Sessions stores admin login sessions in the database so they survive
// restarts and work behind several server instances.
type Sessions struct {
	db    *gorm.DB
	ttl   time.Duration
	clock Clock
}

func NewSessions(db *gorm.DB, ttl time.Duration, clock Clock) *Sessions {
	return &Sessions{db: db, ttl: ttl, clock: clock}
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

// Create opens a session and returns its token.
func (s *Sessions) Create(ctx context.Context) (models.AdminSession, error) {
	sess := models.AdminSession{
		Token:     uuid.NewString(),
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return models.AdminSession{}, err
	}
	return sess, nil
}

// Valid reports whether token names an unexpired session.
func (s *Sessions) Valid(ctx context.Context, token string) bool {
	if _, err := uuid.Parse(token); err != nil {
		return false
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.AdminSession{}).
		Where("token = ? AND expires_at > ?", token, s.clock.Now()).
		Count(&n).Error
	return err == nil && n > 0
}

func (s *Sessions) Revoke(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.AdminSession{}).Error
}

// Purge drops expired sessions and returns how many were removed.
func (s *Sessions) Purge(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.clock.Now()).Delete(&models.AdminSession{})
	return res.RowsAffected, res.Error
}
