package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/evoris-app/go-capsule-backend/internal/repo"
)

// Notification kinds.
const (
	NotifyUpcoming = "upcoming"
	NotifyUnlocked = "unlocked"
)

// Notification is a derived reminder about a capsule's unlock state. It has
// no table of its own; every read recomputes the set from the capsule
// snapshot, so notifications appear and disappear purely as a function of
// time.
type Notification struct {
	// ID is stable across reads: "{capsuleID}:{kind}".
	ID        string    `json:"id"`
	CapsuleID string    `json:"capsule_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	UnlockAt  time.Time `json:"unlock_at"`
}

// NotificationService derives unlock reminders for one owner.
type NotificationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Horizon bounds how far ahead upcoming unlocks are surfaced; values
	// <= 0 mean 30 days.
	Horizon time.Duration

	// Now returns the current time; nil means time.Now.
	Now func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, horizon time.Duration) *NotificationService {
	return &NotificationService{DB: db, Horizon: horizon}
}

func (s *NotificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *NotificationService) horizon() time.Duration {
	if s.Horizon <= 0 {
		return 30 * 24 * time.Hour
	}
	return s.Horizon
}

var titleCaser = cases.Title(language.English)

// List derives the owner's current notifications: one "unlocked" entry per
// open capsule and one "upcoming" entry per capsule unlocking within the
// horizon. Entries follow the capsule listing order, newest capsule first.
func (s *NotificationService) List(ctx context.Context, ownerID string) ([]Notification, error) {
	capsules, err := repo.ListCapsules(ctx, s.DB, ownerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := []Notification{}
	for i := range capsules {
		c := &capsules[i]
		title := titleCaser.String(c.Title)
		if !c.Locked(now) {
			out = append(out, Notification{
				ID:        c.ID + ":" + NotifyUnlocked,
				CapsuleID: c.ID,
				Kind:      NotifyUnlocked,
				Title:     title,
				Message:   fmt.Sprintf("%q has been unlocked!", c.Title),
				UnlockAt:  c.UnlockAt,
			})
			continue
		}
		until := c.UnlockAt.Sub(now)
		if until <= s.horizon() {
			days := int(math.Ceil(until.Hours() / 24))
			msg := fmt.Sprintf("%q will unlock in %d days", c.Title, days)
			if days == 1 {
				msg = fmt.Sprintf("%q will unlock in 1 day", c.Title)
			}
			out = append(out, Notification{
				ID:        c.ID + ":" + NotifyUpcoming,
				CapsuleID: c.ID,
				Kind:      NotifyUpcoming,
				Title:     title,
				Message:   msg,
				UnlockAt:  c.UnlockAt,
			})
		}
	}
	return out, nil
}

// Get returns the single notification with the given id, re-deriving the
// current set first. An id that no longer derives (the capsule was deleted
// or time moved past its window) reads as not found.
func (s *NotificationService) Get(ctx context.Context, ownerID, id string) (*Notification, error) {
	all, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, ErrNotificationNotFound
}
