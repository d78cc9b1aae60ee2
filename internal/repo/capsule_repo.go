// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Capsule
// model and its assets.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a capsule is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Ownership: every read and delete is filtered by ownerID so a capsule is
// only ever visible to, and deletable by, the user that created it.
package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/evoris-app/go-capsule-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateCapsule inserts the capsule row together with its asset rows in one
// transaction. The caller supplies fully populated records (ids, base path,
// asset positions); nothing is mutated here.
func CreateCapsule(ctx context.Context, db *gorm.DB, c *domain.Capsule) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assets := c.Assets
		c.Assets = nil
		if err := tx.Create(c).Error; err != nil {
			c.Assets = assets
			return err
		}
		for i := range assets {
			assets[i].CapsuleID = c.ID
		}
		if len(assets) > 0 {
			if err := tx.Create(&assets).Error; err != nil {
				c.Assets = assets
				return err
			}
		}
		c.Assets = assets
		return nil
	})
}

// ListCapsules returns all capsules belonging to ownerID, ordered by creation
// time descending (most recent first). Assets are not preloaded; list views
// only need row-level fields. It returns an empty slice when the owner has
// no capsules.
func ListCapsules(ctx context.Context, db *gorm.DB, ownerID string) ([]domain.Capsule, error) {
	var out []domain.Capsule
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// SearchCapsules returns ownerID's capsules whose title or description
// contains q (case-insensitive), ordered by creation time descending.
// An empty q behaves like ListCapsules.
func SearchCapsules(ctx context.Context, db *gorm.DB, ownerID, q string) ([]domain.Capsule, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return ListCapsules(ctx, db, ownerID)
	}
	var out []domain.Capsule
	pat := "%" + strings.ToLower(q) + "%"
	err := db.WithContext(ctx).
		Where("owner_id = ? AND (LOWER(title) LIKE ? OR LOWER(description) LIKE ?)", ownerID, pat, pat).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// CountCapsules returns the total number of capsules owned by ownerID.
func CountCapsules(ctx context.Context, db *gorm.DB, ownerID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Capsule{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error
	return total, err
}

// GetCapsule fetches a single capsule by its ID and owner, with assets
// preloaded in upload order. If the record does not exist (or belongs to a
// different owner), it returns ErrNotFound.
func GetCapsule(ctx context.Context, db *gorm.DB, id, ownerID string) (*domain.Capsule, error) {
	var c domain.Capsule
	err := db.WithContext(ctx).
		Preload("Assets", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("kind, position")
		}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCapsule removes the capsule row and its asset rows. This is a hard
// delete: the record must not reappear in any subsequent listing. If no row
// matches (already deleted or foreign owner), it returns ErrNotFound.
//
// Blob cleanup is the service's responsibility and happens before this call;
// the record is deliberately the last thing to go.
func DeleteCapsule(ctx context.Context, db *gorm.DB, id, ownerID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&domain.Capsule{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		// SQLite only enforces ON DELETE CASCADE with foreign_keys=ON; delete
		// the children explicitly so the rows are gone either way.
		return tx.Where("capsule_id = ?", id).Delete(&domain.Asset{}).Error
	})
}
