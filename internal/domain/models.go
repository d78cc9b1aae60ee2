// Package domain defines the persistence models for users, capsules, and
// capsule assets. These types are mapped with GORM and form the core data
// layer of the capsule application.
package domain

import (
	"strings"
	"time"
)

// Content kinds a capsule may carry. Every kind except KindText is backed by
// uploaded files; KindText is stored verbatim on the capsule row.
const (
	KindPhotos = "photos"
	KindVideos = "videos"
	KindAudio  = "audio"
	KindText   = "text"
)

// ContentKinds lists the supported content kinds in canonical order.
var ContentKinds = []string{KindPhotos, KindVideos, KindAudio, KindText}

// IsContentKind reports whether s names a supported content kind.
func IsContentKind(s string) bool {
	switch s {
	case KindPhotos, KindVideos, KindAudio, KindText:
		return true
	}
	return false
}

// User represents an account able to own capsules. Credentials are stored as
// a bcrypt hash; the clear-text password never reaches the persistence layer.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique sign-in identifier.
//   - DisplayName: name shown in the dashboard header and profile views.
//   - PasswordHash: bcrypt digest of the password.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type User struct {
	ID           string    `json:"id"           gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"        gorm:"type:varchar(255);not null;uniqueIndex:ux_users_email"`
	DisplayName  string    `json:"display_name" gorm:"type:varchar(255);not null"`
	PasswordHash string    `json:"-"            gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Capsule represents a time-locked bundle of media and text owned by a user.
// Its lock state is never stored: it is derived from UnlockAt on every read
// (see Locked), so a capsule "unlocks" simply by the clock passing UnlockAt.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - OwnerID: identifier of the owning user; indexed, scopes every query.
//   - Title: capsule name; also the phrase checked by the manual reveal gate.
//   - Description: free-form summary shown in list views.
//   - UnlockAt: the instant after which the content becomes viewable.
//   - BasePath: object-store prefix uniquely grouping this capsule's blobs
//     ("capsules/{ownerID}/{creationEpochMillis}"); required for deletion.
//   - ContentTypes: comma-separated set of selected kinds ("photos,text").
//   - Text: verbatim text payload when the text kind was selected.
//   - Assets: uploaded files, ordered per kind by Position.
type Capsule struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	OwnerID      string    `json:"owner_id"      gorm:"type:char(36);not null;index:idx_owner_capsules"`
	Title        string    `json:"title"         gorm:"type:varchar(255);not null"`
	Description  string    `json:"description"   gorm:"type:text;not null"`
	UnlockAt     time.Time `json:"unlock_at"     gorm:"not null"`
	BasePath     string    `json:"base_path"     gorm:"type:varchar(512);not null;uniqueIndex:ux_capsule_base_path"`
	ContentTypes string    `json:"content_types" gorm:"type:varchar(64);not null"`
	Text         string    `json:"text,omitempty" gorm:"type:text"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Assets []Asset `json:"assets,omitempty" gorm:"foreignKey:CapsuleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Capsule.
func (Capsule) TableName() string { return "capsules" }

// Locked reports whether the capsule is still time-locked at now.
// This derivation is the single source of truth for lock state.
func (c *Capsule) Locked(now time.Time) bool {
	return c.UnlockAt.After(now)
}

// Kinds returns the selected content kinds as a slice, split from the
// stored comma-separated form. Blank entries are skipped.
func (c *Capsule) Kinds() []string {
	if c.ContentTypes == "" {
		return nil
	}
	parts := strings.Split(c.ContentTypes, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AssetsByKind groups the capsule's assets by kind, preserving Position order
// within each kind (assets are loaded ordered by position).
func (c *Capsule) AssetsByKind() map[string][]Asset {
	if len(c.Assets) == 0 {
		return nil
	}
	out := make(map[string][]Asset)
	for _, a := range c.Assets {
		out[a.Kind] = append(out[a.Kind], a)
	}
	return out
}

// Asset represents a single uploaded file belonging to a capsule. The object
// lives in the attachment store under Path; URL is the retrievable location
// captured at upload time.
//
// Assets are cascade-deleted with their capsule row; the blobs themselves are
// removed by the deletion workflow before the rows go.
type Asset struct {
	ID        string    `json:"id"       gorm:"type:char(36);primaryKey"`
	CapsuleID string    `json:"-"        gorm:"type:char(36);not null;index:idx_capsule_assets,priority:1"`
	Kind      string    `json:"kind"     gorm:"type:varchar(16);not null;check:kind IN ('photos','videos','audio')"`
	Name      string    `json:"name"     gorm:"type:varchar(255);not null"`
	Path      string    `json:"-"        gorm:"type:varchar(512);not null"`
	URL       string    `json:"url"      gorm:"type:varchar(1024);not null"`
	Position  int       `json:"position" gorm:"not null;index:idx_capsule_assets,priority:2"`
	CreatedAt time.Time `json:"created_at"`

	Capsule Capsule `json:"-" gorm:"foreignKey:CapsuleID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Asset.
func (Asset) TableName() string { return "capsule_assets" }
