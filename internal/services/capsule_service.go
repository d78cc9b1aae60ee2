// Package services – CapsuleService
//
// This file implements CapsuleService, the application-level component that
// owns the capsule lifecycle: validated creation (attachment upload followed
// by a single record insert), owner-scoped listing and aggregation, the
// time-driven reveal gate with its optional manual override, and cascading
// deletion across the attachment store and the record store.
//
// Creation and deletion each span two independent stores with no atomic
// commit. The accepted failure modes are documented on the methods: a
// creation that fails after some uploads leaves orphaned blobs with no
// record; a deletion that fails mid-cleanup leaves the record in place so
// the operation can be re-run (blob deletes are idempotent).
//
// Observability: the lifecycle methods are OpenTelemetry-instrumented; spans
// include owner/capsule identifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/evoris-app/go-capsule-backend/internal/domain"
	"github.com/evoris-app/go-capsule-backend/internal/repo"
	"github.com/evoris-app/go-capsule-backend/internal/storage"
)

// Sort orders accepted by List.
const (
	// SortUnlockAsc orders by unlock time ascending (the management view).
	SortUnlockAsc = "unlock_at"
	// SortCreatedDesc orders by creation time descending (recency views).
	SortCreatedDesc = "created_at"
)

// Upload is a single file payload for capsule creation.
type Upload struct {
	// Name is the client-supplied file name; it becomes the last path
	// segment of the stored object key.
	Name string
	// Body supplies the file bytes. Read exactly once, during upload.
	Body io.Reader
}

// CreateCapsuleInput carries everything needed to create a capsule.
type CreateCapsuleInput struct {
	Title       string
	Description string
	UnlockAt    time.Time
	// Kinds is the set of selected content kinds.
	Kinds []string
	// Text is the verbatim text payload; required non-blank when "text" is
	// among Kinds.
	Text string
	// Files maps a non-text kind to its payload files, in client order.
	Files map[string][]Upload
}

// Stats is the dashboard aggregation over one owner's capsules. The counts
// always satisfy Total == Unlocked + Locked because they are derived in a
// single pass over the same snapshot.
type Stats struct {
	Total    int            `json:"total"`
	Unlocked int            `json:"unlocked"`
	Locked   int            `json:"locked"`
	Recent   []RecentCapsule `json:"recent"`
}

// RecentCapsule is the reduced projection used by the recent-activity list.
type RecentCapsule struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Locked bool   `json:"locked"`
}

// CapsuleService coordinates capsule persistence and attachment storage.
type CapsuleService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Store is the attachment store holding capsule blobs.
	Store storage.BlobStore

	// RecentLimit caps the Stats recent projection; values <= 0 mean 5.
	RecentLimit int

	// Now returns the current time; nil means time.Now. Tests override it
	// to pin the lock derivation and base-path generation.
	Now func() time.Time
}

// NewCapsuleService constructs a CapsuleService with default settings.
func NewCapsuleService(db *gorm.DB, store storage.BlobStore) *CapsuleService {
	return &CapsuleService{DB: db, Store: store, RecentLimit: 5}
}

func (s *CapsuleService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CapsuleService) recentLimit() int {
	if s.RecentLimit <= 0 {
		return 5
	}
	return s.RecentLimit
}

// CanView reports whether the capsule content is viewable at now. The time
// gate never re-locks; sessionUnlock is the manual gate's per-session
// override and is never persisted.
func CanView(c *domain.Capsule, now time.Time, sessionUnlock bool) bool {
	return !c.Locked(now) || sessionUnlock
}

// BasePath derives the attachment prefix for a capsule created by ownerID at
// the instant t: "capsules/{ownerID}/{epochMillis}". Wall-clock milliseconds
// are the only uniqueness mechanism; two creations by one owner in the same
// millisecond would collide, which is accepted as negligible.
func BasePath(ownerID string, t time.Time) string {
	return fmt.Sprintf("capsules/%s/%d", ownerID, t.UnixMilli())
}

// Create validates the input, uploads every attachment, and inserts exactly
// one capsule record. Validation happens before any store I/O: a rejected
// request has caused no upload and no insert.
//
// Uploads proceed kind by kind in canonical order; files within one kind are
// uploaded concurrently and joined before the next kind starts. The record
// insert is the final step, so a failure during upload leaves no record,
// only orphaned blobs, which are accepted (and surfaced in the returned
// error) rather than compensated.
func (s *CapsuleService) Create(ctx context.Context, ownerID string, in CreateCapsuleInput) (*domain.Capsule, error) {
	tr := otel.Tracer("services/CapsuleService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("owner.id", ownerID)),
	)
	defer span.End()

	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	now := s.now()

	// --- validation, strictly before any I/O ---
	if title == "" {
		return nil, ErrTitleRequired
	}
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	if !in.UnlockAt.After(now) {
		return nil, ErrUnlockNotFuture
	}
	kinds, err := normalizeKinds(in.Kinds)
	if err != nil {
		return nil, err
	}
	for _, kind := range kinds {
		if kind == domain.KindText {
			if strings.TrimSpace(in.Text) == "" {
				return nil, fmt.Errorf("%w: %s", ErrEmptyContent, kind)
			}
			continue
		}
		if len(in.Files[kind]) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyContent, kind)
		}
	}

	basePath := BasePath(ownerID, now)
	span.SetAttributes(attribute.String("capsule.base_path", basePath))

	// --- upload fan-out: kinds sequential, files within a kind parallel ---
	var assets []domain.Asset
	for _, kind := range kinds {
		if kind == domain.KindText {
			continue
		}
		files := in.Files[kind]
		kindAssets := make([]domain.Asset, len(files))

		g, gctx := errgroup.WithContext(ctx)
		for i, f := range files {
			i, f := i, f
			g.Go(func() error {
				key := fmt.Sprintf("%s/%s/%s", basePath, kind, f.Name)
				url, err := s.Store.Upload(gctx, key, f.Body)
				if err != nil {
					return fmt.Errorf("upload %s: %w", key, err)
				}
				kindAssets[i] = domain.Asset{
					ID:       uuid.NewString(),
					Kind:     kind,
					Name:     f.Name,
					Path:     key,
					URL:      url,
					Position: i,
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			// Blobs uploaded before the failure stay behind with no record
			// referencing them; see package comment.
			return nil, err
		}
		assets = append(assets, kindAssets...)
	}

	// --- single record insert, last ---
	c := &domain.Capsule{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Title:        title,
		Description:  description,
		UnlockAt:     in.UnlockAt.UTC(),
		BasePath:     basePath,
		ContentTypes: strings.Join(kinds, ","),
		CreatedAt:    now.UTC(),
		Assets:       assets,
	}
	if containsKind(kinds, domain.KindText) {
		c.Text = in.Text
	}
	if err := repo.CreateCapsule(ctx, s.DB, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListOptions tunes List.
type ListOptions struct {
	// Sort is SortUnlockAsc or SortCreatedDesc; empty means SortCreatedDesc.
	Sort string
	// Query optionally filters by a case-insensitive substring of title or
	// description.
	Query string
}

// List returns the owner's capsules. The store query always orders by
// creation time descending; the unlock-time ordering for the management view
// is applied here on the fetched snapshot, mirroring how the dashboard
// sorts client-side.
func (s *CapsuleService) List(ctx context.Context, ownerID string, opts ListOptions) ([]domain.Capsule, error) {
	tr := otel.Tracer("services/CapsuleService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("owner.id", ownerID),
			attribute.String("list.sort", opts.Sort),
		),
	)
	defer span.End()

	out, err := repo.SearchCapsules(ctx, s.DB, ownerID, opts.Query)
	if err != nil {
		return nil, err
	}
	if opts.Sort == SortUnlockAsc {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].UnlockAt.Before(out[j].UnlockAt)
		})
	}
	return out, nil
}

// ComputeStats derives Total/Unlocked/Locked counts and the recent
// projection in one pass over the owner's snapshot. Lock state is derived
// from UnlockAt at call time, never read from storage.
func (s *CapsuleService) ComputeStats(ctx context.Context, ownerID string) (Stats, error) {
	tr := otel.Tracer("services/CapsuleService")
	ctx, span := tr.Start(ctx, "ComputeStats",
		trace.WithAttributes(attribute.String("owner.id", ownerID)),
	)
	defer span.End()

	capsules, err := repo.ListCapsules(ctx, s.DB, ownerID)
	if err != nil {
		return Stats{}, err
	}

	now := s.now()
	st := Stats{Total: len(capsules), Recent: []RecentCapsule{}}
	limit := s.recentLimit()
	for i := range capsules {
		c := &capsules[i]
		locked := c.Locked(now)
		if locked {
			st.Locked++
		} else {
			st.Unlocked++
		}
		// capsules arrive ordered by created_at desc, so the first rows are
		// exactly the recent projection.
		if len(st.Recent) < limit {
			st.Recent = append(st.Recent, RecentCapsule{ID: c.ID, Title: c.Title, Locked: locked})
		}
	}
	return st, nil
}

// Get fetches one capsule (with assets) owned by ownerID.
func (s *CapsuleService) Get(ctx context.Context, ownerID, id string) (*domain.Capsule, error) {
	c, err := repo.GetCapsule(ctx, s.DB, id, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCapsuleNotFound
		}
		return nil, err
	}
	return c, nil
}

// Reveal evaluates the manual gate for a time-locked capsule: the guess is
// trimmed and then compared case-sensitively against the capsule title. A
// match grants access for the current response only; nothing is persisted
// and the capsule reads as locked again on the next load.
//
// The title is visible in list views, so this is a ceremony, not a security
// boundary.
func (s *CapsuleService) Reveal(ctx context.Context, ownerID, id, guess string) (*domain.Capsule, bool, error) {
	c, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, false, err
	}
	matched := strings.TrimSpace(guess) == c.Title
	return c, matched, nil
}

// Delete removes every blob under the capsule's base path and then the
// record. A capsule without a base path is refused outright: there is no way
// to know what to clean up.
//
// The record goes last on purpose. If any blob delete fails the record
// survives and the operation reports failure; re-running it is safe because
// blob deletes treat missing keys as no-ops.
func (s *CapsuleService) Delete(ctx context.Context, ownerID, id string) error {
	tr := otel.Tracer("services/CapsuleService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(
			attribute.String("owner.id", ownerID),
			attribute.String("capsule.id", id),
		),
	)
	defer span.End()

	c, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(c.BasePath) == "" {
		return ErrMissingBasePath
	}

	keys, err := s.Store.ListPrefix(ctx, c.BasePath)
	if err != nil {
		return fmt.Errorf("list attachments: %w", err)
	}
	for _, key := range keys {
		if err := s.Store.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete attachment %s: %w", key, err)
		}
	}

	if err := repo.DeleteCapsule(ctx, s.DB, id, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCapsuleNotFound
		}
		return err
	}
	return nil
}

// normalizeKinds trims, validates, and de-duplicates the selected kinds,
// returning them in canonical order.
func normalizeKinds(kinds []string) ([]string, error) {
	seen := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !domain.IsContentKind(k) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownContentKind, k)
		}
		seen[k] = struct{}{}
	}
	if len(seen) == 0 {
		return nil, ErrNoContentSelected
	}
	out := make([]string, 0, len(seen))
	for _, k := range domain.ContentKinds {
		if _, ok := seen[k]; ok {
			out = append(out, k)
		}
	}
	return out, nil
}

func containsKind(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
