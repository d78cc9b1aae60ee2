// Capsule HTTP handlers.
//
// This file exposes REST endpoints for capsule resources:
//   - POST   /capsules             (create, multipart upload, idempotent retries)
//   - GET    /capsules             (list with derived lock status, ETag support)
//   - GET    /capsules/stats       (dashboard aggregation)
//   - GET    /capsules/{id}        (fetch one; locked content is withheld)
//   - POST   /capsules/{id}/reveal (manual title-match gate)
//   - DELETE /capsules/{id}        (cascading delete, blobs then record)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
//
// Idempotency:
// If the client supplies an Idempotency-Key header on create and a previous
// successful result exists for (user, "capsule_create", key), the handler
// returns the recorded capsule and sets `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evoris-app/go-capsule-backend/internal/domain"
	"github.com/evoris-app/go-capsule-backend/internal/http/middleware"
	"github.com/evoris-app/go-capsule-backend/internal/repo"
	"github.com/evoris-app/go-capsule-backend/internal/services"
	"github.com/evoris-app/go-capsule-backend/internal/utils"
)

// idemScopeCreate is the idempotency scope covering capsule creation.
const idemScopeCreate = "capsule_create"

//
// Service contracts (context-aware)
//

// CapsuleService defines the capsule lifecycle operations consumed by HTTP
// handlers. Implementations must be safe for concurrent use and honor the
// provided context.
type CapsuleService interface {
	// Create validates the input, uploads attachments, and inserts the record.
	Create(ctx context.Context, ownerID string, in services.CreateCapsuleInput) (*domain.Capsule, error)
	// List returns the owner's capsules, filtered and ordered per opts.
	List(ctx context.Context, ownerID string, opts services.ListOptions) ([]domain.Capsule, error)
	// ComputeStats derives the dashboard aggregation for an owner.
	ComputeStats(ctx context.Context, ownerID string) (services.Stats, error)
	// Get fetches one capsule (with assets) owned by ownerID.
	Get(ctx context.Context, ownerID, id string) (*domain.Capsule, error)
	// Reveal evaluates the manual title-match gate for a capsule.
	Reveal(ctx context.Context, ownerID, id, guess string) (*domain.Capsule, bool, error)
	// Delete removes the capsule's blobs and then its record.
	Delete(ctx context.Context, ownerID, id string) error
}

// UserService defines identity operations consumed by HTTP handlers.
type UserService interface {
	Register(ctx context.Context, email, displayName, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Profile(ctx context.Context, id string) (*domain.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) (*domain.User, error)
	ChangePassword(ctx context.Context, id, current, next string) error
}

// NotificationService defines the derived-notification reads consumed by
// HTTP handlers.
type NotificationService interface {
	List(ctx context.Context, ownerID string) ([]services.Notification, error)
	Get(ctx context.Context, ownerID, id string) (*services.Notification, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for capsules, identity, and
// notifications. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	capSvc   CapsuleService
	userSvc  UserService
	notifSvc NotificationService

	// Now returns the current time for lock derivation; nil means time.Now.
	Now func() time.Time

	// IdempotencyTTL bounds how long a stored Idempotency-Key replays.
	// Zero means 24h.
	IdempotencyTTL time.Duration
}

// New constructs a Handlers instance bound to the given services.
func New(capSvc CapsuleService, userSvc UserService, notifSvc NotificationService) *Handlers {
	return &Handlers{capSvc: capSvc, userSvc: userSvc, notifSvc: notifSvc}
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *Handlers) idemTTL() time.Duration {
	if h.IdempotencyTTL > 0 {
		return h.IdempotencyTTL
	}
	return 24 * time.Hour
}

// userID extracts the authenticated user id from the Gin context (set by the
// auth middleware). If absent, it falls back to the "X-User-ID" header
// (tests use it), and finally to "demo-user".
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CapsuleView is the wire representation of a capsule. Lock status is
// derived at render time; the text payload and asset listing are withheld
// while the capsule is locked and not revealed.
type CapsuleView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	UnlockAt    time.Time      `json:"unlock_at"`
	CreatedAt   time.Time      `json:"created_at"`
	Kinds       []string       `json:"content_types"`
	Locked      bool           `json:"locked"`
	Text        string         `json:"text,omitempty"`
	Assets      []domain.Asset `json:"assets,omitempty"`
}

// newCapsuleView renders c for the wire, exposing content only when the time
// gate has passed or the manual gate granted access for this response.
func newCapsuleView(c *domain.Capsule, now time.Time, revealed bool) CapsuleView {
	v := CapsuleView{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		UnlockAt:    c.UnlockAt,
		CreatedAt:   c.CreatedAt,
		Kinds:       c.Kinds(),
		Locked:      c.Locked(now),
	}
	if services.CanView(c, now, revealed) {
		v.Text = c.Text
		v.Assets = c.Assets
	}
	return v
}

// CreateCapsuleResponse wraps the created capsule.
type CreateCapsuleResponse struct {
	Capsule CapsuleView `json:"capsule"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListCapsulesResponse wraps a page of the owner's capsules.
type ListCapsulesResponse struct {
	Capsules   []CapsuleView `json:"capsules"`
	Pagination Pagination    `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// RevealRequest is the JSON payload for the manual reveal gate.
type RevealRequest struct {
	// Guess is the title attempt; surrounding whitespace is ignored.
	Guess string `json:"guess"`
}

// RevealResponse carries the gate outcome and, on success, the full capsule.
type RevealResponse struct {
	Matched bool        `json:"matched"`
	Capsule CapsuleView `json:"capsule"`
}

//
// Handlers
//

// CreateCapsule handles POST /capsules.
//
// The request is multipart/form-data with fields title, description,
// unlock_at (RFC 3339), content_types (comma-separated), text, and one file
// part per selected non-text kind named after the kind ("photos", "videos",
// "audio"). Retries carrying the same Idempotency-Key return the originally
// created capsule instead of creating a duplicate.
func (h *Handlers) CreateCapsule(c *gin.Context) {
	ctx := c.Request.Context()
	currentUser := userID(c)

	// Idempotency (replay path): read the validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if svc, okSvc := h.capSvc.(*services.CapsuleService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, currentUser, idemScopeCreate, idemKey, h.now().UTC()); err == nil && rec != nil {
				if prev, err2 := h.capSvc.Get(ctx, currentUser, rec.CapsuleID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusCreated, CreateCapsuleResponse{Capsule: newCapsuleView(prev, h.now(), false)})
					return
				}
			}
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "multipart form required")
		return
	}

	unlockAt, err := time.Parse(time.RFC3339, formValue(form.Value, "unlock_at"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unlock_at must be RFC 3339")
		return
	}

	in := services.CreateCapsuleInput{
		Title:       formValue(form.Value, "title"),
		Description: formValue(form.Value, "description"),
		UnlockAt:    unlockAt,
		Kinds:       splitKinds(formValue(form.Value, "content_types")),
		Text:        formValue(form.Value, "text"),
		Files:       map[string][]services.Upload{},
	}

	// One file part per kind; order within a part is preserved.
	var opened []interface{ Close() error }
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, kind := range domain.ContentKinds {
		if kind == domain.KindText {
			continue
		}
		for _, fh := range form.File[kind] {
			f, err := fh.Open()
			if err != nil {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("unreadable %s upload %q", kind, fh.Filename))
				return
			}
			opened = append(opened, f)
			in.Files[kind] = append(in.Files[kind], services.Upload{Name: fh.Filename, Body: f})
		}
	}

	created, err := h.capSvc.Create(ctx, currentUser, in)
	if err != nil {
		switch {
		case isValidationErr(err):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	// Idempotency (store path), best effort.
	if idemKey != "" {
		if svc, okSvc := h.capSvc.(*services.CapsuleService); okSvc && svc.DB != nil {
			_, _ = repo.CreateIdempotency(ctx, svc.DB, currentUser, idemScopeCreate, idemKey, created.ID, http.StatusCreated, h.idemTTL())
		}
	}

	ok(c, http.StatusCreated, CreateCapsuleResponse{Capsule: newCapsuleView(created, h.now(), false)})
}

// ListCapsules handles GET /capsules.
//
// Query parameters: sort=unlock_at|created_at (default created_at) and an
// optional q filter on title or description. Supports a weak ETag via
// If-None-Match and may return 304.
func (h *Handlers) ListCapsules(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check, best effort.
	var db *gorm.DB
	if svc, okSvc := h.capSvc.(*services.CapsuleService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.CapsulesStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"capsules:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	opts := services.ListOptions{
		Sort:  c.DefaultQuery("sort", services.SortCreatedDesc),
		Query: strings.TrimSpace(c.Query("q")),
	}
	if opts.Sort != services.SortUnlockAsc && opts.Sort != services.SortCreatedDesc {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sort must be unlock_at or created_at")
		return
	}

	items, err := h.capSvc.List(ctx, uid, opts)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	// Page window over the sorted owner snapshot.
	total := int64(len(items))
	start := (page - 1) * pageSize
	if start > len(items) {
		start = len(items)
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	pageItems := items[start:end]

	now := h.now()
	views := make([]CapsuleView, 0, len(pageItems))
	for i := range pageItems {
		views = append(views, newCapsuleView(&pageItems[i], now, false))
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListCapsulesResponse{
		Capsules: views,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// CapsuleStats handles GET /capsules/stats.
func (h *Handlers) CapsuleStats(c *gin.Context) {
	st, err := h.capSvc.ComputeStats(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, st)
}

// GetCapsule handles GET /capsules/{id}. Locked capsules return metadata
// only; the text payload and assets stay hidden until the time gate passes
// or a reveal succeeds.
func (h *Handlers) GetCapsule(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "capsule id must be a UUID")
		return
	}

	cs, err := h.capSvc.Get(c.Request.Context(), userID(c), id)
	if err != nil {
		if errors.Is(err, services.ErrCapsuleNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "capsule not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, newCapsuleView(cs, h.now(), false))
}

// RevealCapsule handles POST /capsules/{id}/reveal.
//
// The guess is compared against the capsule title (trimmed, case-sensitive).
// A match exposes the full capsule in this response only; nothing is
// persisted, and the capsule reads as locked again on the next fetch.
func (h *Handlers) RevealCapsule(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "capsule id must be a UUID")
		return
	}

	var req RevealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	cs, matched, err := h.capSvc.Reveal(c.Request.Context(), userID(c), id, req.Guess)
	if err != nil {
		if errors.Is(err, services.ErrCapsuleNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "capsule not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	if !matched && cs.Locked(h.now()) {
		fail(c, http.StatusForbidden, ErrCodeRevealMismatch, "title does not match")
		return
	}
	ok(c, http.StatusOK, RevealResponse{Matched: matched, Capsule: newCapsuleView(cs, h.now(), matched)})
}

// DeleteCapsule handles DELETE /capsules/{id}. Blob cleanup runs first; the
// record is removed only after every blob is gone, so a failed cleanup
// leaves the capsule visible and the operation retryable.
func (h *Handlers) DeleteCapsule(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "capsule id must be a UUID")
		return
	}

	if err := h.capSvc.Delete(c.Request.Context(), userID(c), id); err != nil {
		switch err {
		case services.ErrCapsuleNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "capsule not found")
		case services.ErrMissingBasePath:
			fail(c, http.StatusConflict, ErrCodeConflict, "capsule has no storage path")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		}
		return
	}
	noContent(c)
}

//
// Helpers
//

// formValue returns the first trimmed value for key in a multipart form.
func formValue(values map[string][]string, key string) string {
	if vv, okV := values[key]; okV && len(vv) > 0 {
		return strings.TrimSpace(vv[0])
	}
	return ""
}

// splitKinds parses the comma-separated content_types form field.
func splitKinds(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// isValidationErr reports whether err is one of the creation-input sentinels
// that map to a 400 response.
func isValidationErr(err error) bool {
	for _, target := range []error{
		services.ErrTitleRequired,
		services.ErrDescriptionRequired,
		services.ErrUnlockNotFuture,
		services.ErrNoContentSelected,
		services.ErrUnknownContentKind,
		services.ErrEmptyContent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
