package domain

import (
	"testing"
	"time"
)

func TestCapsuleLocked(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		unlockAt time.Time
		want     bool
	}{
		{"future unlock is locked", now.Add(time.Hour), true},
		{"past unlock is open", now.Add(-time.Second), false},
		{"exact unlock instant is open", now, false},
		{"far future stays locked", now.AddDate(10, 0, 0), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Capsule{UnlockAt: tc.unlockAt}
			if got := c.Locked(now); got != tc.want {
				t.Fatalf("Locked(%v) with unlockAt=%v: got %v want %v", now, tc.unlockAt, got, tc.want)
			}
		})
	}
}

func TestCapsuleLockedIgnoresStoredState(t *testing.T) {
	// Lock state must be a pure function of UnlockAt and now; mutating other
	// fields must not change the derivation.
	now := time.Now().UTC()
	c := &Capsule{UnlockAt: now.Add(time.Minute), ContentTypes: "text", Text: "hi"}
	if !c.Locked(now) {
		t.Fatal("expected locked before unlockAt")
	}
	if c.Locked(now.Add(2 * time.Minute)) {
		t.Fatal("expected unlocked after unlockAt")
	}
}

func TestCapsuleKinds(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"text", []string{"text"}},
		{"photos,text", []string{"photos", "text"}},
		{" photos , videos ,", []string{"photos", "videos"}},
	}
	for _, tc := range cases {
		c := &Capsule{ContentTypes: tc.in}
		got := c.Kinds()
		if len(got) != len(tc.want) {
			t.Fatalf("Kinds(%q) = %v, want %v", tc.in, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("Kinds(%q)[%d] = %q, want %q", tc.in, i, got[i], tc.want[i])
			}
		}
	}
}

func TestAssetsByKindPreservesOrder(t *testing.T) {
	c := &Capsule{Assets: []Asset{
		{Kind: KindPhotos, Name: "a.jpg", Position: 0},
		{Kind: KindPhotos, Name: "b.jpg", Position: 1},
		{Kind: KindAudio, Name: "v.mp3", Position: 0},
	}}
	grouped := c.AssetsByKind()
	if len(grouped[KindPhotos]) != 2 || len(grouped[KindAudio]) != 1 {
		t.Fatalf("unexpected grouping: %+v", grouped)
	}
	if grouped[KindPhotos][0].Name != "a.jpg" || grouped[KindPhotos][1].Name != "b.jpg" {
		t.Fatalf("photo order not preserved: %+v", grouped[KindPhotos])
	}
}

func TestIsContentKind(t *testing.T) {
	for _, k := range ContentKinds {
		if !IsContentKind(k) {
			t.Fatalf("IsContentKind(%q) = false", k)
		}
	}
	for _, k := range []string{"", "gif", "Photos", "documents"} {
		if IsContentKind(k) {
			t.Fatalf("IsContentKind(%q) = true", k)
		}
	}
}

func TestTableNames(t *testing.T) {
	if (User{}).TableName() != "users" {
		t.Fatal("users table name")
	}
	if (Capsule{}).TableName() != "capsules" {
		t.Fatal("capsules table name")
	}
	if (Asset{}).TableName() != "capsule_assets" {
		t.Fatal("capsule_assets table name")
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatal("idempotency table name")
	}
}
