package repo

import (
	"context"
	"testing"
)

func TestCreateUserAndLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "ada@example.com", "Ada", "hash")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated id")
	}

	byEmail, err := GetUserByEmail(ctx, db, "ada@example.com")
	if err != nil || byEmail.ID != u.ID {
		t.Fatalf("GetUserByEmail: %v %+v", err, byEmail)
	}
	byID, err := GetUser(ctx, db, u.ID)
	if err != nil || byID.Email != "ada@example.com" {
		t.Fatalf("GetUser: %v %+v", err, byID)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := CreateUser(ctx, db, "dup@example.com", "One", "h1"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := CreateUser(ctx, db, "dup@example.com", "Two", "h2"); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateDisplayNameAndPassword(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := CreateUser(ctx, db, "bob@example.com", "Bob", "old")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := UpdateDisplayName(ctx, db, u.ID, "Robert"); err != nil {
		t.Fatalf("UpdateDisplayName: %v", err)
	}
	if err := UpdatePasswordHash(ctx, db, u.ID, "new"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}

	got, _ := GetUser(ctx, db, u.ID)
	if got.DisplayName != "Robert" || got.PasswordHash != "new" {
		t.Fatalf("updates not applied: %+v", got)
	}

	if err := UpdateDisplayName(ctx, db, "missing", "x"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
	if err := UpdatePasswordHash(ctx, db, "missing", "x"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}
