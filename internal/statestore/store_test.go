package statestore

import (
	"testing"

	"github.com/vituali/sgp_bridge/internal/sgp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestSessionStatusRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if _, ok, err := store.LoadSessionStatus(); err != nil || ok {
		t.Fatalf("LoadSessionStatus() on empty store = ok %v, err %v; want miss", ok, err)
	}

	want := sgp.SessionStatus{IsLoggedIn: true, BaseURL: "https://sgp.example.com", Date: "2026-03-10"}
	if err := store.SaveSessionStatus(want); err != nil {
		t.Fatalf("SaveSessionStatus() error = %v", err)
	}

	got, ok, err := store.LoadSessionStatus()
	if err != nil || !ok {
		t.Fatalf("LoadSessionStatus() = ok %v, err %v; want hit", ok, err)
	}
	if got != want {
		t.Fatalf("status = %+v; want %+v", got, want)
	}

	if err := store.ClearSessionStatus(); err != nil {
		t.Fatalf("ClearSessionStatus() error = %v", err)
	}
	if _, ok, _ := store.LoadSessionStatus(); ok {
		t.Fatal("status survived ClearSessionStatus()")
	}
}

func TestClearSessionStatusIdempotent(t *testing.T) {
	store := newTestStore(t)
	if err := store.ClearSessionStatus(); err != nil {
		t.Fatalf("ClearSessionStatus() on empty store error = %v", err)
	}
}

func TestTakePendingFillDeletes(t *testing.T) {
	store := newTestStore(t)

	sub := sgp.OccurrenceSubmission{ID: "abc", ClientSgpID: "42", OsText: "sem conexão"}
	if err := store.SavePendingFill(sub); err != nil {
		t.Fatalf("SavePendingFill() error = %v", err)
	}

	got, ok, err := store.TakePendingFill()
	if err != nil || !ok {
		t.Fatalf("TakePendingFill() = ok %v, err %v; want hit", ok, err)
	}
	if got.ID != sub.ID || got.ClientSgpID != sub.ClientSgpID {
		t.Fatalf("pending fill = %+v; want %+v", got, sub)
	}

	if _, ok, _ := store.TakePendingFill(); ok {
		t.Fatal("pending fill survived its own take")
	}
}

func TestDropPendingFill(t *testing.T) {
	store := newTestStore(t)
	if err := store.SavePendingFill(sgp.OccurrenceSubmission{ID: "abc"}); err != nil {
		t.Fatalf("SavePendingFill() error = %v", err)
	}
	if err := store.DropPendingFill(); err != nil {
		t.Fatalf("DropPendingFill() error = %v", err)
	}
	if _, ok, _ := store.TakePendingFill(); ok {
		t.Fatal("pending fill survived DropPendingFill()")
	}
}
