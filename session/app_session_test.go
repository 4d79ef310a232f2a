package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testStore(t *testing.T) (*AppSessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewAppSessionStore(rdb, time.Hour), mr
}

func TestSessionRoundTrip(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "sid-1", "user-1", false); err != nil {
		t.Fatal(err)
	}

	as, err := s.Get(ctx, "sid-1")
	if err != nil {
		t.Fatal(err)
	}
	if as.UserID != "user-1" || as.Admin {
		t.Fatalf("session = %+v", as)
	}
	if as.ExpiresAt <= as.IssuedAt {
		t.Fatal("expiry must be after issue")
	}
}

func TestSessionDelete(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "sid-1", "user-1", true); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "sid-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "sid-1"); !errors.Is(err, redis.Nil) {
		t.Fatalf("want redis.Nil, got %v", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	s, mr := testStore(t)
	ctx := context.Background()

	if err := s.Create(ctx, "sid-1", "user-1", false); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Hour)

	if _, err := s.Get(ctx, "sid-1"); !errors.Is(err, redis.Nil) {
		t.Fatalf("want redis.Nil after ttl, got %v", err)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()

	for _, sid := range []string{"sid-1", "sid-2"} {
		if err := s.Create(ctx, sid, "user-1", false); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Create(ctx, "sid-3", "user-2", false); err != nil {
		t.Fatal(err)
	}

	if err := s.RevokeAllForUser(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}

	for _, sid := range []string{"sid-1", "sid-2"} {
		if _, err := s.Get(ctx, sid); !errors.Is(err, redis.Nil) {
			t.Fatalf("%s must be revoked, got %v", sid, err)
		}
	}
	// other users' sessions stay
	if _, err := s.Get(ctx, "sid-3"); err != nil {
		t.Fatalf("sid-3 must survive: %v", err)
	}
}
