package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/campfirehq/intake-service/internal/repository"
)

func newMiniRedisStore(t *testing.T) (*miniredis.Miniredis, repository.WindowStore) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, repository.NewRedisWindowStore(client)
}

func TestAdmissionLimiterBlocksOverBudget(t *testing.T) {
	mr, store := newMiniRedisStore(t)
	limiter := NewAdmissionLimiter(store, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		retryAfter, allowed, err := limiter.Allow(ctx, "user-1")
		if err != nil {
			t.Fatalf("allow #%d: %v", i+1, err)
		}
		if !allowed || retryAfter != 0 {
			t.Fatalf("unexpected result on allow #%d: allowed=%v retry_after=%d", i+1, allowed, retryAfter)
		}
	}

	retryAfter, allowed, err := limiter.Allow(ctx, "user-1")
	if err != nil {
		t.Fatalf("allow #3: %v", err)
	}
	if allowed {
		t.Fatalf("expected block on third request inside the window")
	}
	if retryAfter <= 0 {
		t.Fatalf("expected positive retry_after, got %d", retryAfter)
	}

	// another applicant has an independent budget
	_, allowed, err = limiter.Allow(ctx, "user-2")
	if err != nil {
		t.Fatalf("allow other applicant: %v", err)
	}
	if !allowed {
		t.Fatalf("expected independent window per applicant")
	}

	mr.FastForward(61 * time.Second)

	retryAfter, allowed, err = limiter.Allow(ctx, "user-1")
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed || retryAfter != 0 {
		t.Fatalf("unexpected result after window expiry: allowed=%v retry_after=%d", allowed, retryAfter)
	}
}

func TestAdmissionLimiterDisabled(t *testing.T) {
	limiter := NewAdmissionLimiter(nil, 0)

	_, allowed, err := limiter.Allow(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("disabled limiter: %v", err)
	}
	if !allowed {
		t.Fatalf("disabled limiter must always allow")
	}
}

func TestAdmissionLimiterRejectsEmptyApplicant(t *testing.T) {
	_, store := newMiniRedisStore(t)
	limiter := NewAdmissionLimiter(store, 2)

	if _, _, err := limiter.Allow(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty applicant id")
	}
}
