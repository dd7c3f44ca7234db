package service

import (
	"context"
	"fmt"
	"time"

	"github.com/campfirehq/intake-service/internal/repository"
)

const admissionRateWindow = time.Minute

// AdmissionLimiter absorbs rapid repeat requests from one applicant before
// they reach the gate. It is a convenience throttle, not a correctness
// mechanism; the in-flight guard carries the serialization guarantee.
type AdmissionLimiter struct {
	store     repository.WindowStore
	perMinute int
}

// NewAdmissionLimiter constructs the limiter; perMinute <= 0 disables it.
func NewAdmissionLimiter(store repository.WindowStore, perMinute int) *AdmissionLimiter {
	if perMinute < 0 {
		perMinute = 0
	}
	return &AdmissionLimiter{store: store, perMinute: perMinute}
}

// Allow returns false plus a retry-after estimate in seconds when the
// applicant exceeded the window budget.
func (l *AdmissionLimiter) Allow(ctx context.Context, applicantID string) (int64, bool, error) {
	if l.perMinute == 0 || l.store == nil {
		return 0, true, nil
	}
	if applicantID == "" {
		return 0, false, fmt.Errorf("empty applicant id")
	}
	count, ttl, err := l.store.IncrementWindow(ctx, "rate:admission:"+applicantID, admissionRateWindow)
	if err != nil {
		return 0, false, err
	}
	if count > int64(l.perMinute) {
		return ceilSeconds(ttl), false, nil
	}
	return 0, true, nil
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 1
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}
