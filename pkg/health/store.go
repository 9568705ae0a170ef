package health

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cuemby/karatekonnect/pkg/storage"
)

// CheckKey is written and removed by StoreChecker
const CheckKey = "karatekonnect_health_check"

// StoreChecker checks that the local store accepts a write and reads it back
type StoreChecker struct {
	kv storage.Store
}

// NewStoreChecker creates a checker over kv
func NewStoreChecker(kv storage.Store) *StoreChecker {
	return &StoreChecker{kv: kv}
}

// Name returns "store"
func (s *StoreChecker) Name() string {
	return "store"
}

// Check round-trips a marker value through the store
func (s *StoreChecker) Check(ctx context.Context) Result {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return unhealthy(start, err.Error())
	}

	want := strconv.FormatInt(start.UnixNano(), 10)
	if err := s.kv.Set(CheckKey, want); err != nil {
		return unhealthy(start, fmt.Sprintf("write failed: %v", err))
	}
	got, err := s.kv.Get(CheckKey)
	if err != nil {
		return unhealthy(start, fmt.Sprintf("read failed: %v", err))
	}
	if err := s.kv.Remove(CheckKey); err != nil {
		return unhealthy(start, fmt.Sprintf("remove failed: %v", err))
	}
	if got != want {
		return unhealthy(start, fmt.Sprintf("read back %q, wrote %q", got, want))
	}

	return Result{
		Healthy:   true,
		Message:   "read/write ok",
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}
