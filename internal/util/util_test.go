package util

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func(context.Context) error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func(context.Context) error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryPermanent(t *testing.T) {
	sentinel := errors.New("bad symbol")
	attempts := 0

	err := Retry(context.Background(), 5, 0, func(context.Context) error {
		attempts++
		return Permanent(sentinel)
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("Retry error = %v, want %v", err, sentinel)
	}
	if attempts != 1 {
		t.Errorf("Retry called fn %d times, want 1", attempts)
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, 3, time.Hour, func(context.Context) error {
		return errors.New("fail")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry error = %v, want context.Canceled", err)
	}
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, "debug", "json").Debug("hello", "k", 1)
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("json logger output = %q, want JSON object", buf.String())
	}

	buf.Reset()
	NewLoggerTo(&buf, "warn", "text").Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("warn logger wrote info record: %q", buf.String())
	}
}

func TestLastTradingDays(t *testing.T) {
	// Monday 2025-03-10.
	monday := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	prev := PreviousTradingDay(monday)
	if want := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC); !prev.Equal(want) {
		t.Errorf("PreviousTradingDay(Mon) = %v, want %v", prev, want)
	}

	days := LastTradingDays(monday, 3)
	want := []int{7, 6, 5}
	if len(days) != len(want) {
		t.Fatalf("LastTradingDays len = %d, want %d", len(days), len(want))
	}
	for i, d := range days {
		if d.Day() != want[i] {
			t.Errorf("LastTradingDays[%d] = %v, want day %d", i, d, want[i])
		}
	}

	if IsTradingDay(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Error("Sunday reported as trading day")
	}
}
