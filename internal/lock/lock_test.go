package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/lock"
)

func TestMemoryLocker_Exclusive(t *testing.T) {
	l := lock.NewMemoryLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "k")
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			mu.Lock()
			holders++
			if holders > maxSeen {
				maxSeen = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("saw %d concurrent holders, want 1", maxSeen)
	}
}

func TestMemoryLocker_IndependentKeys(t *testing.T) {
	l := lock.NewMemoryLocker()
	ctx := context.Background()
	r1, err := l.Acquire(ctx, "a")
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer r1()

	ctx2, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	r2, err := l.Acquire(ctx2, "b")
	if err != nil {
		t.Fatalf("acquire b while a held: %v", err)
	}
	r2()
}

func TestMemoryLocker_ContextCancel(t *testing.T) {
	l := lock.NewMemoryLocker()
	release, err := l.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, "k"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	release()
	release() // second call is a no-op
	again, err := l.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	again()
}
