package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutexSerializesPerKey(t *testing.T) {
	km := newKeyedMutex()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := km.Lock(context.Background(), "session:A")
			if err != nil {
				t.Errorf("lock: %v", err)
				return
			}
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxSeen)
	}
	if km.size() != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", km.size())
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := newKeyedMutex()
	unlockA, err := km.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock a: %v", err)
	}
	done := make(chan struct{})
	go func() {
		unlockB, err := km.Lock(context.Background(), "b")
		if err == nil {
			unlockB()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
	unlockA()
}

func TestKeyedMutexWaitGivesUpWithContext(t *testing.T) {
	km := newKeyedMutex()
	unlock, err := km.Lock(context.Background(), "busy")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	started := time.Now()
	if _, err := km.Lock(ctx, "busy"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if waited := time.Since(started); waited > time.Second {
		t.Fatalf("waiter outlived its context: %v", waited)
	}

	unlock()
	if km.size() != 0 {
		t.Fatalf("abandoned waiter left %d entries", km.size())
	}
	again, err := km.Lock(context.Background(), "busy")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}
