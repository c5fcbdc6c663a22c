package locks

import (
	"sync"
	"testing"
	"time"
)

func TestAcquireSerializesSameKey(t *testing.T) {
	const workers = 8
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := Acquire("payment:REF-1")
			defer release()
			v := counter
			time.Sleep(time.Millisecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("expected %d increments under the lock, got %d", workers, counter)
	}
}

func TestTryAcquireFailsWhileHeld(t *testing.T) {
	release := Acquire("payment:REF-2")

	if _, ok := TryAcquire("payment:REF-2"); ok {
		t.Fatal("TryAcquire succeeded while the lock was held")
	}

	release()

	r, ok := TryAcquire("payment:REF-2")
	if !ok {
		t.Fatal("TryAcquire failed after release")
	}
	r()
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	releaseA := Acquire("payment:REF-3")
	defer releaseA()

	done := make(chan struct{})
	go func() {
		releaseB := Acquire("payment:REF-4")
		releaseB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestEntriesAreReclaimed(t *testing.T) {
	release := Acquire("payment:REF-5")
	release()

	mu.Lock()
	_, ok := entries["payment:REF-5"]
	mu.Unlock()
	if ok {
		t.Error("expected entry to be removed once no holder remains")
	}
}
