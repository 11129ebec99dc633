package application

import (
	"sync"
	"testing"
)

func TestSessionLocks(t *testing.T) {
	t.Parallel()

	locks := newSessionLocks()
	counter := 0

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("s1")
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50 increments, got %d", counter)
	}
	if locks.size() != 0 {
		t.Fatalf("expected idle locks to be released, got %d", locks.size())
	}

	unlockA := locks.lock("a")
	unlockB := locks.lock("b")
	if locks.size() != 2 {
		t.Fatalf("expected independent locks per id, got %d", locks.size())
	}
	unlockA()
	unlockB()
}
