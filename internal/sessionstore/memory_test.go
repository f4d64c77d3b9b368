package sessionstore

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type counter struct {
	n int
}

func TestPutGetRemove(t *testing.T) {
	store := NewMemory[*counter]()
	store.Put("a", &counter{n: 1})

	got, ok := store.Get("a")
	if !ok || got.n != 1 {
		t.Fatalf("unexpected value %+v, %v", got, ok)
	}

	store.Put("a", &counter{n: 2})
	if got, _ := store.Get("a"); got.n != 2 {
		t.Fatalf("expected replaced value, got %d", got.n)
	}

	store.Remove("a")
	if _, ok := store.Get("a"); ok {
		t.Fatal("expected value to be removed")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestDoUnknownID(t *testing.T) {
	store := NewMemory[*counter]()
	err := store.Do("missing", func(*counter) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDoSerializesSameID(t *testing.T) {
	store := NewMemory[*counter]()
	store.Put("a", &counter{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Do("a", func(c *counter) error {
				v := c.n
				time.Sleep(time.Microsecond)
				c.n = v + 1
				return nil
			})
		}()
	}
	wg.Wait()

	got, _ := store.Get("a")
	if got.n != 50 {
		t.Fatalf("expected 50 serialized increments, got %d", got.n)
	}
}

func TestDoRunsDistinctIDsInParallel(t *testing.T) {
	store := NewMemory[*counter]()
	store.Put("a", &counter{})
	store.Put("b", &counter{})

	var inside atomic.Int32
	release := make(chan struct{})
	bothInside := make(chan struct{})

	run := func(id string) {
		store.Do(id, func(*counter) error {
			if inside.Add(1) == 2 {
				close(bothInside)
			}
			<-release
			return nil
		})
	}

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			run(id)
		}(id)
	}

	select {
	case <-bothInside:
	case <-time.After(2 * time.Second):
		t.Fatal("distinct sessions were not processed concurrently")
	}
	close(release)
	wg.Wait()
}

func TestPutOnBusyIDDoesNotBlockOtherIDs(t *testing.T) {
	store := NewMemory[*counter]()
	store.Put("a", &counter{})
	store.Put("b", &counter{})

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Do("a", func(*counter) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Put("a", &counter{n: 7})
	}()

	done := make(chan error, 1)
	go func() {
		// Give the Put time to queue behind the running Do.
		time.Sleep(20 * time.Millisecond)
		done <- store.Do("b", func(c *counter) error {
			c.n++
			return nil
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		close(release)
		t.Fatal("work on another session blocked behind a pending replace")
	}

	close(release)
	wg.Wait()

	got, _ := store.Get("a")
	if got.n != 7 {
		t.Fatalf("expected replaced value after Do finished, got %d", got.n)
	}
	if got, _ := store.Get("b"); got.n != 1 {
		t.Fatalf("expected b to be updated once, got %d", got.n)
	}
}

func TestDoPropagatesError(t *testing.T) {
	store := NewMemory[*counter]()
	store.Put("a", &counter{})
	boom := errors.New("boom")
	if err := store.Do("a", func(*counter) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
}
