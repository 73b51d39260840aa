package keymutex

import (
	"sync"
	"testing"
)

func TestLockSerializesSameKey(t *testing.T) {
	km := New()
	const goroutines = 50

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("order-1")
			defer km.Unlock("order-1")
			counter++
		}()
	}
	wg.Wait()

	if counter != goroutines {
		t.Errorf("expected counter %d, got %d", goroutines, counter)
	}
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	km := New()
	km.Lock("a")
	defer km.Unlock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()

	<-done // повиснет и упадет по таймауту теста, если ключи делят один замок
}

func TestEntryIsReleased(t *testing.T) {
	km := New()
	km.Lock("a")
	km.Unlock("a")

	km.mu.Lock()
	defer km.mu.Unlock()
	if len(km.locks) != 0 {
		t.Errorf("expected lock table to be empty, got %d entries", len(km.locks))
	}
}
