package stripe

import (
	"sync"
	"testing"
)

func TestLockUnlock(t *testing.T) {
	m := New()

	unlock := m.Lock("key1")
	unlock()

	unlock = m.Lock("")
	unlock()
}

func TestSameKeySerializes(t *testing.T) {
	m := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("same@example.com")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 200 {
		t.Fatalf("counter=%d want 200", counter)
	}
}

func TestIndexIsStable(t *testing.T) {
	m := New()

	first := m.index("alice@example.com")
	for i := 0; i < 10; i++ {
		if got := m.index("alice@example.com"); got != first {
			t.Fatalf("index changed between calls: %d vs %d", got, first)
		}
	}
	if m.index("") != 0 {
		t.Fatal("empty key must map to stripe 0")
	}
}

func TestStripeDistribution(t *testing.T) {
	m := New()

	seen := make(map[int]struct{})
	for i := 0; i < 1000; i++ {
		seen[m.index(string(rune('a'+i%26))+string(rune('0'+i%10))+string(rune(i)))] = struct{}{}
	}
	if len(seen) < Count/4 {
		t.Fatalf("poor stripe distribution: %d distinct stripes", len(seen))
	}
}
