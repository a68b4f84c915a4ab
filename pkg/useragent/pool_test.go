package useragent

import (
	"strings"
	"sync"
	"testing"
)

func TestPool_GetSequential(t *testing.T) {
	p := NewPool([]string{"A", "B", "C"})

	for i, want := range []string{"A", "B", "C", "A"} {
		if got := p.GetSequential(); got != want {
			t.Errorf("call %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestPool_Default(t *testing.T) {
	p := NewPool(nil)
	if p.Len() != len(DefaultPool) {
		t.Errorf("expected pool length %d, got %d", len(DefaultPool), p.Len())
	}
	if got := p.Next(); got != Chrome {
		t.Errorf("expected %s, got %s", Chrome, got)
	}
	for _, ua := range p.GetAll() {
		if !strings.HasPrefix(ua, "Mozilla/5.0 (") {
			t.Errorf("default agent does not look like a browser: %s", ua)
		}
	}
}

func TestPool_RandomStrategy(t *testing.T) {
	p := NewPoolWithStrategy([]string{"A", "B"}, Random)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		got := p.Next()
		if got != "A" && got != "B" {
			t.Fatalf("unexpected UA: %s", got)
		}
		seen[got] = true
	}

	if !seen["A"] || !seen["B"] {
		t.Errorf("expected to see both A and B randomly, seen: %v", seen)
	}
}

func TestPool_GetAllIsCopy(t *testing.T) {
	src := []string{"A"}
	p := NewPool(src)
	src[0] = "mutated"

	all := p.GetAll()
	all[0] = "changed"
	if got := p.GetSequential(); got != "A" {
		t.Errorf("pool should not share backing storage, got %s", got)
	}
}

func TestPool_Concurrent(t *testing.T) {
	p := NewPool([]string{"X", "Y", "Z"})

	var wg sync.WaitGroup
	const routines = 50
	const iterations = 300

	var mu sync.Mutex
	counts := map[string]int{}

	for i := 0; i < routines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := map[string]int{}
			for j := 0; j < iterations; j++ {
				local[p.GetSequential()]++
			}
			mu.Lock()
			for k, v := range local {
				counts[k] += v
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	want := routines * iterations / 3
	for _, ua := range []string{"X", "Y", "Z"} {
		if counts[ua] != want {
			t.Errorf("expected %s handed out %d times, got %d", ua, want, counts[ua])
		}
	}
}
