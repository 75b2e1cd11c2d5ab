package performance

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPool(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Start()

	var counter int64
	var submitted int64
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		ok := pool.Submit(func() {
			atomic.AddInt64(&counter, 1)
			wg.Done()
		})
		if ok {
			submitted++
		} else {
			wg.Done()
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for tasks to complete")
	}

	pool.Stop()

	if counter != submitted {
		t.Errorf("expected %d tasks to run, got %d", submitted, counter)
	}
	if submitted == 0 {
		t.Error("no tasks were accepted")
	}
}

func TestWorkerPoolLifecycle(t *testing.T) {
	pool := NewWorkerPool(2)

	if pool.Submit(func() {}) {
		t.Error("submit must fail before Start")
	}

	pool.Start()
	if stats := pool.Stats(); !stats.Running || stats.Workers != 2 {
		t.Errorf("unexpected stats after start: %+v", stats)
	}

	pool.Stop()
	if stats := pool.Stats(); stats.Running {
		t.Error("pool still reports running after Stop")
	}
	if pool.Submit(func() {}) {
		t.Error("submit must fail after Stop")
	}
}

func TestMapKeepsInputOrder(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Start()
	defer pool.Stop()

	got := Map(pool, 50, func(i int) int { return i * i })

	if len(got) != 50 {
		t.Fatalf("expected 50 results, got %d", len(got))
	}
	for i, v := range got {
		if v != i*i {
			t.Fatalf("result %d out of order: got %d, want %d", i, v, i*i)
		}
	}
}

func TestMapRunsInlineWithoutPool(t *testing.T) {
	pool := NewWorkerPool(2) // never started

	got := Map(pool, 5, func(i int) int { return i + 1 })

	want := []int{1, 2, 3, 4, 5}
	for i, v := range got {
		if v != want[i] {
			t.Fatalf("inline fallback gave %v", got)
		}
	}
}

func TestMapEmpty(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Stop()

	if got := Map(pool, 0, func(i int) int { return i }); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
}

func BenchmarkWorkerPool(b *testing.B) {
	pool := NewWorkerPool(4)
	pool.Start()
	defer pool.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var wg sync.WaitGroup
		wg.Add(1)
		if !pool.Submit(func() { wg.Done() }) {
			wg.Done()
		}
		wg.Wait()
	}
}

func BenchmarkMap(b *testing.B) {
	pool := NewWorkerPool(8)
	pool.Start()
	defer pool.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Map(pool, 16, func(j int) int { return j * j })
	}
}
