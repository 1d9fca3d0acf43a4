package gpuimage

import (
	"sync"
	"testing"
)

func TestTaskQueueFIFO(t *testing.T) {
	var q taskQueue
	var got []int
	for i := range 5 {
		q.push(func(*Frame) { got = append(got, i) })
	}
	if q.len() != 5 {
		t.Fatalf("len = %d, want 5", q.len())
	}
	q.run(nil)
	for i, v := range got {
		if v != i {
			t.Fatalf("order = %v, want 0..4", got)
		}
	}
	if q.len() != 0 {
		t.Errorf("len after run = %d, want 0", q.len())
	}
}

func TestTaskQueueRunsTasksPushedDuringDrain(t *testing.T) {
	var q taskQueue
	var got []string
	q.push(func(*Frame) {
		got = append(got, "a")
		q.push(func(*Frame) { got = append(got, "c") })
	})
	q.push(func(*Frame) { got = append(got, "b") })
	if n := q.run(nil); n != 3 {
		t.Errorf("run = %d, want 3", n)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("got %v, want [a b c]", got)
	}
}

func TestTaskQueueConcurrentPush(t *testing.T) {
	var q taskQueue
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				q.push(func(*Frame) {})
			}
		}()
	}
	wg.Wait()
	if q.len() != 800 {
		t.Errorf("len = %d, want 800", q.len())
	}
}
