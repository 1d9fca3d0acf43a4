package gpuimage

import "sync"

// taskQueue is a FIFO of work to run on a context goroutine. Any goroutine
// may push; only the owning context drains it.
type taskQueue struct {
	mu    sync.Mutex
	tasks []func(*Frame)
}

func (q *taskQueue) push(task func(*Frame)) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

func (q *taskQueue) pop() func(*Frame) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil
	}
	t := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return t
}

// run drains the queue in order and returns the number of tasks run. Tasks
// pushed while draining run in the same drain.
func (q *taskQueue) run(f *Frame) int {
	n := 0
	for t := q.pop(); t != nil; t = q.pop() {
		t(f)
		n++
	}
	return n
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
