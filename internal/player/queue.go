package player

import "sync"

// queue serializes all controller state mutation onto one goroutine,
// standing in for the main-thread affinity of an interactive UI. Do blocks
// until the task has run; async tasks are used to marshal background
// completions (asset loads, ticker fires) back onto the queue.
type queue struct {
	tasks chan func()
	stop  chan struct{}
	wg    sync.WaitGroup
}

func newQueue() *queue {
	q := &queue{
		tasks: make(chan func(), 64),
		stop:  make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *queue) run() {
	defer q.wg.Done()
	for {
		select {
		case task := <-q.tasks:
			task()
		case <-q.stop:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case task := <-q.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

// do runs f on the queue and waits for it to complete.
func (q *queue) do(f func()) {
	done := make(chan struct{})
	select {
	case q.tasks <- func() {
		f()
		close(done)
	}:
		<-done
	case <-q.stop:
	}
}

// async schedules f on the queue without waiting. Used by background
// completions; dropped if the queue has shut down.
func (q *queue) async(f func()) {
	select {
	case q.tasks <- f:
	case <-q.stop:
	}
}

func (q *queue) close() {
	close(q.stop)
	q.wg.Wait()
}
