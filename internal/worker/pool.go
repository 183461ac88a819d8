// Package worker provides a bounded goroutine pool for fire-and-forget jobs
// such as audit log writes, keeping them off the request path.
package worker

import "sync"

type Pool struct {
	wg   sync.WaitGroup
	jobs chan func()
}

func NewPool(n int) *Pool {
	if n <= 0 {
		n = 1
	}
	p := &Pool{jobs: make(chan func(), 1024)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

// Submit enqueues f. It blocks when the queue is full rather than dropping
// work.
func (p *Pool) Submit(f func()) { p.jobs <- f }

// Stop drains the queue and waits for in-flight jobs.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
