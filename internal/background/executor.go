// Package background runs fire-and-forget side tasks (capture, summary,
// embedding, notes mirroring, citation weight bumps) off the request path,
// per spec §4.10: any of these may fail; they must never fail the parent
// request.
package background

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Executor bounds how many side tasks run concurrently against the
// store/embedding service. Each submitted task still gets its own goroutine;
// tasks beyond the cap wait in those goroutines for a free slot.
type Executor struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// NewExecutor builds an Executor with the given concurrency cap.
func NewExecutor(maxConcurrent int) *Executor {
	if maxConcurrent <= 0 {
		maxConcurrent = 16
	}
	return &Executor{sem: make(chan struct{}, maxConcurrent)}
}

// Submit runs fn in its own goroutine, detached from the caller's context
// lifetime (it receives a fresh background context), logging and
// swallowing panics so one bad task can't take down the process. Submit
// never blocks the caller: the concurrency cap is enforced inside the
// spawned goroutine, so a task is free to Submit further tasks of its own
// (e.g. capture fanning out into summary-check and embedding) without
// risking a deadlock against a saturated pool.
func (e *Executor) Submit(label string, fn func(ctx context.Context)) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.sem <- struct{}{}
		defer func() { <-e.sem }()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("task", label).Interface("panic", r).Msg("background: task panicked")
			}
		}()
		fn(context.Background())
	}()
}

// Wait blocks until every submitted task has returned. Intended for graceful
// shutdown, not the request path.
func (e *Executor) Wait() {
	e.wg.Wait()
}
