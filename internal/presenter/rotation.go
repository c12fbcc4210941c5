// Package presenter drives which of the three presenter screens is on display.
package presenter

import (
	"fmt"
	"log"
	"sync"
	"time"

	"event-feedback-service/internal/domain"
	"github.com/robfig/cron/v3"
)

var order = []domain.PresenterView{domain.ViewLive, domain.ViewAnalysis, domain.ViewInsights}

// Rotation is a cyclic live -> analysis -> insights selector. It has no terminal state.
type Rotation struct {
	mu       sync.Mutex
	index    int
	onChange func(domain.PresenterView)
}

func NewRotation() *Rotation {
	return &Rotation{}
}

// OnChange registers a callback invoked after every transition, outside the lock.
func (r *Rotation) OnChange(fn func(domain.PresenterView)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Rotation) Current() domain.PresenterView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return order[r.index]
}

// Next advances one view, wrapping from insights to live.
func (r *Rotation) Next() domain.PresenterView {
	return r.move(1)
}

// Prev steps back one view, wrapping from live to insights.
func (r *Rotation) Prev() domain.PresenterView {
	return r.move(len(order) - 1)
}

// Select jumps straight to view.
func (r *Rotation) Select(view domain.PresenterView) error {
	for i, v := range order {
		if v == view {
			r.set(i)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", domain.ErrInvalidView, view)
}

// Navigate applies a named transition: next, prev, or a view name.
func (r *Rotation) Navigate(action string) (domain.PresenterView, error) {
	switch action {
	case "next":
		return r.Next(), nil
	case "prev":
		return r.Prev(), nil
	}
	if err := r.Select(domain.PresenterView(action)); err != nil {
		return r.Current(), err
	}
	return r.Current(), nil
}

func (r *Rotation) move(step int) domain.PresenterView {
	r.mu.Lock()
	r.index = (r.index + step) % len(order)
	view, fn := order[r.index], r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn(view)
	}
	return view
}

func (r *Rotation) set(i int) {
	r.mu.Lock()
	r.index = i
	view, fn := order[r.index], r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn(view)
	}
}

// AutoRotator fires Next on a fixed schedule. Manual transitions do not reset it.
type AutoRotator struct {
	rotation *Rotation
	interval time.Duration

	mu   sync.Mutex
	cron *cron.Cron
}

// NewAutoRotator schedules rotation every interval (cron resolution is one second).
func NewAutoRotator(rotation *Rotation, interval time.Duration) *AutoRotator {
	return &AutoRotator{rotation: rotation, interval: interval}
}

// Start begins auto-advancing; calling it twice is a no-op.
func (a *AutoRotator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cron != nil || a.interval <= 0 {
		return
	}
	c := cron.New()
	c.Schedule(cron.Every(a.interval), cron.FuncJob(func() {
		a.rotation.Next()
	}))
	c.Start()
	a.cron = c
	log.Printf("presenter auto-rotate started interval=%s", a.interval)
}

// Stop halts auto-advancing and waits for a running tick to finish.
func (a *AutoRotator) Stop() {
	a.mu.Lock()
	c := a.cron
	a.cron = nil
	a.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// Running reports whether the schedule is active.
func (a *AutoRotator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cron != nil
}
