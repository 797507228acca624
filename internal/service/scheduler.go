package service

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Scheduler periodically refreshes the sessions this process still holds and
// closes those nobody has refreshed for maxAge, e.g. rows left behind by a
// process that died without running its disconnect hooks.
type Scheduler struct {
	service   *MessageService
	live      func() []string
	interval  time.Duration
	maxAge    time.Duration
	mu        sync.Mutex
	stopChan  chan struct{}
	done      chan struct{}
	isRunning bool
}

// NewScheduler takes live, which reports the ids of sessions whose sockets are
// still open in this process. It may be nil.
func NewScheduler(service *MessageService, live func() []string, interval, maxAge time.Duration) *Scheduler {
	return &Scheduler{
		service:  service,
		live:     live,
		interval: interval,
		maxAge:   maxAge,
	}
}

func (sch *Scheduler) Start() error {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if sch.isRunning {
		log.Println("Session sweeper is already running.")
		return nil
	}
	ticker := time.NewTicker(sch.interval)
	stop := make(chan struct{})
	done := make(chan struct{})
	sch.stopChan = stop
	sch.done = done
	sch.isRunning = true
	go func() {
		defer close(done)
		defer ticker.Stop()
		log.Println("Session sweeper started.")
		for {
			select {
			case <-stop:
				log.Println("Session sweeper stopped.")
				return
			case <-ticker.C:
				sch.sweep()
			}
		}
	}()
	return nil
}

func (sch *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sch.interval)
	defer cancel()
	var liveIDs []string
	if sch.live != nil {
		liveIDs = sch.live()
	}
	closed, err := sch.service.SweepSessions(ctx, liveIDs, sch.maxAge)
	if err != nil {
		log.Printf("Error closing stale sessions: %v", err)
		return
	}
	if closed > 0 {
		log.Printf("Closed %d stale connection sessions", closed)
	}
}

// Stop signals the sweeper and waits for the current sweep to finish.
func (sch *Scheduler) Stop() error {
	sch.mu.Lock()
	if !sch.isRunning {
		sch.mu.Unlock()
		log.Println("Session sweeper is not running.")
		return nil
	}
	close(sch.stopChan)
	done := sch.done
	sch.isRunning = false
	sch.mu.Unlock()
	<-done
	return nil
}

func (sch *Scheduler) IsRunning() bool {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.isRunning
}
