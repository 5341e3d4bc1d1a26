package composer

import (
	"time"

	"github.com/rs/zerolog/log"
)

// CleanupScheduler periodically discards idle drafts.
type CleanupScheduler struct {
	sessions *Sessions
	idleTTL  time.Duration
	interval time.Duration
	ticker   *time.Ticker
	done     chan struct{}
}

func NewCleanupScheduler(sessions *Sessions, idleTTL, interval time.Duration) *CleanupScheduler {
	if idleTTL <= 0 {
		idleTTL = 2 * time.Hour
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	return &CleanupScheduler{
		sessions: sessions,
		idleTTL:  idleTTL,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (cs *CleanupScheduler) Start() {
	cs.ticker = time.NewTicker(cs.interval)
	log.Info().
		Dur("idleTTL", cs.idleTTL).
		Dur("interval", cs.interval).
		Msg("[DRAFT] Idle draft cleanup started")

	go cs.loop()
}

func (cs *CleanupScheduler) loop() {
	for {
		select {
		case <-cs.ticker.C:
			cs.runCleanup()
		case <-cs.done:
			cs.ticker.Stop()
			return
		}
	}
}

func (cs *CleanupScheduler) runCleanup() int {
	discarded := cs.sessions.SweepIdle(cs.idleTTL)
	if discarded > 0 {
		log.Info().
			Int("discarded", discarded).
			Int("open", cs.sessions.Len()).
			Msg("[DRAFT] Idle drafts discarded")
	}
	return discarded
}

func (cs *CleanupScheduler) Stop() {
	log.Info().Msg("[DRAFT] Stopping idle draft cleanup")
	if cs.ticker != nil {
		close(cs.done)
	}
}

// RunNow sweeps immediately and returns the number of discarded drafts.
func (cs *CleanupScheduler) RunNow() int {
	return cs.runCleanup()
}
