// Package feed paces a track's payload out to listeners in fixed interval
// chunks, the way a radio transmitter would.
package feed

import (
	"time"

	"Playa/core/loop"
	"Playa/logger"
	"Playa/model"

	"github.com/dustin/go-humanize"
)

// State is the scheduler's playback state.
type State int

const (
	StateIdle State = iota
	StateFeeding
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateFeeding:
		return "feeding"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Config tunes the pacing.
type Config struct {
	TickInterval  time.Duration
	HistoryChunks int
}

// Callbacks are invoked on the event loop.
type Callbacks struct {
	OnPush          func(chunk []byte)
	OnTimerUpdate   func(progress float64)
	OnTrackFinished func()
	OnStop          func()
}

// Scheduler must only be used from tasks running on its executor.
type Scheduler struct {
	exec loop.Executor
	cfg  Config
	cb   Callbacks

	buffer  [][]byte
	history [][]byte

	playing bool
	paused  bool

	total    int
	consumed int

	timer      loop.Timer
	generation uint64
}

// NewScheduler returns an idle scheduler.
func NewScheduler(exec loop.Executor, cfg Config) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.HistoryChunks < 1 {
		cfg.HistoryChunks = 1
	}
	return &Scheduler{exec: exec, cfg: cfg}
}

func (s *Scheduler) SetCallbacks(cb Callbacks) {
	s.cb = cb
}

// Prepare chunks track with the scheduler's tick interval. Safe off the loop.
func (s *Scheduler) Prepare(track *model.Track) ([][]byte, error) {
	return Prepare(track, s.cfg.TickInterval)
}

// Feed prepares track and queues its chunks. It reads the payload on the
// calling goroutine; the controller prepares off-loop and calls Extend.
func (s *Scheduler) Feed(track *model.Track, clear bool) error {
	chunks, err := s.Prepare(track)
	if err != nil {
		return err
	}
	s.Extend(chunks, clear)
	return nil
}

// Extend queues chunks, dropping unplayed ones first when clear is set, and
// resets progress to the new track.
func (s *Scheduler) Extend(chunks [][]byte, clear bool) {
	if clear {
		s.buffer = nil
	}
	s.buffer = append(s.buffer, chunks...)

	s.total = 0
	for _, c := range chunks {
		s.total += len(c)
	}
	s.consumed = 0

	logger.Debug("feed extended",
		logger.Int("chunks", len(chunks)),
		logger.String("size", humanize.Bytes(uint64(s.total))),
		logger.Bool("clear", clear))
}

// Start begins ticking. It is a no-op with nothing queued or while already
// playing. A paused scheduler stays paused and ticks once resumed.
func (s *Scheduler) Start() {
	if len(s.buffer) == 0 {
		return
	}
	if s.playing {
		return
	}
	s.playing = true
	if s.paused {
		return
	}
	s.restart()
}

// restart cancels any pending tick and begins a new tick chain.
func (s *Scheduler) restart() {
	s.cancel()
	s.play(s.generation)
}

func (s *Scheduler) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

func (s *Scheduler) play(generation uint64) {
	if generation != s.generation {
		return
	}
	s.timer = nil
	if !s.playing || s.paused {
		return
	}

	if len(s.buffer) == 0 {
		s.playing = false
		if s.cb.OnTrackFinished != nil {
			s.cb.OnTrackFinished()
		}
		return
	}

	chunk := s.buffer[0]
	s.buffer[0] = nil
	s.buffer = s.buffer[1:]

	s.history = append(s.history, chunk)
	if len(s.history) > s.cfg.HistoryChunks {
		s.history = s.history[len(s.history)-s.cfg.HistoryChunks:]
	}
	s.consumed += len(chunk)

	s.timer = s.exec.AfterFunc(s.cfg.TickInterval, func() { s.play(generation) })

	if s.cb.OnPush != nil {
		s.cb.OnPush(chunk)
	}
	if s.cb.OnTimerUpdate != nil {
		s.cb.OnTimerUpdate(s.Progress())
	}
}

// Pause holds the current position.
func (s *Scheduler) Pause() {
	if s.paused {
		return
	}
	s.paused = true
	s.cancel()
	logger.Debug("feed paused", logger.Float64("progress", s.Progress()))
}

// Resume continues ticking immediately if a track is in progress.
func (s *Scheduler) Resume() {
	if !s.paused {
		return
	}
	s.paused = false
	if s.playing {
		s.restart()
	}
}

// TogglePause flips the pause state and returns the new one.
func (s *Scheduler) TogglePause() bool {
	if s.paused {
		s.Resume()
	} else {
		s.Pause()
	}
	return s.paused
}

// Stop drops queued chunks and history and returns to idle.
func (s *Scheduler) Stop() {
	s.cancel()
	s.buffer = nil
	s.history = nil
	s.playing = false
	s.paused = false
	s.total = 0
	s.consumed = 0

	if s.cb.OnStop != nil {
		s.cb.OnStop()
	}
}

// ClearHistory forgets the chunks kept for late joiners.
func (s *Scheduler) ClearHistory() {
	s.history = nil
}

// History returns the most recent chunks, oldest first.
func (s *Scheduler) History() [][]byte {
	history := make([][]byte, len(s.history))
	copy(history, s.history)
	return history
}

// Progress is the share of the current track already pushed, in percent.
func (s *Scheduler) Progress() float64 {
	if s.total == 0 {
		return 0
	}
	p := float64(s.consumed) / float64(s.total) * 100
	return min(max(p, 0), 100)
}

func (s *Scheduler) State() State {
	switch {
	case s.playing && s.paused:
		return StatePaused
	case s.playing:
		return StatePlaying
	case len(s.buffer) > 0:
		return StateFeeding
	default:
		return StateIdle
	}
}

func (s *Scheduler) Paused() bool {
	return s.paused
}

// Queued is the number of chunks not yet pushed.
func (s *Scheduler) Queued() int {
	return len(s.buffer)
}
