package chest

import (
	"context"
	"sync"
	"time"

	"rewards_backend/internal/domain"
	"rewards_backend/internal/logger"
)

// Phase - этап анимации сундука
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseLidAnimating  Phase = "lid_animating"
	PhaseOpened        Phase = "opened"
	PhaseCountdownZero Phase = "countdown_zero"
	PhaseSummarizing   Phase = "summarizing"
	PhaseFinished      Phase = "finished"
	PhaseEmpty         Phase = "empty"
)

// Timings
const (
	WarmUp           = 800 * time.Millisecond
	LidFrames        = 5
	LidFrameInterval = 50 * time.Millisecond
	StaggerPerItem   = 250 * time.Millisecond
	persistTimeout   = 10 * time.Second
)

// SummaryDelay is the pause before the completion message and again before
// the reward list.
func SummaryDelay(items int) time.Duration {
	switch {
	case items <= 1:
		return 500 * time.Millisecond
	case items == 2:
		return 700 * time.Millisecond
	default:
		return 900 * time.Millisecond
	}
}

// State is a copy of the sequencer state at one point in time.
type State struct {
	Phase     Phase               `json:"phase"`
	Index     int                 `json:"index"`
	Countdown int                 `json:"countdown"`
	Total     int                 `json:"total"`
	LidFrame  int                 `json:"lid_frame"`
	Burst     int                 `json:"burst"`
	FastSkip  bool                `json:"fast_skip"`
	Animate   bool                `json:"animate"`
	ShowItem  bool                `json:"show_item"`
	ShowMsg   bool                `json:"show_message"`
	ShowList  bool                `json:"show_list"`
	StaggerMS int64               `json:"stagger_ms"`
	CanFinish bool                `json:"can_continue"`
	Rewards   []domain.BundleItem `json:"rewards"`
	Version   uint64              `json:"version"`
}

// Current returns the reward being revealed, if any.
func (s State) Current() (domain.BundleItem, bool) {
	if s.Phase != PhaseOpened && s.Phase != PhaseCountdownZero {
		return domain.BundleItem{}, false
	}
	if s.Index < 0 || s.Index >= len(s.Rewards) {
		return domain.BundleItem{}, false
	}
	return s.Rewards[s.Index], true
}

// PersistFunc stores the bundle once the sequence commits.
type PersistFunc func(ctx context.Context, items []domain.BundleItem) error

type Options struct {
	Clock Clock
	// Persist runs in its own goroutine; failures are logged only.
	Persist PersistFunc
	// OnChange receives every state in order. It must not call back into
	// the Sequencer.
	OnChange func(State)
	// OnFinish runs once after Continue.
	OnFinish func()
}

// Sequencer drives one chest opening from user interactions and timers.
type Sequencer struct {
	opts    Options
	created time.Time

	mu       sync.Mutex
	notifyMu sync.Mutex
	state    State
	timers   []Timer
	epoch    uint64
	closed   bool
	finished bool
}

// New creates a sequencer for a bundle (already sorted by rarity). An empty
// bundle starts in the terminal Empty phase.
func New(bundle []domain.BundleItem, opts Options) *Sequencer {
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	items := domain.SortBundle(bundle)
	s := &Sequencer{
		opts:    opts,
		created: opts.Clock.Now(),
		state: State{
			Phase:     PhaseIdle,
			Total:     len(items),
			Countdown: len(items),
			Animate:   true,
			Rewards:   items,
		},
	}
	if len(items) == 0 {
		s.state.Phase = PhaseEmpty
		s.state.CanFinish = true
	}
	return s
}

func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Sequencer) snapshot() State {
	st := s.state
	st.Rewards = append([]domain.BundleItem(nil), s.state.Rewards...)
	return st
}

// effects collected under mu and run after it is released
type effects struct {
	states  []State
	persist []domain.BundleItem
	finish  bool
}

func (s *Sequencer) emit(fx *effects) {
	s.state.Version++
	fx.states = append(fx.states, s.snapshot())
}

// run releases mu and performs the collected side effects in order.
func (s *Sequencer) run(fx *effects) {
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	if fx.persist != nil && s.opts.Persist != nil {
		items := fx.persist
		persist := s.opts.Persist
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := persist(ctx, items); err != nil {
				logger.Warn("chest rewards not persisted", "items", len(items), "error", err)
			}
		}()
	}
	if s.opts.OnChange != nil {
		for _, st := range fx.states {
			s.opts.OnChange(st)
		}
	}
	if fx.finish && s.opts.OnFinish != nil {
		s.opts.OnFinish()
	}
}

// Interact handles a tap. multi marks a rapid repeated input and turns on
// fast-skip for the rest of the sequence. It reports whether the tap changed
// anything.
func (s *Sequencer) Interact(multi bool) bool {
	s.mu.Lock()
	fx := &effects{}
	accepted := s.interact(multi, fx)
	s.run(fx)
	return accepted
}

func (s *Sequencer) interact(multi bool, fx *effects) bool {
	if s.closed || s.finished {
		return false
	}
	if s.opts.Clock.Now().Sub(s.created) < WarmUp {
		return false
	}

	skipTurnedOn := false
	if multi && !s.state.FastSkip && s.state.Phase != PhaseEmpty {
		s.state.FastSkip = true
		s.state.Animate = false
		skipTurnedOn = true
	}

	switch s.state.Phase {
	case PhaseIdle:
		s.state.Phase = PhaseLidAnimating
		s.state.LidFrame = 0
		s.emit(fx)
		if s.state.FastSkip {
			s.open(fx)
		} else {
			s.scheduleLidFrame()
		}
		return true

	case PhaseLidAnimating:
		if skipTurnedOn {
			s.cancelTimers()
			s.open(fx)
			return true
		}
		return false

	case PhaseOpened:
		if s.state.Index >= s.state.Total-1 {
			return skipTurnedOn
		}
		s.state.Index++
		s.state.Countdown--
		s.state.Burst++
		s.emit(fx)
		s.checkCountdown(fx)
		return true

	case PhaseCountdownZero:
		s.commit(fx)
		return true

	case PhaseSummarizing:
		if s.state.CanFinish {
			if skipTurnedOn {
				s.emit(fx)
			}
			return skipTurnedOn
		}
		s.cancelTimers()
		s.showFullSummary(fx)
		return true
	}
	return false
}

// Continue ends the sequence from the summary or the empty state.
func (s *Sequencer) Continue() bool {
	s.mu.Lock()
	fx := &effects{}
	ok := false
	if !s.closed && !s.finished && s.state.CanFinish &&
		(s.state.Phase == PhaseSummarizing || s.state.Phase == PhaseEmpty) {
		s.cancelTimers()
		s.finished = true
		s.state.Phase = PhaseFinished
		s.state.CanFinish = false
		s.emit(fx)
		fx.finish = true
		ok = true
	}
	s.run(fx)
	return ok
}

// Close stops every pending timer. Late timer callbacks are ignored.
func (s *Sequencer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cancelTimers()
}

func (s *Sequencer) open(fx *effects) {
	s.state.Phase = PhaseOpened
	s.state.LidFrame = LidFrames - 1
	s.state.Index = 0
	s.state.Countdown = s.state.Total - 1
	s.state.Burst++
	s.state.ShowItem = true
	s.emit(fx)
	s.checkCountdown(fx)
}

func (s *Sequencer) checkCountdown(fx *effects) {
	if s.state.Countdown <= 0 {
		s.state.Countdown = 0
		s.state.Phase = PhaseCountdownZero
		s.emit(fx)
	}
}

func (s *Sequencer) commit(fx *effects) {
	fx.persist = append([]domain.BundleItem(nil), s.state.Rewards...)
	s.state.Phase = PhaseSummarizing
	s.state.ShowItem = false
	s.emit(fx)

	if s.state.FastSkip {
		s.showFullSummary(fx)
		return
	}
	delay := SummaryDelay(s.state.Total)
	s.schedule(delay, func(fx *effects) {
		s.state.ShowMsg = true
		s.emit(fx)
		s.schedule(delay, func(fx *effects) {
			s.state.ShowList = true
			s.state.StaggerMS = StaggerPerItem.Milliseconds()
			s.emit(fx)
			s.schedule(time.Duration(s.state.Total)*StaggerPerItem, func(fx *effects) {
				s.state.CanFinish = true
				s.emit(fx)
			})
		})
	})
}

func (s *Sequencer) showFullSummary(fx *effects) {
	s.state.ShowMsg = true
	s.state.ShowList = true
	s.state.StaggerMS = 0
	s.state.Animate = false
	s.state.CanFinish = true
	s.emit(fx)
}

func (s *Sequencer) scheduleLidFrame() {
	s.schedule(LidFrameInterval, func(fx *effects) {
		if s.state.LidFrame+1 >= LidFrames {
			s.open(fx)
			return
		}
		s.state.LidFrame++
		s.emit(fx)
		s.scheduleLidFrame()
	})
}

// schedule registers f to run after d under mu. Must be called with mu held.
func (s *Sequencer) schedule(d time.Duration, f func(fx *effects)) {
	epoch := s.epoch
	t := s.opts.Clock.AfterFunc(d, func() {
		s.mu.Lock()
		if s.closed || s.epoch != epoch {
			s.mu.Unlock()
			return
		}
		fx := &effects{}
		f(fx)
		s.run(fx)
	})
	s.timers = append(s.timers, t)
}

func (s *Sequencer) cancelTimers() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.epoch++
}
