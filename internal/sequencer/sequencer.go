// Package sequencer wires the clock engine, rate controller, trigger
// scheduler and inter-context channel into the running instrument. It owns
// the two execution contexts: a control loop that advances the clock,
// samples the rate input and applies queued commands, and a playback loop
// that drains ticks into the trigger scheduler.
package sequencer

import (
	"context"
	"sync"
	"time"

	"github.com/rdorfner/EurorackSequencer/internal/bus"
	"github.com/rdorfner/EurorackSequencer/internal/clock"
	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/rdorfner/EurorackSequencer/internal/hal"
	"github.com/rdorfner/EurorackSequencer/internal/logger"
	"github.com/rdorfner/EurorackSequencer/internal/rate"
	"github.com/rdorfner/EurorackSequencer/internal/telemetry"
	"github.com/rdorfner/EurorackSequencer/internal/trigger"
)

// maxPollInterval bounds the control loop sleep so external timeout and
// due internal ticks are noticed promptly.
const maxPollInterval = 10 * time.Millisecond

// Config collects the per-component settings plus the loop cadences.
type Config struct {
	Clock   clock.Config
	Rate    rate.Config
	Trigger trigger.Config

	// PollInterval is the control loop cadence, at most 10ms.
	PollInterval time.Duration
	// SampleInterval is how often the rate input is sampled.
	SampleInterval time.Duration
	// StatusInterval is how often a status snapshot is broadcast and
	// recorded. Zero disables periodic status.
	StatusInterval time.Duration
	// QueueCapacity bounds each inter-context queue.
	QueueCapacity int
}

// Hardware bundles the device capabilities the sequencer drives. Clock,
// Pot and Bank are required; Edges and Sink are optional.
type Hardware struct {
	Clock hal.Clock
	Pot   hal.AnalogReader
	Bank  hal.TriggerBank
	Edges hal.EdgeSource
	Sink  hal.FeedbackSink
}

// Status aggregates the state of every component for one observation.
type Status struct {
	Running  bool
	State    clock.Snapshot
	Clock    clock.Status
	Rate     rate.Status
	Triggers trigger.Stats
	Playback bus.Stats
	Control  bus.Stats
}

// Sequencer is the assembled instrument.
type Sequencer struct {
	cfg       Config
	hw        Hardware
	log       logger.Logger
	state     *clock.SharedState
	engine    *clock.Engine
	rate      *rate.Controller
	channel   *bus.Channel
	sched     *trigger.Scheduler
	collector telemetry.Collector

	mu      sync.Mutex
	running bool
	edgesOn bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewSequencer builds the component graph. The shared state starts on the
// internal source at the BPM floor. A nil collector disables telemetry.
func NewSequencer(cfg Config, hw Hardware, collector telemetry.Collector, log logger.Logger) (*Sequencer, error) {
	errFactory := errors.New()

	if hw.Clock == nil {
		return nil, errFactory.WithMessage(ErrNilClock, "Clock is required")
	}
	if hw.Pot == nil {
		return nil, errFactory.WithMessage(ErrNilReader, "Analog reader is required")
	}
	if hw.Bank == nil {
		return nil, errFactory.WithMessage(ErrNilBank, "Trigger bank is required")
	}
	if cfg.PollInterval <= 0 || cfg.PollInterval > maxPollInterval {
		return nil, errFactory.WithData(ErrInvalidPollInterval, cfg.PollInterval)
	}
	if cfg.SampleInterval <= 0 {
		return nil, errFactory.WithData(ErrInvalidSampleInterval, cfg.SampleInterval)
	}
	if cfg.StatusInterval < 0 {
		return nil, errFactory.WithData(ErrInvalidStatusInterval, cfg.StatusInterval)
	}
	if cfg.QueueCapacity < 1 {
		return nil, errFactory.WithData(ErrInvalidQueueCapacity, cfg.QueueCapacity)
	}
	if collector == nil {
		collector = telemetry.Noop()
	}
	if log == nil {
		log = logger.Default()
	}

	state := clock.NewSharedState(cfg.Clock.MinBPM)

	channel, err := bus.NewChannel(cfg.QueueCapacity, log)
	if err != nil {
		return nil, err
	}

	// Ticks are stamped under the shared lock; the bus send is O(1) and
	// never blocks, so holding the lock across it is safe.
	emit := func(t clock.Tick) {
		channel.Send(bus.ToPlayback, bus.ClockUpdate(t))
	}

	engine, err := clock.NewEngine(cfg.Clock, state, emit, log)
	if err != nil {
		return nil, err
	}

	rateCtrl, err := rate.NewController(cfg.Rate, hw.Pot, log)
	if err != nil {
		return nil, err
	}

	sched, err := trigger.NewScheduler(cfg.Trigger, state, hw.Bank, hw.Clock, hw.Sink, log)
	if err != nil {
		return nil, err
	}

	return &Sequencer{
		cfg:       cfg,
		hw:        hw,
		log:       log,
		state:     state,
		engine:    engine,
		rate:      rateCtrl,
		channel:   channel,
		sched:     sched,
		collector: collector,
	}, nil
}

// Start launches both context loops and enables external clock detection
// when an edge source is present. Starting a running sequencer is a no-op.
func (s *Sequencer) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	now := s.hw.Clock.Now()
	s.sched.Start()
	s.engine.Start(now)
	s.EnableExternalClock()

	s.wg.Add(2)
	go s.controlLoop(ctx)
	go s.playbackLoop(ctx)

	s.log.Info().
		Float64("bpm", s.state.BPM()).
		Dur("poll_interval", s.cfg.PollInterval).
		Msg("Sequencer started")
}

// Stop detaches the edge source, stops both loops and shuts the clock
// engine, scheduler and telemetry down. All outputs are low when it
// returns. Stopping a stopped sequencer is a no-op.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	s.DisableExternalClock()
	cancel()
	s.wg.Wait()

	s.engine.Stop()
	s.sched.Stop()

	if err := s.collector.Close(); err != nil {
		s.log.Error().Err(err).Msg("Failed to close telemetry collector")
	}

	s.log.Info().Msg("Sequencer stopped")
}

// SetBPM queues a clock update command; the control loop clamps and
// applies it. While the external source drives the clock the new value
// takes effect on the next fallback to internal.
func (s *Sequencer) SetBPM(bpm float64) {
	s.channel.Send(bus.ToControl, bus.ClockUpdate(clock.Tick{
		Source: clock.SourceInternal,
		BPM:    bpm,
	}))

	s.log.Debug().Float64("bpm", bpm).Msg("BPM command queued")
}

// ForceInternalClock overrides a live external source immediately.
func (s *Sequencer) ForceInternalClock() {
	s.engine.ForceInternal(s.hw.Clock.Now())
}

// EnableExternalClock attaches the rising-edge callback to the edge
// source. A no-op without an edge source or when already attached.
func (s *Sequencer) EnableExternalClock() {
	if s.hw.Edges == nil {
		return
	}

	s.mu.Lock()
	if s.edgesOn {
		s.mu.Unlock()
		return
	}
	s.edgesOn = true
	s.mu.Unlock()

	s.hw.Edges.OnRisingEdge(s.onEdge)
	s.log.Info().Msg("External clock detection enabled")
}

// DisableExternalClock detaches the edge callback and forces the internal
// source so the clock never idles waiting for the timeout.
func (s *Sequencer) DisableExternalClock() {
	if s.hw.Edges == nil {
		return
	}

	s.mu.Lock()
	if !s.edgesOn {
		s.mu.Unlock()
		return
	}
	s.edgesOn = false
	s.mu.Unlock()

	s.hw.Edges.OnRisingEdge(nil)
	s.engine.ForceInternal(s.hw.Clock.Now())
	s.log.Info().Msg("External clock detection disabled")
}

// ScheduleTriggers queues an output mask command for the next tick.
func (s *Sequencer) ScheduleTriggers(mask clock.Mask) {
	s.channel.Send(bus.ToControl, bus.TriggerPattern(mask))
}

// ScheduleTrigger arms or disarms a single output for the next tick.
func (s *Sequencer) ScheduleTrigger(index int, fire bool) error {
	return s.sched.ScheduleTrigger(index, fire)
}

// SetPattern replaces the trigger step sequence.
func (s *Sequencer) SetPattern(steps []clock.Mask) {
	s.sched.SetPattern(steps)
}

// EnablePattern toggles pattern playback.
func (s *Sequencer) EnablePattern(enabled bool) {
	s.sched.EnablePattern(enabled)
}

// ResetTriggerStats zeroes the trigger fire counters.
func (s *Sequencer) ResetTriggerStats() {
	s.sched.ResetStats()
}

// Status reports a consistent observation of every component.
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return Status{
		Running:  running,
		State:    s.state.Snapshot(),
		Clock:    s.engine.Status(),
		Rate:     s.rate.Status(),
		Triggers: s.sched.Stats(),
		Playback: s.channel.Stats(bus.ToPlayback),
		Control:  s.channel.Stats(bus.ToControl),
	}
}

// onEdge runs on the edge source's context: it feeds the engine, then
// announces the detection on the playback queue.
func (s *Sequencer) onEdge(timestamp time.Duration) {
	s.engine.OnExternalEdge(timestamp)

	status := s.engine.Status()
	s.channel.Send(bus.ToPlayback, bus.ExternalClock(status.ExternalFreq, timestamp))
}

// controlLoop is the clock-side context: apply queued commands, advance
// the clock engine, sample the rate input and publish periodic status.
func (s *Sequencer) controlLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	var lastSample, lastStatus time.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.hw.Clock.Now()

			s.channel.DrainAndDispatch(bus.ToControl, s.handleCommand)
			s.engine.Advance(now)

			if now-lastSample >= s.cfg.SampleInterval {
				lastSample = now
				if update, ok := s.rate.Sample(now); ok {
					s.engine.SetBPM(now, update.BPM)
					s.channel.Send(bus.ToPlayback,
						bus.PotentiometerSample(update.Normalized, update.BPM))
				}
			}

			if s.cfg.StatusInterval > 0 && now-lastStatus >= s.cfg.StatusInterval {
				lastStatus = now
				s.publishStatus(ctx)
			}
		}
	}
}

// playbackLoop is the trigger-side context. It wakes on the queue signal
// and falls back to the poll ticker, so tick handling never waits a full
// poll interval under load.
func (s *Sequencer) playbackLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.channel.Wait(bus.ToPlayback):
			s.channel.DrainAndDispatch(bus.ToPlayback, s.handlePlayback)
		case <-ticker.C:
			s.channel.DrainAndDispatch(bus.ToPlayback, s.handlePlayback)
		}
	}
}

func (s *Sequencer) handleCommand(msg bus.Message) {
	switch msg.Kind {
	case bus.KindClockUpdate:
		s.engine.SetBPM(s.hw.Clock.Now(), msg.Tick.BPM)
	case bus.KindTriggerPattern:
		s.sched.ScheduleTriggers(msg.Mask)
	default:
		s.log.Debug().Str("kind", msg.Kind.String()).Msg("Dropping unexpected command")
	}
}

func (s *Sequencer) handlePlayback(msg bus.Message) {
	switch msg.Kind {
	case bus.KindClockUpdate:
		s.sched.OnTick(msg.Tick)
	case bus.KindExternalClock:
		s.log.Debug().
			Float64("freq", msg.Freq).
			Dur("timestamp", msg.Timestamp).
			Msg("External clock event")
	case bus.KindPotentiometerSample:
		s.log.Debug().
			Float64("normalized", msg.Normalized).
			Float64("bpm", msg.BPM).
			Msg("Rate update")
	case bus.KindSystemStatus:
		s.log.Debug().
			Float64("bpm", msg.Status.BPM).
			Str("source", msg.Status.Source.String()).
			Uint64("version", msg.Status.Version).
			Msg("Status broadcast")
	default:
		s.log.Debug().Str("kind", msg.Kind.String()).Msg("Dropping unexpected message")
	}
}

// publishStatus broadcasts a state snapshot on the playback queue and
// records it with the telemetry collector.
func (s *Sequencer) publishStatus(ctx context.Context) {
	snap := s.state.Snapshot()
	s.channel.Send(bus.ToPlayback, bus.SystemStatus(snap))

	stats := s.sched.Stats()
	counts := make([]uint64, len(stats.States))
	for i := range stats.States {
		counts[i] = stats.States[i].Count
	}
	playback := s.channel.Stats(bus.ToPlayback)
	control := s.channel.Stats(bus.ToControl)

	record := &telemetry.Snapshot{
		Timestamp:      time.Now(),
		BPM:            snap.BPM,
		Source:         snap.Source.String(),
		ExternalActive: snap.ExternalActive,
		TickCount:      stats.TickCount,
		TriggerCounts:  counts,
		QueueDepth:     playback.Depth,
		QueueDrops:     playback.Drops + control.Drops,
	}
	if err := s.collector.Record(ctx, record); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record telemetry snapshot")
	}
}
