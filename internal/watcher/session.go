package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blackwell-systems/camwatch/internal/config"
	"github.com/blackwell-systems/camwatch/internal/emitter"
	"github.com/blackwell-systems/camwatch/internal/notify"
	"github.com/blackwell-systems/camwatch/internal/occupancy"
	"github.com/blackwell-systems/camwatch/internal/signals"
	"github.com/blackwell-systems/camwatch/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// subscriberBuffer is the bus buffer given to each session subscriber.
const subscriberBuffer = 64

// Options configures a Session.
type Options struct {
	Config  *config.Config
	Store   *store.Store
	Aliases *config.AliasConfig

	// Registry resolves display names; nil builds a DesktopRegistry.
	Registry emitter.Registry
	// Notifier receives every payload's notification; nil disables it.
	Notifier notify.Notifier
	// OnPayload, when set, is called for every payload (console output).
	OnPayload func(emitter.Payload)
	// Sources overrides the signal sources built from Config.
	Sources []signals.Source

	Clock  func() time.Time
	Logger zerolog.Logger
}

// Session is one monitoring run: an engine, its emitter and bus, the bus
// subscribers and the signal sources feeding the engine.
type Session struct {
	ID string

	cfg      *config.Config
	store    *store.Store
	engine   *occupancy.Engine
	bus      *emitter.Bus
	notifier notify.Notifier
	onPay    func(emitter.Payload)
	sources  []signals.Source
	log      zerolog.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// New wires a session. Nothing runs until Start.
func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	cfg := opts.Config

	id := uuid.NewString()
	log := opts.Logger.With().Str("session", id).Logger()

	aliases := opts.Aliases
	if aliases == nil {
		aliases = &config.AliasConfig{Aliases: map[string]string{}}
	}

	reg := opts.Registry
	if reg == nil {
		dr := emitter.NewDesktopRegistry(emitter.DefaultApplicationDirs(), aliases.Aliases)
		if err := dr.Refresh(); err != nil {
			log.Warn().Err(err).Msg("application registry incomplete")
		}
		reg = dr
	}

	bus := emitter.NewBus(log)
	em := emitter.New(reg, bus, id, log)

	engine, err := occupancy.New(occupancy.Options{
		SelfPackage:       cfg.SelfPackage,
		DebounceWindow:    cfg.DebounceWindow,
		PerDeviceDebounce: cfg.PerDeviceDebounce,
		Lookback:          cfg.LookbackWindow,
		QueryTimeout:      cfg.QueryTimeout,
		Foreground:        opts.Store,
		Sink:              em,
		Clock:             opts.Clock,
		Logger:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	s := &Session{
		ID:       id,
		cfg:      cfg,
		store:    opts.Store,
		engine:   engine,
		bus:      bus,
		notifier: opts.Notifier,
		onPay:    opts.OnPayload,
		sources:  opts.Sources,
		log:      log,
		done:     make(chan struct{}),
	}
	if s.sources == nil {
		s.sources = DefaultSources(cfg, opts.Store, aliases, log)
	}
	return s, nil
}

// DefaultSources builds the signal sources enabled in cfg. Sources that
// cannot be constructed on this host are logged and left out.
func DefaultSources(cfg *config.Config, st *store.Store, aliases *config.AliasConfig, log zerolog.Logger) []signals.Source {
	var sources []signals.Source

	dw, err := signals.NewDeviceWatcher(signals.DeviceWatcherOptions{
		Glob:         cfg.Devices.Glob,
		PollInterval: cfg.Devices.PollInterval,
		Alias:        aliases.Resolve,
		Logger:       log,
	})
	if err != nil {
		log.Warn().Err(err).Msg("device watcher unavailable")
	} else {
		sources = append(sources, dw)
	}

	sources = append(sources, signals.NewOpsLog(cfg.OpsLog, aliases.Resolve, log))

	if cfg.Focus.Enabled {
		fs, err := signals.NewFocusSampler(signals.FocusSamplerOptions{
			Command:   cfg.Focus.Command,
			Interval:  cfg.Focus.Interval,
			Retention: cfg.Focus.Retention,
			Alias:     aliases.Resolve,
			Recorder:  st,
			Logger:    log,
		})
		if err != nil {
			log.Warn().Err(err).Msg("focus sampler unavailable")
		} else {
			sources = append(sources, fs)
		}
	}

	if cfg.Unlock.Enabled {
		sources = append(sources, signals.NewUnlockListener(log))
	}

	return sources
}

// Start launches subscribers and sources. They run until Stop is called,
// ctx is cancelled, or a source fails with an error other than
// signals.ErrUnavailable.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("session already started")
	}
	s.started = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	// Subscribers attach before any source can emit.
	var subs errgroup.Group
	events, _ := s.bus.Subscribe("recorder", subscriberBuffer)
	subs.Go(func() error {
		s.record(events)
		return nil
	})
	if s.notifier != nil {
		notes, _ := s.bus.Subscribe("notifier", subscriberBuffer)
		subs.Go(func() error {
			notify.Forward(context.Background(), notes, s.notifier, s.cfg.QueryTimeout, s.log)
			return nil
		})
	}
	if s.onPay != nil {
		console, _ := s.bus.Subscribe("console", subscriberBuffer)
		subs.Go(func() error {
			for p := range console {
				s.onPay(p)
			}
			return nil
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			s.log.Debug().Str("source", src.Name()).Msg("signal source starting")
			err := src.Run(gctx, s.engine)
			switch {
			case err == nil:
				return nil
			case errors.Is(err, signals.ErrUnavailable):
				s.log.Warn().Err(err).Str("source", src.Name()).Msg("signal source unavailable, continuing without it")
				return nil
			default:
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
		})
	}

	go func() {
		err := g.Wait()
		s.bus.Close()
		_ = subs.Wait()
		if s.notifier != nil {
			if cerr := s.notifier.Close(); cerr != nil {
				s.log.Debug().Err(cerr).Msg("close notifier")
			}
		}
		if dropped := s.bus.Dropped(); dropped > 0 {
			s.log.Warn().Uint64("dropped", dropped).Msg("payloads dropped by slow subscribers")
		}
		s.err = err
		close(s.done)
	}()

	s.log.Info().Int("sources", len(s.sources)).Msg("session started")
	return nil
}

// record persists payloads and keeps the event log bounded.
func (s *Session) record(events <-chan emitter.Payload) {
	for p := range events {
		ev := &store.OccupancyEvent{
			SessionID:   p.SessionID,
			Timestamp:   p.Timestamp,
			DeviceID:    p.DeviceID,
			DeviceLabel: p.DeviceLabel,
			InUse:       p.InUse,
			Status:      p.Status,
			Package:     p.Package,
			DisplayName: p.DisplayName,
			SourceDir:   p.SourceDir,
			Source:      string(p.Source),
			Reason:      string(p.Reason),
		}
		if err := s.store.InsertEvent(ev); err != nil {
			s.log.Warn().Err(err).Msg("record event")
			continue
		}
		if _, err := s.store.TrimEvents(s.cfg.LogSize); err != nil {
			s.log.Warn().Err(err).Msg("trim event log")
		}
	}
}

// Stop cancels the session and waits for it to finish.
func (s *Session) Stop() error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	s.mu.Unlock()

	if !started {
		return nil
	}
	cancel()
	return s.Wait()
}

// Wait blocks until the session has finished and returns the first fatal
// source error.
func (s *Session) Wait() error {
	<-s.done
	return s.err
}

// Done is closed when the session has finished.
func (s *Session) Done() <-chan struct{} { return s.done }
