package player

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"emperror.dev/errors"
	"github.com/rs/zerolog"

	"github.com/dewi-tim/vidtui/internal/log"
)

const (
	// Default timing settings
	DefaultTickInterval    = 100 * time.Millisecond
	DefaultBusPollInterval = 100 * time.Millisecond

	// Playback rate bounds (magnitude)
	MinRate = 0.1
	MaxRate = 8.0
)

// Player is the high-level interface for video playback.
type Player interface {
	// Play starts or resumes playback.
	Play() error
	// Pause pauses playback.
	Pause() error
	// Stop stops playback and releases the stream; Play starts over.
	Stop() error
	// Toggle toggles between play and pause.
	Toggle() error

	// Seek seeks to a position in the stream.
	Seek(pos time.Duration) error
	// SeekRelative seeks relative to current position.
	SeekRelative(delta time.Duration) error

	// ChangeSpeed sets the playback rate as a percentage (100 = normal).
	ChangeSpeed(percent int) error
	// SetSpeed sets the playback rate (1.0 = normal, negative = reverse).
	SetSpeed(rate float64) error
	// Speed returns the current playback rate.
	Speed() float64

	// Duration returns the stream duration in seconds, 0 if unknown.
	Duration() float64
	// Position returns the stream position in seconds, 0 if unknown.
	Position() float64

	// Media returns metadata about the opened file.
	Media() *Media
	// Info returns current playback information.
	Info() PlaybackInfo
	// State returns the current playback state.
	State() PlayState
	// WindowID returns the window surface the video renders into.
	WindowID() uintptr

	// Subscribe returns a channel that receives playback info updates.
	Subscribe() <-chan PlaybackInfo
	// Unsubscribe removes a subscription channel.
	Unsubscribe(ch <-chan PlaybackInfo)

	// Close releases all resources.
	Close() error
}

// Option configures a VideoPlayer.
type Option func(*VideoPlayer)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *VideoPlayer) {
		p.logger = logger
	}
}

// WithMedia attaches metadata probed ahead of time.
func WithMedia(media *Media) Option {
	return func(p *VideoPlayer) {
		if media != nil {
			p.media = media
		}
	}
}

// WithTickInterval sets how often subscribers are updated during playback.
func WithTickInterval(d time.Duration) Option {
	return func(p *VideoPlayer) {
		if d > 0 {
			p.tickInterval = d
		}
	}
}

// WithBusPollInterval sets how long each bus poll waits for a message.
func WithBusPollInterval(d time.Duration) Option {
	return func(p *VideoPlayer) {
		if d > 0 {
			p.busPollInterval = d
		}
	}
}

// VideoPlayer implements Player over a Graph opened by a Backend.
type VideoPlayer struct {
	// Atomic state for lock-free access
	playingAtomic  uint32 // 1 = playing or paused, 0 = stopped
	pausedAtomic   uint32 // 1 = paused, 0 = not
	finishedAtomic uint32 // 1 = end of stream reached

	// Mutex for state transitions and config changes
	mu sync.Mutex

	// Owned state: the window surface and the graph handle
	windowID uintptr
	graph    Graph

	media   *Media
	rate    float64
	lastErr error
	closed  bool

	logger          zerolog.Logger
	tickInterval    time.Duration
	busPollInterval time.Duration

	// Loop control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Subscribers for playback info updates
	subscribers map[chan PlaybackInfo]struct{}
	subMu       sync.RWMutex
}

// New opens filename on backend, directs its video output to windowID and
// brings the graph to READY. A zero windowID lets the sink choose its own
// window.
func New(windowID uintptr, filename string, backend Backend, opts ...Option) (*VideoPlayer, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}

	graph, err := backend.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s with %s", filename, backend.Name())
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &VideoPlayer{
		windowID:        windowID,
		graph:           graph,
		rate:            1.0,
		logger:          log.WithComponent("player"),
		tickInterval:    DefaultTickInterval,
		busPollInterval: DefaultBusPollInterval,
		ctx:             ctx,
		cancel:          cancel,
		subscribers:     make(map[chan PlaybackInfo]struct{}),
		media: &Media{
			Path:  filename,
			Title: strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)),
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("backend", backend.Name()).Str("file", filename).Logger()

	if err := p.applyWindowLocked(); err != nil {
		cancel()
		return nil, errors.Combine(err, graph.Close())
	}
	if err := graph.SetState(GraphReady); err != nil {
		cancel()
		return nil, errors.Combine(errors.Wrap(err, "failed to set graph to READY"), graph.Close())
	}

	p.wg.Add(2)
	go p.busLoop()
	go p.tickLoop()

	p.logger.Debug().Uint64("window", uint64(windowID)).Msg("graph ready")
	return p, nil
}

// applyWindowLocked re-targets the video sink at the owned window surface.
func (p *VideoPlayer) applyWindowLocked() error {
	if p.windowID == 0 {
		return nil
	}
	if err := p.graph.SetWindowHandle(p.windowID); err != nil {
		return errors.Wrapf(err, "failed to set window handle %#x", p.windowID)
	}
	return nil
}

// Play starts or resumes playback. The window handle is applied again so a
// graph coming back from NULL renders into the window instead of a new one.
func (p *VideoPlayer) Play() error {
	p.mu.Lock()
	err := p.playLocked()
	p.mu.Unlock()

	if err == nil {
		p.notify()
	}
	return err
}

func (p *VideoPlayer) playLocked() error {
	if p.closed {
		return ErrClosed
	}
	if err := p.applyWindowLocked(); err != nil {
		return err
	}
	if err := p.graph.SetState(GraphPlaying); err != nil {
		return errors.Wrap(err, "failed to start playback")
	}

	atomic.StoreUint32(&p.finishedAtomic, 0)
	atomic.StoreUint32(&p.pausedAtomic, 0)
	atomic.StoreUint32(&p.playingAtomic, 1)
	p.lastErr = nil
	return nil
}

// Pause pauses playback.
func (p *VideoPlayer) Pause() error {
	p.mu.Lock()
	err := p.pauseLocked()
	p.mu.Unlock()

	if err == nil {
		p.notify()
	}
	return err
}

func (p *VideoPlayer) pauseLocked() error {
	if p.closed {
		return ErrClosed
	}
	if err := p.applyWindowLocked(); err != nil {
		return err
	}
	if err := p.graph.SetState(GraphPaused); err != nil {
		return errors.Wrap(err, "failed to pause playback")
	}

	atomic.StoreUint32(&p.pausedAtomic, 1)
	atomic.StoreUint32(&p.playingAtomic, 1)
	return nil
}

// Stop stops playback by bringing the graph down to NULL.
func (p *VideoPlayer) Stop() error {
	p.mu.Lock()
	err := p.stopLocked()
	p.mu.Unlock()

	if err == nil {
		p.notify()
	}
	return err
}

func (p *VideoPlayer) stopLocked() error {
	if p.closed {
		return ErrClosed
	}
	if err := p.graph.SetState(GraphNull); err != nil {
		return errors.Wrap(err, "failed to stop playback")
	}

	atomic.StoreUint32(&p.playingAtomic, 0)
	atomic.StoreUint32(&p.pausedAtomic, 0)
	return nil
}

// Toggle toggles between play and pause.
func (p *VideoPlayer) Toggle() error {
	if p.State() == StatePlaying {
		return p.Pause()
	}
	return p.Play()
}

// Seek seeks to a position in the stream, clamped to [0, duration].
func (p *VideoPlayer) Seek(pos time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	graph, rate := p.graph, p.rate
	p.mu.Unlock()

	if pos < 0 {
		pos = 0
	}
	if dur, ok := graph.QueryDuration(); ok && dur > 0 && pos > dur {
		pos = dur
	}
	if err := graph.SeekTo(pos, rate); err != nil {
		return errors.Wrapf(err, "failed to seek to %s", pos)
	}
	atomic.StoreUint32(&p.finishedAtomic, 0)

	p.notify()
	return nil
}

// SeekRelative seeks relative to current position.
func (p *VideoPlayer) SeekRelative(delta time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	graph := p.graph
	p.mu.Unlock()

	current, ok := graph.QueryPosition()
	if !ok {
		current = 0
	}
	return p.Seek(current + delta)
}

// ChangeSpeed sets the playback rate from a percentage: 100 is normal
// speed, 50 half speed, -100 normal speed in reverse.
func (p *VideoPlayer) ChangeSpeed(percent int) error {
	return p.SetSpeed(float64(percent) / 100)
}

// SetSpeed sets the playback rate. Zero is rejected; the magnitude is
// clamped to [MinRate, MaxRate].
func (p *VideoPlayer) SetSpeed(rate float64) error {
	if rate == 0 {
		return ErrInvalidRate
	}
	rate = clampRate(rate)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if err := p.graph.SeekRate(rate); err != nil {
		p.mu.Unlock()
		return errors.Wrapf(err, "failed to change rate to %.2f", rate)
	}
	p.rate = rate
	p.mu.Unlock()

	p.logger.Debug().Float64("rate", rate).Msg("rate changed")
	p.notify()
	return nil
}

func clampRate(rate float64) float64 {
	sign := 1.0
	if rate < 0 {
		sign = -1.0
		rate = -rate
	}
	if rate < MinRate {
		rate = MinRate
	}
	if rate > MaxRate {
		rate = MaxRate
	}
	return sign * rate
}

// Speed returns the current playback rate.
func (p *VideoPlayer) Speed() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.rate
}

// Duration returns the stream duration in seconds. A failed query is
// logged and reported as 0.
func (p *VideoPlayer) Duration() float64 {
	d, ok := p.queryDuration()
	if !ok {
		p.logger.Error().Msg("could not query duration")
		return 0
	}
	return d.Seconds()
}

// Position returns the stream position in seconds. A failed query is
// logged and reported as 0.
func (p *VideoPlayer) Position() float64 {
	pos, ok := p.queryPosition()
	if !ok {
		p.logger.Error().Msg("could not query position")
		return 0
	}
	return pos.Seconds()
}

func (p *VideoPlayer) queryDuration() (time.Duration, bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, false
	}
	graph := p.graph
	p.mu.Unlock()

	return graph.QueryDuration()
}

func (p *VideoPlayer) queryPosition() (time.Duration, bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, false
	}
	graph := p.graph
	p.mu.Unlock()

	return graph.QueryPosition()
}

// Media returns metadata about the opened file.
func (p *VideoPlayer) Media() *Media {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.media
}

// WindowID returns the window surface the video renders into.
func (p *VideoPlayer) WindowID() uintptr {
	return p.windowID
}

// Info returns current playback information.
func (p *VideoPlayer) Info() PlaybackInfo {
	info := PlaybackInfo{
		State:    p.State(),
		Finished: atomic.LoadUint32(&p.finishedAtomic) == 1,
	}

	if info.State != StateStopped {
		if pos, ok := p.queryPosition(); ok {
			info.Position = pos
		}
	}
	if dur, ok := p.queryDuration(); ok {
		info.Duration = dur
	}

	// Brief lock only for config values
	p.mu.Lock()
	info.Rate = p.rate
	info.Err = p.lastErr
	if info.Duration == 0 && p.media != nil {
		info.Duration = p.media.Duration
	}
	p.mu.Unlock()

	return info
}

// State returns the current playback state.
func (p *VideoPlayer) State() PlayState {
	if atomic.LoadUint32(&p.playingAtomic) == 0 {
		return StateStopped
	}
	if atomic.LoadUint32(&p.pausedAtomic) == 1 {
		return StatePaused
	}
	return StatePlaying
}

// Subscribe returns a channel that receives playback info updates.
func (p *VideoPlayer) Subscribe() <-chan PlaybackInfo {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	ch := make(chan PlaybackInfo, 1)
	if p.subscribers == nil {
		close(ch)
		return ch
	}
	p.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription channel.
func (p *VideoPlayer) Unsubscribe(ch <-chan PlaybackInfo) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	for subCh := range p.subscribers {
		if subCh == ch {
			delete(p.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notify sends the current playback info to all subscribers without
// blocking. A stale undrained update is replaced by the newer one.
func (p *VideoPlayer) notify() {
	info := p.Info()

	p.subMu.RLock()
	defer p.subMu.RUnlock()

	for ch := range p.subscribers {
		select {
		case ch <- info:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- info:
			default:
			}
		}
	}
}

// tickLoop sends periodic playback info updates while playing.
func (p *VideoPlayer) tickLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			if p.State() == StatePlaying {
				p.notify()
			}
		}
	}
}

// busLoop drains the graph's bus until the player is closed.
func (p *VideoPlayer) busLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		msg, ok := p.graph.PopMessage(p.busPollInterval)
		if !ok {
			continue
		}
		p.handleMessage(msg)
	}
}

func (p *VideoPlayer) handleMessage(msg Message) {
	switch msg.Kind {
	case MessageEOS:
		p.logger.Info().Msg("end of stream")
		atomic.StoreUint32(&p.finishedAtomic, 1)
		p.haltOnBusMessage(nil)

	case MessageError:
		p.logger.Error().Str("debug", msg.Debug).Msgf("graph error: %s", msg.Text)
		p.haltOnBusMessage(errors.New(msg.Text))

	case MessageWarning:
		p.logger.Warn().Str("debug", msg.Debug).Msgf("graph warning: %s", msg.Text)

	case MessageStateChanged:
		p.logger.Debug().
			Str("old", msg.OldState.String()).
			Str("new", msg.NewState.String()).
			Msg("state changed")
		p.syncPauseState(msg.OldState, msg.NewState)

	case MessageDurationChanged:
		p.notify()
	}
}

// haltOnBusMessage brings the graph to NULL after EOS or an error so the
// next Play starts from the beginning.
func (p *VideoPlayer) haltOnBusMessage(cause error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if cause != nil {
		p.lastErr = cause
	}
	if err := p.stopLocked(); err != nil {
		p.logger.Error().Err(err).Msg("could not stop graph")
	}
	p.mu.Unlock()

	p.notify()
}

// syncPauseState follows PLAYING <-> PAUSED transitions the framework made
// on its own, e.g. the user pausing from inside an embedded player window.
func (p *VideoPlayer) syncPauseState(oldState, newState GraphState) {
	active := func(s GraphState) bool { return s == GraphPaused || s == GraphPlaying }
	if !active(oldState) || !active(newState) || oldState == newState {
		return
	}
	if atomic.LoadUint32(&p.playingAtomic) == 0 {
		return
	}

	var paused uint32
	if newState == GraphPaused {
		paused = 1
	}
	if atomic.SwapUint32(&p.pausedAtomic, paused) != paused {
		p.notify()
	}
}

// Close releases all resources.
func (p *VideoPlayer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	// Wait for loops to exit before touching the graph and channels
	p.cancel()
	p.wg.Wait()

	atomic.StoreUint32(&p.playingAtomic, 0)
	atomic.StoreUint32(&p.pausedAtomic, 0)

	// Close subscribers (safe now that the loops have exited)
	p.subMu.Lock()
	for ch := range p.subscribers {
		close(ch)
	}
	p.subscribers = nil
	p.subMu.Unlock()

	if err := p.graph.Close(); err != nil {
		return errors.Wrap(err, "failed to release graph")
	}
	p.logger.Debug().Msg("graph released")
	return nil
}

// Ensure VideoPlayer implements Player
var _ Player = (*VideoPlayer)(nil)
