package mpv

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/rs/zerolog"

	"github.com/dewi-tim/vidtui/internal/log"
	"github.com/dewi-tim/vidtui/internal/player"
)

const (
	socketWaitRetries = 20
	socketWaitDelay   = 100 * time.Millisecond
	requestTimeout    = time.Second
	exitTimeout       = 2 * time.Second
	messageBuffer     = 32
)

// Observed property ids.
const (
	observePause = iota + 1
	observeEOF
	observeDuration
)

// Errors returned by the mpv backend.
var (
	ErrNotRunning         = errors.New("mpv: not running")
	ErrReverseUnsupported = errors.New("mpv: reverse playback is not supported")
	ErrSocketTimeout      = errors.New("mpv: ipc socket not ready")
	ErrExited             = errors.New("mpv: process exited")
)

// Backend launches one mpv process per opened graph.
type Backend struct {
	Binary    string
	SocketDir string
	ExtraArgs []string

	logger zerolog.Logger
	launch launcher
}

// NewBackend returns a backend running the given mpv binary.
func NewBackend(binary, socketDir string, extraArgs []string) *Backend {
	if binary == "" {
		binary = "mpv"
	}
	return &Backend{
		Binary:    binary,
		SocketDir: socketDir,
		ExtraArgs: extraArgs,
		logger:    log.WithComponent("mpv"),
		launch:    execLauncher,
	}
}

// Name implements player.Backend.
func (b *Backend) Name() string {
	return "mpv"
}

// Open implements player.Backend. The process is started lazily by the
// first non-NULL state change so the window handle is known at launch.
func (b *Backend) Open(location string) (player.Graph, error) {
	if _, err := os.Stat(location); err != nil {
		return nil, errors.Wrap(err, "open media")
	}
	return &Graph{
		backend:  b,
		location: location,
		logger:   b.logger.With().Str("file", location).Logger(),
		messages: make(chan player.Message, messageBuffer),
	}, nil
}

// Graph maps the playback state machine onto a single mpv process:
// NULL means no process, READY and PAUSED mean a paused process, PLAYING
// unpauses it.
type Graph struct {
	backend  *Backend
	location string
	logger   zerolog.Logger

	mu         sync.Mutex
	window     uintptr
	state      player.GraphState
	proc       process
	client     *Client
	socketPath string
	stop       chan struct{}
	pumpDone   chan struct{}
	closed     bool

	messages chan player.Message
}

// SetWindowHandle implements player.Graph. mpv binds its window at launch,
// so a changed handle applies from the next start.
func (g *Graph) SetWindowHandle(handle uintptr) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return player.ErrClosed
	}
	if g.proc != nil && handle != g.window {
		g.logger.Warn().Uint64("window", uint64(handle)).Msg("window changes apply after restart")
	}
	g.window = handle
	return nil
}

// SetState implements player.Graph.
func (g *Graph) SetState(state player.GraphState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return player.ErrClosed
	}

	if state == player.GraphNull {
		g.stopLocked()
		g.state = player.GraphNull
		return nil
	}

	if g.proc == nil {
		if err := g.startLocked(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := g.client.SetProperty(ctx, "pause", state != player.GraphPlaying); err != nil {
		return errors.Wrapf(err, "set state %s", state)
	}
	g.state = state
	return nil
}

// QueryDuration implements player.Graph.
func (g *Graph) QueryDuration() (time.Duration, bool) {
	return g.queryTime("duration")
}

// QueryPosition implements player.Graph.
func (g *Graph) QueryPosition() (time.Duration, bool) {
	return g.queryTime("time-pos")
}

func (g *Graph) queryTime(property string) (time.Duration, bool) {
	g.mu.Lock()
	client := g.client
	g.mu.Unlock()

	if client == nil {
		return 0, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	secs, err := client.GetFloat(ctx, property)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// SeekRate implements player.Graph through the speed property.
func (g *Graph) SeekRate(rate float64) error {
	if rate < 0 {
		return ErrReverseUnsupported
	}

	client, err := g.runningClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return errors.Wrapf(client.SetProperty(ctx, "speed", rate), "rate %.2f", rate)
}

// SeekTo implements player.Graph. The speed property survives seeks, so
// rate only needs validating.
func (g *Graph) SeekTo(pos time.Duration, rate float64) error {
	if rate < 0 {
		return ErrReverseUnsupported
	}

	client, err := g.runningClient()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	_, err = client.Command(ctx, "seek", pos.Seconds(), "absolute+exact")
	return errors.Wrapf(err, "position %s", pos)
}

func (g *Graph) runningClient() (*Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, player.ErrClosed
	}
	if g.client == nil {
		return nil, ErrNotRunning
	}
	return g.client, nil
}

// PopMessage implements player.Graph.
func (g *Graph) PopMessage(timeout time.Duration) (player.Message, bool) {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		time.Sleep(timeout)
		return player.Message{}, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-g.messages:
		return msg, true
	case <-timer.C:
		return player.Message{}, false
	}
}

// Close stops the process and removes its socket.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	g.stopLocked()
	return nil
}

// State returns the last state applied.
func (g *Graph) State() player.GraphState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Graph) args() []string {
	args := []string{
		"--no-terminal",
		"--really-quiet",
		"--input-ipc-server=" + g.socketPath,
		"--pause",
		"--keep-open=yes",
		"--idle=no",
	}
	if g.window != 0 {
		args = append(args, "--wid="+strconv.FormatUint(uint64(g.window), 10))
	} else {
		args = append(args, "--force-window=yes")
	}
	args = append(args, g.backend.ExtraArgs...)
	return append(args, "--", g.location)
}

func (g *Graph) startLocked() error {
	path, err := socketPath(g.backend.SocketDir)
	if err != nil {
		return err
	}
	g.socketPath = path

	proc, err := g.backend.launch(context.Background(), g.backend.Binary, g.args())
	if err != nil {
		return errors.Wrapf(err, "start %s", g.backend.Binary)
	}

	client, err := g.waitForSocket(proc)
	if err != nil {
		_ = proc.Kill()
		_ = os.Remove(g.socketPath)
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	err = errors.Combine(
		client.Observe(ctx, observePause, "pause"),
		client.Observe(ctx, observeEOF, "eof-reached"),
		client.Observe(ctx, observeDuration, "duration"),
	)
	if err != nil {
		_ = client.Close()
		_ = proc.Kill()
		_ = os.Remove(g.socketPath)
		return err
	}

	g.proc = proc
	g.client = client
	g.stop = make(chan struct{})
	g.pumpDone = make(chan struct{})
	go g.pump(client, proc, g.stop, g.pumpDone)

	g.logger.Debug().Str("socket", g.socketPath).Msg("mpv started")
	return nil
}

// waitForSocket polls until the IPC socket accepts connections.
func (g *Graph) waitForSocket(proc process) (*Client, error) {
	for i := 0; i < socketWaitRetries; i++ {
		select {
		case <-proc.Done():
			return nil, errors.Wrap(ErrExited, "before ipc socket was ready")
		case <-time.After(socketWaitDelay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		client, err := Dial(ctx, g.socketPath, g.logger)
		cancel()
		if err == nil {
			return client, nil
		}
	}
	return nil, errors.Wrapf(ErrSocketTimeout, "%s after %d attempts", g.socketPath, socketWaitRetries)
}

func (g *Graph) stopLocked() {
	if g.proc == nil {
		return
	}

	close(g.stop)

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	_, _ = g.client.Command(ctx, "quit")
	cancel()
	_ = g.client.Close()

	select {
	case <-g.proc.Done():
	case <-time.After(exitTimeout):
		g.logger.Warn().Msg("mpv did not quit, killing")
		if err := g.proc.Kill(); err != nil {
			g.logger.Error().Err(err).Msg("could not kill mpv")
		}
	}
	<-g.pumpDone

	if err := os.Remove(g.socketPath); err != nil && !os.IsNotExist(err) {
		g.logger.Debug().Err(err).Msg("could not remove socket")
	}

	g.proc = nil
	g.client = nil
	g.logger.Debug().Msg("mpv stopped")
}

// pump turns IPC events into bus messages until the process is stopped.
func (g *Graph) pump(client *Client, proc process, stop, done chan struct{}) {
	defer close(done)

	events := client.Events()
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if msg, ok := translate(ev); ok {
				g.post(msg)
			}
		case <-proc.Done():
			select {
			case <-stop:
			default:
				g.post(player.Message{Kind: player.MessageError, Text: ErrExited.Error()})
			}
			return
		}
	}
}

func (g *Graph) post(msg player.Message) {
	select {
	case g.messages <- msg:
	default:
		g.logger.Warn().Stringer("kind", msg.Kind).Msg("message buffer full, dropping")
	}
}

// translate maps an mpv event onto a bus message.
func translate(ev Event) (player.Message, bool) {
	switch ev.Name {
	case "property-change":
		switch ev.Property {
		case "pause":
			var paused bool
			if json.Unmarshal(ev.Data, &paused) != nil {
				return player.Message{}, false
			}
			if paused {
				return player.Message{
					Kind:     player.MessageStateChanged,
					OldState: player.GraphPlaying,
					NewState: player.GraphPaused,
				}, true
			}
			return player.Message{
				Kind:     player.MessageStateChanged,
				OldState: player.GraphPaused,
				NewState: player.GraphPlaying,
			}, true
		case "eof-reached":
			var eof bool
			if json.Unmarshal(ev.Data, &eof) != nil || !eof {
				return player.Message{}, false
			}
			return player.Message{Kind: player.MessageEOS}, true
		case "duration":
			return player.Message{Kind: player.MessageDurationChanged}, true
		}
	case "end-file":
		switch ev.Reason {
		case "eof":
			return player.Message{Kind: player.MessageEOS}, true
		case "error":
			text := ev.FileError
			if text == "" {
				text = "playback failed"
			}
			return player.Message{Kind: player.MessageError, Text: text}, true
		}
	}
	return player.Message{}, false
}

func socketPath(dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, "generate socket name")
	}
	return filepath.Join(dir, fmt.Sprintf("vidtui-%x.sock", b)), nil
}

var (
	_ player.Backend = (*Backend)(nil)
	_ player.Graph   = (*Graph)(nil)
)
