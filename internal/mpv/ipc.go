// Package mpv drives an external mpv process over its JSON IPC socket.
package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"sync"
	"sync/atomic"

	"emperror.dev/errors"
	"github.com/rs/zerolog"
)

const eventBuffer = 64

// Errors returned by the IPC client.
var (
	ErrClientClosed = errors.New("mpv: ipc connection closed")
	ErrUnavailable  = errors.New("mpv: property unavailable")
)

type request struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// reply is any line mpv writes: a command response or an event.
type reply struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`

	Event     string `json:"event"`
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
	FileError string `json:"file_error"`
}

// Event is an asynchronous notification from mpv.
type Event struct {
	Name      string          // "property-change", "end-file", ...
	Property  string          // observed property name for property-change
	Data      json.RawMessage // property value for property-change
	Reason    string          // end-file reason
	FileError string          // end-file error text
}

// Client is a single persistent IPC connection. Responses are matched to
// requests by request_id; events are delivered on Events.
type Client struct {
	conn   net.Conn
	logger zerolog.Logger

	nextID atomic.Int64

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan reply
	closed  bool
	err     error

	events chan Event
	done   chan struct{}
}

// Dial connects to an mpv IPC socket.
func Dial(ctx context.Context, socketPath string, logger zerolog.Logger) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	return newClient(conn, logger), nil
}

func newClient(conn net.Conn, logger zerolog.Logger) *Client {
	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[int64]chan reply),
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Events returns the event stream. It is closed when the connection ends.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Command sends a command and waits for its response data.
func (c *Client) Command(ctx context.Context, args ...any) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	ch := make(chan reply, 1)

	c.mu.Lock()
	if c.closed {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	payload, err := json.Marshal(request{Command: args, RequestID: id})
	if err != nil {
		return nil, errors.Wrap(err, "marshal")
	}

	c.writeMu.Lock()
	_, err = c.conn.Write(append(payload, '\n'))
	c.writeMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "write")
	}

	select {
	case r := <-ch:
		if r.Error != "" && r.Error != "success" {
			if r.Error == "property unavailable" {
				return nil, ErrUnavailable
			}
			return nil, errors.Errorf("mpv error: %s", r.Error)
		}
		return r.Data, nil
	case <-c.done:
		return nil, c.closeErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetFloat reads a numeric property.
func (c *Client) GetFloat(ctx context.Context, name string) (float64, error) {
	data, err := c.Command(ctx, "get_property", name)
	if err != nil {
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, errors.Wrapf(err, "decode %s", name)
	}
	return v, nil
}

// SetProperty writes a property.
func (c *Client) SetProperty(ctx context.Context, name string, value any) error {
	_, err := c.Command(ctx, "set_property", name, value)
	return err
}

// Observe subscribes to property-change events for name.
func (c *Client) Observe(ctx context.Context, id int, name string) error {
	_, err := c.Command(ctx, "observe_property", id, name)
	return errors.Wrapf(err, "observe %s", name)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.err = ErrClientClosed
	c.mu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClientClosed
}

func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		if c.err == nil {
			c.err = ErrClientClosed
		}
		c.mu.Unlock()
		_ = c.conn.Close()
		close(c.events)
		close(c.done)
	}()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r reply
		if err := json.Unmarshal(line, &r); err != nil {
			c.logger.Debug().Err(err).Msg("skipping unparseable ipc line")
			continue
		}

		if r.Event != "" {
			c.dispatch(Event{
				Name:      r.Event,
				Property:  r.Name,
				Data:      r.Data,
				Reason:    r.Reason,
				FileError: r.FileError,
			})
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[r.RequestID]
		c.mu.Unlock()
		if ok {
			ch <- r
		}
	}
	if err := scanner.Err(); err != nil {
		c.mu.Lock()
		if !c.closed {
			c.err = errors.Wrap(err, "read")
		}
		c.mu.Unlock()
	}
}

func (c *Client) dispatch(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.logger.Warn().Str("event", ev.Name).Msg("event buffer full, dropping")
	}
}
