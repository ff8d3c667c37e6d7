// Package client implements the chat client: one TCP connection to a
// server, a dedicated receive loop, and a single exclusive writer slot
// shared by SAY and SET_NAME.
package client

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/creachadair/taskgroup"

	"lanchat/chaterr"
	"lanchat/config"
	"lanchat/wire"
)

type state int32

const (
	stateUnconnected state = iota
	stateConnected
	stateClosed
)

// Client maintains one TCP connection to a chat server. The zero value is
// not ready for use; construct with New.
type Client struct {
	cfg config.Config

	state atomic.Int32

	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex // serializes SAY and SET_NAME writes to conn

	nameMu sync.RWMutex // guards name: getter, setter and the SET_NAME sender all race
	name   string

	tasks    *taskgroup.Group
	closeOnce sync.Once

	onMessage        func(name, msg string)
	onConnectionLost func()
}

// New constructs an unconnected Client.
func New(cfg config.Config) *Client {
	return &Client{
		cfg:   cfg,
		tasks: taskgroup.New(nil),
	}
}

// OnMessageSaid registers the callback invoked, on the receive loop's
// goroutine, for every SAY_DISPATCH the server sends.
func (c *Client) OnMessageSaid(f func(name, msg string)) { c.onMessage = f }

// OnConnectionLost registers the callback invoked when the receive loop
// terminates due to a transport failure rather than an explicit Close.
func (c *Client) OnConnectionLost(f func()) { c.onConnectionLost = f }

// Name reports the currently registered display name, or "" if unset.
func (c *Client) Name() string {
	c.nameMu.RLock()
	defer c.nameMu.RUnlock()
	return c.name
}

// SetName validates and stores name, trimmed. If the client is connected it
// also sends a SET_NAME frame.
func (c *Client) SetName(raw string) error {
	name, err := wire.ValidateName(raw)
	if err != nil {
		return err
	}

	c.nameMu.Lock()
	c.name = name
	c.nameMu.Unlock()

	if state(c.state.Load()) != stateConnected {
		return nil
	}
	frame, err := wire.EncodeSetName(name)
	if err != nil {
		return err
	}
	return c.writeFrame(frame)
}

// Connect opens a TCP session to endpoint, starts the receive loop, and
// sends a SET_NAME if a name was already set. It fails with
// chaterr.ErrAlreadyConnected if the client is already connected, or a
// wrapped chaterr.ErrNetwork on a transport failure.
//
// Connect, Close and SetName are not safe for concurrent use by multiple
// goroutines on the same Client — callers serialize them with their own
// lock, per the session manager's concurrency discipline.
func (c *Client) Connect(endpoint string) error {
	switch state(c.state.Load()) {
	case stateConnected:
		return fmt.Errorf("%w", chaterr.ErrAlreadyConnected)
	case stateClosed:
		return fmt.Errorf("%w: client is terminally closed, construct a new one", chaterr.ErrClosed)
	}

	conn, err := net.DialTimeout("tcp", endpoint, 0)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %v", chaterr.ErrNetwork, endpoint, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.state.Store(int32(stateConnected))

	c.tasks.Go(c.receiveLoop)

	if name := c.Name(); name != "" {
		frame, err := wire.EncodeSetName(name)
		if err == nil {
			c.writeFrame(frame)
		}
	}

	return nil
}

// Connected reports whether the client currently owns an open transport.
func (c *Client) Connected() bool {
	return state(c.state.Load()) == stateConnected
}

// Say validates msg and, if connected, writes a SAY frame. Callers that get
// chaterr.ErrNotConnected are responsible for backlogging the message
// themselves — the client does not buffer on their behalf.
func (c *Client) Say(raw string) error {
	msg, err := wire.ValidateMessage(raw)
	if err != nil {
		return err
	}
	if state(c.state.Load()) != stateConnected {
		return fmt.Errorf("%w", chaterr.ErrNotConnected)
	}
	frame, err := wire.EncodeSay(msg)
	if err != nil {
		return err
	}
	return c.writeFrame(frame)
}

func (c *Client) writeFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("%w: write: %v", chaterr.ErrNetwork, err)
	}
	return nil
}

// Close is idempotent. It signals the receive loop to stop, closes the
// transport (which unblocks any in-flight read or write with a recoverable
// error), and waits for the receive loop to fully exit before returning.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		prev := state(c.state.Swap(int32(stateClosed)))
		if prev == stateUnconnected {
			return
		}
		if c.conn != nil {
			c.conn.Close()
		}
		err = c.tasks.Wait()
	})
	return err
}
