// Package node implements the session manager: the public-facing peer that
// discovers an existing chat session, falls back to hosting one itself, and
// transparently reconnects when its server goes away.
package node

import (
	"sync"
	"sync/atomic"

	"github.com/creachadair/taskgroup"

	"lanchat/client"
	"lanchat/config"
	"lanchat/server"
	"lanchat/wire"
)

// Node is the public surface other collaborators (a GUI, a TUI, a CLI) drive.
// The zero value is not ready for use; construct with New.
type Node struct {
	cfg config.Config

	nameMu sync.RWMutex
	name   string

	clientLock sync.Mutex // guards Connect/Close and backlog draining, per spec
	clientPtr  atomic.Pointer[client.Client]
	server     *server.Server // owned fallback server, retained across reconnects

	backlog backlog

	tasks     *taskgroup.Group
	stopCh    chan struct{}
	closeOnce sync.Once

	onMessage func(name, msg string)
}

// New constructs a Node that has not yet begun session acquisition.
func New(cfg config.Config) *Node {
	return &Node{
		cfg:    cfg,
		tasks:  taskgroup.New(nil),
		stopCh: make(chan struct{}),
	}
}

// OnMessageSaid registers the callback invoked for every message the node
// surfaces: server-originated SAY_DISPATCH (name is the sender's display
// name or "SERVER" for a server notice) and node-local status lines (name ==
// "CLIENT").
func (n *Node) OnMessageSaid(f func(name, msg string)) { n.onMessage = f }

func (n *Node) emit(name, msg string) {
	if n.onMessage != nil {
		n.onMessage(name, msg)
	}
}

// Name reports the currently registered display name, or "" if unset.
func (n *Node) Name() string {
	n.nameMu.RLock()
	defer n.nameMu.RUnlock()
	return n.name
}

// SetName validates and stores name, and pushes a SET_NAME to the current
// client, if any.
func (n *Node) SetName(raw string) error {
	name, err := wire.ValidateName(raw)
	if err != nil {
		return err
	}
	n.nameMu.Lock()
	n.name = name
	n.nameMu.Unlock()

	if cl := n.clientPtr.Load(); cl != nil {
		return cl.SetName(name)
	}
	return nil
}

// Say validates msg and either sends it through the current client or, while
// offline, appends it to the backlog for delivery once a session is
// acquired.
func (n *Node) Say(raw string) error {
	msg, err := wire.ValidateMessage(raw)
	if err != nil {
		return err
	}

	if cl := n.clientPtr.Load(); cl != nil && cl.Connected() {
		if sayErr := cl.Say(msg); sayErr == nil {
			return nil
		}
		// The client dropped between the Connected() check and the write;
		// fall through and backlog it like any other offline Say.
	}
	n.backlog.push(msg)
	return nil
}

// Start begins session acquisition in the background. It does not block.
func (n *Node) Start() {
	n.tasks.Go(n.acquisitionLoop)
}

// Close stops session acquisition, closes the current client and any owned
// server, and waits for the acquisition worker to exit. It is safe to call
// more than once.
func (n *Node) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.stopCh)

		n.clientLock.Lock()
		if cl := n.clientPtr.Load(); cl != nil {
			cl.Close()
		}
		if n.server != nil {
			n.server.Dispose()
		}
		n.clientLock.Unlock()

		err = n.tasks.Wait()
	})
	return err
}
