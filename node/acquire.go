package node

import (
	"errors"
	"fmt"
	"net"
	"time"

	"lanchat/chaterr"
	"lanchat/client"
	"lanchat/server"
)

// acquisitionLoop drives the node through idle → searching → connected,
// and back to searching on connection loss, until Close stops it.
func (n *Node) acquisitionLoop() error {
	n.emit("CLIENT", "Searching for session…")

	for {
		select {
		case <-n.stopCh:
			return nil
		default:
		}

		lost, err := n.acquireSession()
		if err != nil {
			if errors.Is(err, chaterr.ErrClosed) {
				return nil
			}
			select {
			case <-time.After(500 * time.Millisecond):
			case <-n.stopCh:
				return nil
			}
			continue
		}

		n.emit("CLIENT", "Connected.")
		n.drainBacklog()

		select {
		case <-lost:
			n.emit("CLIENT", "Connection Lost.")
		case <-n.stopCh:
			return nil
		}
	}
}

// acquireSession runs one pass of discovery, candidate attempts, and
// self-hosting fallback. On success it installs the new client and returns
// a channel that fires once when that client's ConnectionLost fires.
func (n *Node) acquireSession() (<-chan struct{}, error) {
	candidates, err := discoverCandidates(n.cfg, n.stopCh)
	if err != nil {
		return nil, err
	}
	sortCandidates(candidates, time.Now())

	n.clientLock.Lock()
	defer n.clientLock.Unlock()

	select {
	case <-n.stopCh:
		// Close ran while discovery was in flight: don't spin up a new
		// client or self-hosted server only to have nothing ever tear it
		// down.
		return nil, chaterr.ErrClosed
	default:
	}

	if prev := n.clientPtr.Load(); prev != nil {
		prev.Close()
		n.clientPtr.Store(nil)
	}

	for _, c := range candidates {
		lost, ok := n.tryConnect(net.JoinHostPort(c.ip, portString(n.cfg.Port)))
		if ok {
			return lost, nil
		}
	}

	return n.selfHost()
}

// tryConnect attempts one candidate endpoint, installing it as the current
// client on success.
func (n *Node) tryConnect(endpoint string) (<-chan struct{}, bool) {
	cl := client.New(n.cfg)
	lost := n.wireClient(cl)

	if name := n.Name(); name != "" {
		cl.SetName(name)
	}
	if err := cl.Connect(endpoint); err != nil {
		return nil, false
	}

	n.clientPtr.Store(cl)
	return lost, true
}

// selfHost disposes any stale owned server (the source's documented bug was
// to keep a dead reference around), starts a fresh one, and connects a
// client to it over loopback.
func (n *Node) selfHost() (<-chan struct{}, error) {
	n.emit("CLIENT", "Starting new session.")

	if n.server != nil {
		n.server.Dispose()
		n.server = nil
	}

	srv, err := server.New(n.cfg)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(""); err != nil {
		return nil, err
	}
	n.server = srv

	cl := client.New(n.cfg)
	lost := n.wireClient(cl)

	if name := n.Name(); name != "" {
		cl.SetName(name)
	}
	if err := cl.Connect(net.JoinHostPort("127.0.0.1", portString(n.cfg.Port))); err != nil {
		srv.Dispose()
		n.server = nil
		return nil, err
	}

	n.clientPtr.Store(cl)
	return lost, nil
}

// wireClient hooks a freshly constructed client's events back into the
// node: MessageSaid relays straight through, ConnectionLost fires the
// returned channel exactly once.
func (n *Node) wireClient(cl *client.Client) <-chan struct{} {
	lost := make(chan struct{}, 1)
	cl.OnMessageSaid(func(name, msg string) { n.emit(name, msg) })
	cl.OnConnectionLost(func() {
		select {
		case lost <- struct{}{}:
		default:
		}
	})
	return lost
}

// drainBacklog flushes every queued Say, under clientLock per the spec's
// concurrency discipline, swallowing per-message errors. The whole backlog
// is taken out before sending, so a message whose Say fails (e.g. the
// connection dropping mid-drain) is dropped, not re-backlogged.
func (n *Node) drainBacklog() {
	n.clientLock.Lock()
	defer n.clientLock.Unlock()

	cl := n.clientPtr.Load()
	if cl == nil {
		return
	}
	for _, msg := range n.backlog.drain() {
		_ = cl.Say(msg)
	}
}

func portString(p int) string { return fmt.Sprintf("%d", p) }
