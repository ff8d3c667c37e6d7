// Package server implements the TCP fan-out chat server and its UDP
// discovery/election worker: accept clients, queue their SAYs, dispatch to
// everyone, and yield to an older or higher-uid peer.
package server

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creachadair/taskgroup"

	"lanchat/config"
)

// pendingMessage is a (senderName, messageText) pair queued for fan-out.
type pendingMessage struct {
	name string
	text string
}

// clientRecord is the server's view of one connected TCP client.
type clientRecord struct {
	id   int64
	conn net.Conn

	mu     sync.Mutex
	name   string
	closed bool
}

func (c *clientRecord) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

func (c *clientRecord) setName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

// closeOnce closes the client's transport exactly once and reports whether
// this call was the one that closed it.
func (c *clientRecord) closeOnce() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	c.conn.Close()
	return true
}

// Server is a running chat server: one TCP listener fanning SAYs out to its
// connected clients, and one UDP worker beaconing and deciding elections.
type Server struct {
	cfg config.Config

	startTime time.Time
	uid       uint64

	listener net.Listener
	udpConn  *net.UDPConn

	clientsMu sync.RWMutex
	clients   map[int64]*clientRecord
	nextID    atomic.Int64

	queue chan pendingMessage

	tasks    *taskgroup.Group
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool
}

// New constructs an unstarted Server. Call Start to begin listening.
func New(cfg config.Config) (*Server, error) {
	uid, err := randomUID()
	if err != nil {
		return nil, fmt.Errorf("%w: generating server uid: %v", errNetwork, err)
	}
	return &Server{
		cfg:       cfg,
		startTime: time.Now(),
		uid:       uid,
		clients:   make(map[int64]*clientRecord),
		queue:     make(chan pendingMessage, cfg.DispatchQueueSize),
		tasks:     taskgroup.New(nil),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}, nil
}

func randomUID() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// UID reports the server's random identity, stable for its lifetime.
func (s *Server) UID() uint64 { return s.uid }

// Age reports how long the server has been running, in whole seconds as the
// wire protocol requires.
func (s *Server) Age() uint32 { return uint32(time.Since(s.startTime) / time.Second) }

// AgeDuration reports the same age with sub-second precision, for election
// arithmetic that needs it.
func (s *Server) AgeDuration() time.Duration { return time.Since(s.startTime) }

// Addr reports the TCP address clients should connect to once Start has
// succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the TCP listener and UDP socket and launches the accept,
// dispatch and election workers. It does not block.
func (s *Server) Start(host string) error {
	lst, err := net.Listen("tcp", net.JoinHostPort(host, portString(s.cfg.Port)))
	if err != nil {
		return fmt.Errorf("%w: listen: %v", errNetwork, err)
	}
	s.listener = lst

	udpConn, err := listenBroadcastUDP(s.cfg.Port)
	if err != nil {
		lst.Close()
		return fmt.Errorf("%w: udp listen: %v", errNetwork, err)
	}
	s.udpConn = udpConn

	s.tasks.Go(s.acceptLoop)
	s.tasks.Go(s.dispatchLoop)
	s.tasks.Go(s.electionLoop)

	log.Printf("server: listening on %s (uid=%x)", s.Addr(), s.uid)
	return nil
}

func portString(p int) string { return fmt.Sprintf("%d", p) }

// Dispose signals every worker to stop, closes every client socket (which
// unblocks their receive workers with a recoverable Network error), and
// blocks until all workers have exited. It is safe to call more than once.
func (s *Server) Dispose() error {
	var err error
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.stopCh)
		if s.listener != nil {
			s.listener.Close()
		}
		if s.udpConn != nil {
			s.udpConn.Close()
		}

		s.clientsMu.Lock()
		for _, c := range s.clients {
			c.closeOnce()
		}
		s.clientsMu.Unlock()

		err = s.tasks.Wait()
		close(s.doneCh)
		log.Printf("server: disposed (uid=%x)", s.uid)
	})
	return err
}

func (s *Server) stopping() bool { return s.stopped.Load() }

// Done reports a channel that closes once Dispose has joined every worker.
func (s *Server) Done() <-chan struct{} { return s.doneCh }
