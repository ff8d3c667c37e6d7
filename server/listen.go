package server

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"

	"lanchat/wire"
)

// acceptLoop blocks on the TCP listener for new connections, assigns each one
// the next client id, defaults its name to the peer's address, and starts a
// receive worker for it.
func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.stopping() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("server: accept error: %v", err)
			return fmt.Errorf("%w: accept: %v", errNetwork, err)
		}

		id := s.nextID.Add(1) - 1
		name := conn.RemoteAddr().String()
		if host, _, splitErr := net.SplitHostPort(name); splitErr == nil {
			name = host
		}

		rec := &clientRecord{id: id, conn: conn, name: name}

		s.clientsMu.Lock()
		s.clients[id] = rec
		s.clientsMu.Unlock()

		s.enqueueNotice(fmt.Sprintf("%s connected.", name))

		s.tasks.Go(func() error {
			s.receiveClient(rec)
			return nil
		})
	}
}

// receiveClient reads opcodes from one client's TCP stream until it
// disconnects or the server is stopping, dispatching SAY and SET_NAME
// frames and dropping anything else.
func (s *Server) receiveClient(rec *clientRecord) {
	r := bufio.NewReader(rec.conn)
	for {
		op, err := wire.ReadOpcode(r)
		if err != nil {
			s.removeClient(rec, "disconnected.")
			return
		}

		switch op {
		case wire.OpSay:
			msg, err := wire.ReadSay(r)
			if err != nil {
				s.removeClient(rec, "disconnected.")
				return
			}
			text, err := wire.ValidateMessage(msg)
			if err != nil {
				continue // empty after trim: drop, not a transport error
			}
			s.enqueue(rec.Name(), text)

		case wire.OpSetName:
			raw, err := wire.ReadSetName(r)
			if err != nil {
				s.removeClient(rec, "disconnected.")
				return
			}
			name, err := wire.ValidateName(raw)
			if err != nil {
				continue
			}
			old := rec.Name()
			if name == old {
				continue
			}
			rec.setName(name)
			s.enqueueNotice(fmt.Sprintf("%s changed their name to %s", old, name))

		default:
			// Forward-compatible: ignore opcodes this server doesn't know.
		}
	}
}

// removeClient deletes rec from the client table and closes its transport,
// at most once, then enqueues a disconnect notice.
func (s *Server) removeClient(rec *clientRecord, verb string) {
	s.clientsMu.Lock()
	_, existed := s.clients[rec.id]
	delete(s.clients, rec.id)
	s.clientsMu.Unlock()

	if !existed {
		return
	}
	rec.closeOnce()
	s.enqueueNotice(fmt.Sprintf("%s %s", rec.Name(), verb))
}
