package server

import "lanchat/wire"

// noticeSender is the name the server uses for its own lifecycle notices
// (client joined, left, or renamed).
const noticeSender = "SERVER"

// enqueue adds a (name, text) pair to the dispatch FIFO. Multiple per-client
// receive workers are producers; the dispatch worker is the sole consumer.
func (s *Server) enqueue(name, text string) {
	select {
	case s.queue <- pendingMessage{name: name, text: text}:
	case <-s.stopCh:
	}
}

func (s *Server) enqueueNotice(text string) {
	s.enqueue(noticeSender, text)
}

// dispatchLoop drains the FIFO and fans each message out to every currently
// registered client, encoding the SAY_DISPATCH frame exactly once per
// message. A write failure to one client removes only that client; dispatch
// continues for the rest. Blocking on the channel (rather than the
// teacher's poll-and-sleep) means there is no idle latency when the queue is
// non-empty and no busy looping when it is empty.
func (s *Server) dispatchLoop() error {
	for {
		select {
		case pm := <-s.queue:
			s.dispatchOne(pm)
		case <-s.stopCh:
			return nil
		}
	}
}

func (s *Server) dispatchOne(pm pendingMessage) {
	frame, err := wire.EncodeSayDispatch(pm.name, pm.text)
	if err != nil {
		return // oversized after encoding; drop rather than crash the loop
	}

	s.clientsMu.RLock()
	targets := make([]*clientRecord, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.clientsMu.RUnlock()

	for _, rec := range targets {
		if _, err := rec.conn.Write(frame); err != nil {
			s.removeClient(rec, "disconnected.")
		}
	}
}
