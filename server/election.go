package server

import (
	"log"
	"net"
	"time"

	"lanchat/wire"
)

// electionLoop owns the UDP socket: it beacons on a cadence that speeds up
// while the server is young, answers SERVER_INFO_REQUEST, and yields
// whenever a beacon from an older (or, within the fuzz band, higher-uid)
// peer arrives.
func (s *Server) electionLoop() error {
	buf := make([]byte, wire.BeaconLen+1) // +1 so an oversize datagram is detectable, not silently truncated
	for {
		if s.stopping() {
			return nil
		}

		s.sendBeacon()

		window := s.cfg.BeaconOldInterval
		if s.AgeDuration() < s.cfg.YoungAge {
			window = s.cfg.BeaconYoungInterval
		}
		deadline := time.Now().Add(window)

		for time.Now().Before(deadline) {
			s.udpConn.SetReadDeadline(deadline)
			n, addr, err := s.udpConn.ReadFromUDP(buf)
			if err != nil {
				if s.stopping() {
					return nil
				}
				break // deadline or transient read error: start a new beacon round
			}
			if s.handleDatagram(buf[:n], addr) {
				return nil // yielded
			}
		}
	}
}

func (s *Server) sendBeacon() {
	beacon := wire.EncodeServerInfo(s.Age(), s.uid)
	s.udpConn.WriteToUDP(beacon, broadcastAddr(s.cfg.Port))
}

// handleDatagram processes one UDP datagram. It returns true if the server
// has decided to yield, in which case the caller must stop looping.
func (s *Server) handleDatagram(buf []byte, addr *net.UDPAddr) bool {
	if wire.IsServerInfoRequest(buf) {
		beacon := wire.EncodeServerInfo(s.Age(), s.uid)
		s.udpConn.WriteToUDP(beacon, broadcastAddr(s.cfg.Port))
		return false
	}

	otherAge, otherUID, ok := wire.DecodeServerInfo(buf)
	if !ok {
		return false // wrong length, opcode, or CRC: drop silently
	}
	if isSelfEcho(otherUID, s.uid) {
		return false
	}

	if s.shouldYield(otherAge, otherUID) {
		log.Printf("server: yielding to uid=%x (age=%ds, mine=%ds)", otherUID, otherAge, s.Age())
		go s.Dispose()
		return true
	}
	return false
}

// shouldYield implements the election rule: older wins, ties within the
// fuzz band broken by the higher uid. It is a pure function of its four
// inputs, matching the "tie-break determinism" law.
func (s *Server) shouldYield(otherAge uint32, otherUID uint64) bool {
	return electionYield(otherAge, s.Age(), otherUID, s.uid, s.cfg.ElectionFuzz)
}

// isSelfEcho reports whether a beacon carrying otherUID originated from this
// very server, which must never trigger a yield.
func isSelfEcho(otherUID, uid uint64) bool { return otherUID == uid }

func electionYield(otherAge, thisAge uint32, otherUID, thisUID uint64, fuzz time.Duration) bool {
	delta := int64(otherAge) - int64(thisAge) // seconds, may be negative
	fuzzSeconds := int64(fuzz / time.Second)

	if delta > fuzzSeconds {
		return true
	}
	if delta >= -fuzzSeconds && otherUID > thisUID {
		return true
	}
	return false
}
