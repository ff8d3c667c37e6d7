package node

import (
	"sort"
	"time"

	"lanchat/config"
	"lanchat/wire"
)

// candidateServer is a server observed during discovery, per §3 of the data
// model: effective age grows with wall-clock time since it was seen, not
// just with the age it reported at that instant.
type candidateServer struct {
	ip               string
	ageAtDiscovery   uint32
	discoveryInstant time.Time
	uid              uint64
}

func (c candidateServer) effectiveAge(now time.Time) uint32 {
	return c.ageAtDiscovery + uint32(now.Sub(c.discoveryInstant)/time.Second)
}

// sortCandidates orders oldest-effective-age-first, ties broken by the
// higher uid. The source's CompareTo always returned 0 for non-tie ages;
// this is the deliberate fix the spec calls for.
func sortCandidates(candidates []candidateServer, now time.Time) {
	sort.SliceStable(candidates, func(i, j int) bool {
		ai, aj := candidates[i].effectiveAge(now), candidates[j].effectiveAge(now)
		if ai != aj {
			return ai > aj
		}
		return candidates[i].uid > candidates[j].uid
	})
}

// discoverCandidates broadcasts SERVER_INFO_REQUEST on cfg.Port and collects
// valid SERVER_INFO replies, deduplicated by sender IP, for up to
// cfg.DiscoveryWindow — shortened to cfg.DiscoveryFastWindow remaining as
// soon as the first candidate appears. It returns early, with whatever it
// has collected so far, if stopCh closes.
func discoverCandidates(cfg config.Config, stopCh <-chan struct{}) ([]candidateServer, error) {
	conn, err := listenBroadcastUDP(cfg.Port)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	seen := make(map[string]candidateServer)
	request := wire.EncodeServerInfoRequest()
	dst := broadcastAddr(cfg.Port)

	deadline := time.Now().Add(cfg.DiscoveryWindow)
	nextProbe := time.Now()
	buf := make([]byte, wire.BeaconLen+1)

	for time.Now().Before(deadline) {
		select {
		case <-stopCh:
			return candidatesOf(seen), nil
		default:
		}

		if !time.Now().Before(nextProbe) {
			conn.WriteToUDP(request, dst)
			nextProbe = time.Now().Add(cfg.DiscoveryProbeInterval)
		}

		readDeadline := nextProbe
		if readDeadline.After(deadline) {
			readDeadline = deadline
		}
		conn.SetReadDeadline(readDeadline)

		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue // probe interval or overall deadline elapsed: loop re-checks both
		}

		age, uid, ok := wire.DecodeServerInfo(buf[:n])
		if !ok {
			continue
		}

		ip := addr.IP.String()
		if len(seen) == 0 {
			if fast := time.Now().Add(cfg.DiscoveryFastWindow); fast.Before(deadline) {
				deadline = fast
			}
		}
		seen[ip] = candidateServer{ip: ip, ageAtDiscovery: age, discoveryInstant: time.Now(), uid: uid}
	}
	return candidatesOf(seen), nil
}

func candidatesOf(seen map[string]candidateServer) []candidateServer {
	out := make([]candidateServer, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	return out
}
