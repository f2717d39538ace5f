package cluster

import "sort"

// hostRegistry tracks three views of the host universe: known, and two
// disjoint subsets of it, discovered and timed-out. It is only ever touched from the Cluster's
// single event-loop goroutine (see cluster.go's spin), so it needs no
// locking of its own.
type hostRegistry struct {
	known      map[Host]struct{}
	discovered map[Host]struct{}
	timedOut   map[Host]struct{}
}

func newHostRegistry() *hostRegistry {
	return &hostRegistry{
		known:      make(map[Host]struct{}),
		discovered: make(map[Host]struct{}),
		timedOut:   make(map[Host]struct{}),
	}
}

// insertKnown adds host to the known set. Idempotent.
func (r *hostRegistry) insertKnown(host Host) {
	r.known[host] = struct{}{}
}

// markDiscovered adds host to discovered (and known, since discovered ⊆ known).
func (r *hostRegistry) markDiscovered(host Host) {
	r.known[host] = struct{}{}
	r.discovered[host] = struct{}{}
	delete(r.timedOut, host)
}

// markTimedOut removes host from discovered and adds it to timedOut,
// preserving the invariant discovered ∩ timedOut = ∅.
func (r *hostRegistry) markTimedOut(host Host) {
	delete(r.discovered, host)
	r.timedOut[host] = struct{}{}
}

// removeDiscovered removes host from discovered without marking it
// timed-out, used by the discovery loop on a re-handshake failure and by
// the channel-close eviction path: neither populates timedOut, which only
// failed connect attempts do.
func (r *hostRegistry) removeDiscovered(host Host) {
	delete(r.discovered, host)
}

// resetTimeouts empties the timed-out set, run at the end of every
// discovery sweep so failed hosts are retried every heartbeat.
func (r *hostRegistry) resetTimeouts() {
	r.timedOut = make(map[Host]struct{})
}

// candidates returns every candidate host, sorted deterministically so
// that repeated calls against the same registry state are reproducible.
func (r *hostRegistry) candidates() []Host {
	var out []Host
	for h := range r.known {
		if _, disc := r.discovered[h]; disc {
			continue
		}
		if _, to := r.timedOut[h]; to {
			continue
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// isDiscovered reports whether host currently has a pooled connection.
func (r *hostRegistry) isDiscovered(host Host) bool {
	_, ok := r.discovered[host]
	return ok
}

// foldHosts inserts every parseable "host:port" string from hosts into the
// known set; a malformed entry is swallowed silently so it doesn't poison
// the sweep.
func (r *hostRegistry) foldHosts(hosts []string, logger SLogger) {
	for _, s := range hosts {
		h, err := ParseHost(s)
		if err != nil {
			logger.Debug("sdamFoldHostSkipped", "raw", s, "err", err)
			continue
		}
		r.insertKnown(h)
	}
}
