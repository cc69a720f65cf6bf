// Package rpc chooses which configured JSON-RPC endpoint the wallet provider
// talks to.
package rpc

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoHealthyRPC is returned when no healthy RPC endpoint is available.
var ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")

// Algorithm defines how an RPC endpoint is selected.
type Algorithm string

const (
	AlgorithmFastest    Algorithm = "fastest"
	AlgorithmRoundRobin Algorithm = "round-robin"
	AlgorithmFailover   Algorithm = "failover"

	// Discard nodes more than this many blocks behind the best.
	staleBlockThreshold = 3
	// Cache winner for this duration before re-scoring.
	cacheTTL = 5 * time.Minute
)

// ParseAlgorithm validates a configured algorithm name. Empty means fastest.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch a := Algorithm(s); a {
	case "":
		return AlgorithmFastest, nil
	case AlgorithmFastest, AlgorithmRoundRobin, AlgorithmFailover:
		return a, nil
	default:
		return "", fmt.Errorf("unknown rpc algorithm %q (want fastest, round-robin or failover)", s)
	}
}

// Endpoint is one RPC URL with what probing learned about it.
type Endpoint struct {
	URL         string
	Latency     time.Duration
	BlockNumber uint64
	ChainID     uint64
	Healthy     bool // meaningful only when Checked
	Checked     bool
	Err         error
}

// Picker selects an endpoint according to its algorithm. It keeps state
// between calls (round-robin cursor, cached fastest winner) so one Picker
// should be shared by everything that connects.
type Picker struct {
	algo        Algorithm
	mu          sync.Mutex
	rrIndex     int
	cachedURL   string
	cacheExpiry time.Time
	now         func() time.Time
	onScore     func()
}

// NewPicker creates a Picker for algo.
func NewPicker(algo Algorithm) *Picker {
	return &Picker{algo: algo, now: time.Now}
}

// Algorithm returns the picker's algorithm.
func (p *Picker) Algorithm() Algorithm { return p.algo }

// OnScore registers a hook called each time the fastest algorithm scores
// candidates instead of answering from cache.
func (p *Picker) OnScore(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onScore = fn
}

// Invalidate drops the cached fastest winner.
func (p *Picker) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cachedURL = ""
}

// Pick selects an endpoint from endpoints.
func (p *Picker) Pick(endpoints []Endpoint) (*Endpoint, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoHealthyRPC
	}

	switch p.algo {
	case AlgorithmRoundRobin:
		return p.pickRoundRobin(endpoints)
	case AlgorithmFailover:
		return pickFailover(endpoints)
	default:
		return p.pickFastest(endpoints)
	}
}

func (p *Picker) pickFastest(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cachedURL != "" && p.now().Before(p.cacheExpiry) {
		for i := range endpoints {
			e := &endpoints[i]
			if e.URL == p.cachedURL && eligible(e) {
				return e, nil
			}
		}
	}

	if p.onScore != nil {
		p.onScore()
	}

	candidates := candidates(endpoints)
	if len(candidates) == 0 {
		return nil, ErrNoHealthyRPC
	}

	var bestBlock uint64
	for _, e := range candidates {
		if e.BlockNumber > bestBlock {
			bestBlock = e.BlockNumber
		}
	}

	var winner *Endpoint
	var bestScore float64
	for _, e := range candidates {
		if bestBlock > 0 && bestBlock-e.BlockNumber > staleBlockThreshold {
			continue
		}
		s := score(e, bestBlock)
		if winner == nil || s > bestScore {
			winner, bestScore = e, s
		}
	}
	if winner == nil {
		return nil, ErrNoHealthyRPC
	}

	p.cachedURL = winner.URL
	p.cacheExpiry = p.now().Add(cacheTTL)
	return winner, nil
}

func (p *Picker) pickRoundRobin(endpoints []Endpoint) (*Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	healthy := candidates(endpoints)
	if len(healthy) == 0 {
		return nil, ErrNoHealthyRPC
	}

	idx := p.rrIndex % len(healthy)
	p.rrIndex = (idx + 1) % len(healthy)
	return healthy[idx], nil
}

// pickFailover takes endpoints in configured order, skipping known-bad ones.
func pickFailover(endpoints []Endpoint) (*Endpoint, error) {
	for i := range endpoints {
		if e := &endpoints[i]; eligible(e) {
			return e, nil
		}
	}
	return nil, ErrNoHealthyRPC
}

// score favours low latency, then closeness to the best block.
func score(e *Endpoint, bestBlock uint64) float64 {
	var s float64
	if ms := e.Latency.Milliseconds(); ms > 0 {
		s += 1000.0 / float64(ms)
	} else if e.Latency > 0 {
		s += 1000.0
	}
	if bestBlock > 0 {
		s += float64(staleBlockThreshold) - float64(bestBlock-e.BlockNumber)
	}
	return s
}

func eligible(e *Endpoint) bool { return !e.Checked || e.Healthy }

// candidates returns the endpoints that have not been ruled out.
// Unchecked endpoints are always candidates.
func candidates(endpoints []Endpoint) []*Endpoint {
	var out []*Endpoint
	for i := range endpoints {
		if e := &endpoints[i]; eligible(e) {
			out = append(out, e)
		}
	}
	return out
}
