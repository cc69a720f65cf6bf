package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/chain"
)

// probeTimeout bounds a single endpoint probe.
const probeTimeout = 5 * time.Second

// Probe pings url and reads its chain ID. The endpoint is healthy when both
// calls succeed and, if wantChainID is non-zero, the node serves that chain.
func Probe(ctx context.Context, url string, wantChainID uint64) Endpoint {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	c := chain.NewEVMClient(url)
	ep := Endpoint{URL: url, Checked: true}

	ep.Latency, ep.BlockNumber, ep.Err = c.Ping(ctx)
	if ep.Err != nil {
		return ep
	}
	id, err := c.ChainID(ctx)
	if err != nil {
		ep.Err = err
		return ep
	}
	ep.ChainID = id.Uint64()
	if wantChainID != 0 && ep.ChainID != wantChainID {
		ep.Err = fmt.Errorf("serves chain %d, want %d", ep.ChainID, wantChainID)
		return ep
	}
	ep.Healthy = true
	return ep
}

// ProbeAll probes every url in parallel. Results keep the input order.
func ProbeAll(ctx context.Context, urls []string, wantChainID uint64) []Endpoint {
	out := make([]Endpoint, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(idx int, url string) {
			defer wg.Done()
			out[idx] = Probe(ctx, url, wantChainID)
		}(i, u)
	}
	wg.Wait()
	return out
}

// Select probes urls and returns the one picker chooses. A single URL is
// returned without probing; the caller's first RPC call will surface any
// problem with it.
func Select(ctx context.Context, picker *Picker, urls []string, wantChainID uint64, log *logrus.Entry) (string, error) {
	switch len(urls) {
	case 0:
		return "", ErrNoHealthyRPC
	case 1:
		return urls[0], nil
	}

	endpoints := ProbeAll(ctx, urls, wantChainID)
	for _, ep := range endpoints {
		entry := log.WithFields(logrus.Fields{
			"url":     ep.URL,
			"latency": ep.Latency,
			"block":   ep.BlockNumber,
		})
		if ep.Err != nil {
			entry.WithError(ep.Err).Debug("rpc endpoint unhealthy")
			continue
		}
		entry.Debug("rpc endpoint probed")
	}

	winner, err := picker.Pick(endpoints)
	if err != nil {
		return "", err
	}
	log.WithFields(logrus.Fields{
		"url":       winner.URL,
		"algorithm": picker.Algorithm(),
	}).Info("rpc endpoint selected")
	return winner.URL, nil
}
