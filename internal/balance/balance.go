// Package balance reads the connected account's PRT balance and keeps the
// last good value for display.
package balance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/metrics"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/session"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/units"
)

// Initial is shown before the first successful fetch.
const Initial = "0"

var (
	// ErrFetch wraps a gateway failure while reading the balance.
	ErrFetch = errors.New("fetching balance failed")
	// ErrOwnerFetch wraps a gateway failure while reading the owner.
	ErrOwnerFetch = errors.New("fetching owner failed")
)

// Fetch reads balanceOf(account) and formats it with the token decimals.
func Fetch(ctx context.Context, gw contract.Gateway, account common.Address) (string, error) {
	v, err := gw.BalanceOf(ctx, account)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return units.FormatToken(v), nil
}

// View holds the displayed balance. A failed refresh leaves the previous
// value in place, and a fetch that finishes after a newer one has been
// applied is dropped.
type View struct {
	log     *logrus.Entry
	metrics *metrics.Metrics

	mu      sync.RWMutex
	value   string
	issued  uint64 // sequence of the latest fetch started
	applied uint64 // sequence of the fetch that produced value
	owner   common.Address
	ownerOK bool
}

// NewView returns a View showing Initial.
func NewView(log *logrus.Entry, mt *metrics.Metrics) *View {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &View{
		log:     log.WithField("component", "balance"),
		metrics: mt,
		value:   Initial,
	}
}

// Value returns the displayed balance.
func (v *View) Value() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Refresh fetches the balance for s and stores it. With no session,
// gateway or account it does nothing and returns the current value.
func (v *View) Refresh(ctx context.Context, s *session.Session) (string, error) {
	if s == nil || s.Gateway == nil || s.Account == (common.Address{}) {
		return v.Value(), nil
	}

	v.mu.Lock()
	v.issued++
	seq := v.issued
	v.mu.Unlock()

	val, err := Fetch(ctx, s.Gateway, s.Account)
	if err != nil {
		v.metrics.BalanceRefresh(metrics.ResultError)
		v.log.WithError(err).WithField("account", s.Account.Hex()).Warn("balance refresh failed")
		return v.Value(), err
	}

	v.mu.Lock()
	if seq <= v.applied {
		current := v.value
		v.mu.Unlock()
		v.metrics.BalanceRefresh(metrics.ResultOK)
		v.log.WithField("account", s.Account.Hex()).Debug("stale balance dropped")
		return current, nil
	}
	v.value, v.applied = val, seq
	v.mu.Unlock()
	v.metrics.BalanceRefresh(metrics.ResultOK)
	v.log.WithFields(logrus.Fields{"account": s.Account.Hex(), "balance": val}).Debug("balance refreshed")
	return val, nil
}

// Reset puts the view back to Initial and forgets the owner. Fetches
// already in flight are dropped when they land.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = Initial
	v.applied = v.issued
	v.owner, v.ownerOK = common.Address{}, false
}

// Owner returns the last fetched contract owner.
func (v *View) Owner() (common.Address, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.owner, v.ownerOK
}

// RefreshOwner reads OWNER() through the session's gateway. It has its own
// slot and never touches the balance value.
func (v *View) RefreshOwner(ctx context.Context, s *session.Session) (common.Address, error) {
	if s == nil || s.Gateway == nil {
		owner, _ := v.Owner()
		return owner, nil
	}
	owner, err := s.Gateway.Owner(ctx)
	if err != nil {
		v.log.WithError(err).Warn("owner fetch failed")
		prev, _ := v.Owner()
		return prev, fmt.Errorf("%w: %w", ErrOwnerFetch, err)
	}

	v.mu.Lock()
	v.owner, v.ownerOK = owner, true
	v.mu.Unlock()
	return owner, nil
}

// Follow refreshes the view whenever m connects and resets it on
// disconnect. The returned function stops following.
func (v *View) Follow(ctx context.Context, m *session.Manager) func() {
	return m.Subscribe(func(s *session.Session) {
		if s == nil {
			v.Reset()
			return
		}
		_, _ = v.Refresh(ctx, s)
	})
}
