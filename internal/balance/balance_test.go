package balance

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract/contracttest"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/logging"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/metrics"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/session"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/units"
)

var (
	alice = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	owner = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func tokens(t *testing.T, s string) *big.Int {
	t.Helper()
	v, err := units.ParseToken(s)
	require.NoError(t, err)
	return v
}

func TestFetch(t *testing.T) {
	gw := &contracttest.Gateway{}
	gw.SetBalance(alice, tokens(t, "10.5"))

	got, err := Fetch(context.Background(), gw, alice)
	require.NoError(t, err)
	assert.Equal(t, "10.5", got)

	got, err = Fetch(context.Background(), gw, owner)
	require.NoError(t, err)
	assert.Equal(t, "0.0", got)
}

func TestFetchError(t *testing.T) {
	gw := &contracttest.Gateway{BalanceErr: errors.New("connection refused")}
	_, err := Fetch(context.Background(), gw, alice)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFetchErrorKeepsCause(t *testing.T) {
	gw := &contracttest.Gateway{BalanceErr: context.DeadlineExceeded}
	_, err := Fetch(context.Background(), gw, alice)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	v := NewView(logging.Nop(), nil)
	gw = &contracttest.Gateway{OwnerErr: context.Canceled}
	_, err = v.RefreshOwner(context.Background(), &session.Session{Account: alice, Gateway: gw})
	assert.ErrorIs(t, err, ErrOwnerFetch)
	assert.ErrorIs(t, err, context.Canceled)
}

// heldGateway answers each BalanceOf only when the test hands it a value.
type heldGateway struct {
	*contracttest.Gateway
	pending chan chan *big.Int
}

func newHeldGateway() *heldGateway {
	return &heldGateway{Gateway: &contracttest.Gateway{}, pending: make(chan chan *big.Int)}
}

func (g *heldGateway) BalanceOf(ctx context.Context, _ common.Address) (*big.Int, error) {
	reply := make(chan *big.Int)
	g.pending <- reply
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type refreshResult struct {
	val string
	err error
}

func startRefresh(v *View, s *session.Session) <-chan refreshResult {
	out := make(chan refreshResult, 1)
	go func() {
		val, err := v.Refresh(context.Background(), s)
		out <- refreshResult{val, err}
	}()
	return out
}

func TestOlderFetchDoesNotOverwriteNewer(t *testing.T) {
	v := NewView(logging.Nop(), nil)
	gw := newHeldGateway()
	s := &session.Session{Account: alice, Gateway: gw}

	older := startRefresh(v, s)
	olderReply := <-gw.pending
	newer := startRefresh(v, s)
	newerReply := <-gw.pending

	newerReply <- tokens(t, "200")
	res := <-newer
	require.NoError(t, res.err)
	assert.Equal(t, "200.0", res.val)

	olderReply <- tokens(t, "100")
	res = <-older
	require.NoError(t, res.err)
	assert.Equal(t, "200.0", res.val, "late result reports the displayed value")
	assert.Equal(t, "200.0", v.Value())
}

func TestFetchInFlightAcrossResetIsDropped(t *testing.T) {
	v := NewView(logging.Nop(), nil)
	gw := newHeldGateway()
	s := &session.Session{Account: alice, Gateway: gw}

	pending := startRefresh(v, s)
	reply := <-gw.pending
	v.Reset()
	reply <- tokens(t, "9")
	<-pending

	assert.Equal(t, Initial, v.Value())
}

func TestViewInitial(t *testing.T) {
	v := NewView(logging.Nop(), nil)
	assert.Equal(t, "0", v.Value())
}

func TestRefreshWithoutSession(t *testing.T) {
	v := NewView(logging.Nop(), nil)

	got, err := v.Refresh(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Initial, got)

	got, err = v.Refresh(context.Background(), &session.Session{Account: alice})
	require.NoError(t, err, "no gateway is a no-op")
	assert.Equal(t, Initial, got)

	gw := &contracttest.Gateway{}
	got, err = v.Refresh(context.Background(), &session.Session{Gateway: gw})
	require.NoError(t, err, "no account is a no-op")
	assert.Equal(t, Initial, got)
	assert.Zero(t, gw.BalanceCalls())
}

func TestRefreshStaleOverBlank(t *testing.T) {
	logger, hook := test.NewNullLogger()
	mt := metrics.New()
	v := NewView(logrus.NewEntry(logger), mt)

	gw := &contracttest.Gateway{}
	gw.SetBalance(alice, tokens(t, "100"))
	s := &session.Session{Account: alice, Gateway: gw}

	got, err := v.Refresh(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "100.0", got)

	gw.SetBalanceErr(errors.New("node down"))
	got, err = v.Refresh(context.Background(), s)
	require.ErrorIs(t, err, ErrFetch)
	assert.Equal(t, "100.0", got, "previous value kept")
	assert.Equal(t, "100.0", v.Value())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "balance refresh failed", hook.LastEntry().Message)

	expected := `
# HELP prt_balance_refreshes_total Balance fetches by result.
# TYPE prt_balance_refreshes_total counter
prt_balance_refreshes_total{result="error"} 1
prt_balance_refreshes_total{result="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(mt.Registry(), strings.NewReader(expected), "prt_balance_refreshes_total"))
}

func TestOwnerSeparateSlot(t *testing.T) {
	v := NewView(logging.Nop(), nil)
	gw := &contracttest.Gateway{OwnerAddr: owner}
	gw.SetBalance(alice, tokens(t, "3"))
	s := &session.Session{Account: alice, Gateway: gw}

	_, ok := v.Owner()
	assert.False(t, ok)

	got, err := v.RefreshOwner(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, owner, got)
	assert.Equal(t, Initial, v.Value(), "owner fetch leaves the balance alone")

	gw.OwnerErr = errors.New("boom")
	got, err = v.RefreshOwner(context.Background(), s)
	assert.ErrorIs(t, err, ErrOwnerFetch)
	assert.NotErrorIs(t, err, ErrFetch)
	assert.Equal(t, owner, got)
}

func TestResetClearsEverything(t *testing.T) {
	v := NewView(logging.Nop(), nil)
	gw := &contracttest.Gateway{OwnerAddr: owner}
	gw.SetBalance(alice, tokens(t, "7"))
	s := &session.Session{Account: alice, Gateway: gw}

	_, _ = v.Refresh(context.Background(), s)
	_, _ = v.RefreshOwner(context.Background(), s)
	v.Reset()

	assert.Equal(t, Initial, v.Value())
	_, ok := v.Owner()
	assert.False(t, ok)
}
