// Package txflow runs the transaction lifecycle behind each action form:
// Idle, then Pending while the transaction is sent and mined, then
// Succeeded or Failed, then back to Idle.
package txflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/chain"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/config"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/metrics"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/session"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/units"
)

// Errors.
var (
	ErrNotConnected = errors.New("wallet not connected")
	ErrBusy         = errors.New("a transaction is already pending")
)

// ValidationError is returned when the inputs are missing or malformed.
// Notice is the text shown to the user.
type ValidationError struct {
	Notice string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return e.Notice
	}
	return e.Notice + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// State is where a form is in the lifecycle.
type State int

const (
	Idle State = iota
	Pending
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sessions supplies the current session. *session.Manager satisfies it.
type Sessions interface {
	Current() *session.Session
}

// Refresher reloads the balance after a success. *balance.View satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, s *session.Session) (string, error)
}

// Result is the outcome of one submission.
type Result struct {
	Hash    common.Hash
	Receipt *chain.Receipt
	Err     error
}

// Snapshot is a form's state as displayed.
type Snapshot struct {
	Form     string `json:"form"`
	State    string `json:"state"`
	Label    string `json:"label"`
	Disabled bool   `json:"disabled"`
	Notice   string `json:"notice,omitempty"`
	TxHash   string `json:"tx_hash,omitempty"`
}

// Event is published on every state change and on validation notices.
type Event struct {
	Snapshot
	Time time.Time `json:"time"`
}

// Form is one action form. Submissions on a form are serialized; separate
// forms run independently.
type Form struct {
	kind      Kind
	sessions  Sessions
	refresher Refresher
	settle    time.Duration
	timeout   time.Duration
	log       *logrus.Entry
	metrics   *metrics.Metrics

	mu     sync.Mutex
	state  State
	gen    uint64
	notice string
	hash   common.Hash

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Form.
type Option func(*Form)

// WithSettleDelay sets how long Succeeded is shown before returning to Idle.
func WithSettleDelay(d time.Duration) Option {
	return func(f *Form) { f.settle = d }
}

// WithConfirmTimeout bounds the wait for the receipt. 0 waits forever.
func WithConfirmTimeout(d time.Duration) Option {
	return func(f *Form) { f.timeout = d }
}

// WithLogger sets the log entry.
func WithLogger(log *logrus.Entry) Option {
	return func(f *Form) { f.log = log }
}

// WithMetrics records submissions.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(f *Form) { f.metrics = mt }
}

// NewForm creates an Idle form. refresher may be nil.
func NewForm(kind Kind, sessions Sessions, refresher Refresher, opts ...Option) *Form {
	f := &Form{
		kind:      kind,
		sessions:  sessions,
		refresher: refresher,
		settle:    config.DefaultSettleDelay,
		log:       logrus.NewEntry(logrus.StandardLogger()),
		subs:      make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.WithFields(logrus.Fields{"component": "txflow", "form": kind.Name})
	return f
}

// Kind returns the form's kind.
func (f *Form) Kind() Kind { return f.kind }

// State returns the current state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Label is the text on the submit control.
func (f *Form) Label() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.labelLocked()
}

// Disabled reports whether the submit control is disabled. It is true
// exactly while a submission is Pending.
func (f *Form) Disabled() bool {
	return f.State() == Pending
}

// Snapshot returns the displayed state.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Form) labelLocked() string {
	switch f.state {
	case Pending:
		return LabelPending
	case Succeeded:
		return LabelSucceeded
	}
	return f.kind.Verb
}

func (f *Form) snapshotLocked() Snapshot {
	s := Snapshot{
		Form:     f.kind.Name,
		State:    f.state.String(),
		Label:    f.labelLocked(),
		Disabled: f.state == Pending,
		Notice:   f.notice,
	}
	if f.hash != (common.Hash{}) {
		s.TxHash = f.hash.Hex()
	}
	return s
}

// Submit validates the inputs and, when they are good, moves the form to
// Pending and sends the transaction in the background. amount is a decimal
// token amount such as "10.5". The returned channel yields the outcome once
// the form has left Pending.
func (f *Form) Submit(ctx context.Context, target, amount string) (<-chan Result, error) {
	f.mu.Lock()
	if f.state == Pending {
		f.mu.Unlock()
		return nil, ErrBusy
	}

	to, value, err := f.parse(target, amount)
	if err != nil {
		f.notice = err.(*ValidationError).Notice
		ev := f.eventLocked()
		f.mu.Unlock()
		f.metrics.TxRejected(f.kind.Name, metrics.ResultInvalid)
		f.log.WithError(err).Info("submission rejected")
		f.publish(ev)
		return nil, err
	}

	sess := f.sessions.Current()
	if sess == nil || sess.Gateway == nil {
		f.mu.Unlock()
		return nil, ErrNotConnected
	}

	f.gen++
	gen := f.gen
	f.state = Pending
	f.notice = ""
	f.hash = common.Hash{}
	ev := f.eventLocked()
	f.mu.Unlock()

	f.metrics.TxStarted(f.kind.Name)
	f.log.WithFields(logrus.Fields{
		"target": to.Hex(),
		"amount": amount,
	}).Info("submitting transaction")
	f.publish(ev)

	done := make(chan Result, 1)
	go f.run(context.WithoutCancel(ctx), gen, sess, to, value, done)
	return done, nil
}

func (f *Form) parse(target, amount string) (common.Address, *big.Int, error) {
	target, amount = strings.TrimSpace(target), strings.TrimSpace(amount)
	if target == "" || amount == "" {
		return common.Address{}, nil, &ValidationError{Notice: f.kind.InvalidNotice}
	}
	if !common.IsHexAddress(target) {
		return common.Address{}, nil, &ValidationError{
			Notice: f.kind.InvalidNotice,
			Err:    fmt.Errorf("%q is not an address", target),
		}
	}
	value, err := units.ParseToken(amount)
	if err != nil {
		return common.Address{}, nil, &ValidationError{Notice: f.kind.InvalidNotice, Err: err}
	}
	return common.HexToAddress(target), value, nil
}

func (f *Form) run(ctx context.Context, gen uint64, sess *session.Session, to common.Address, amount *big.Int, done chan<- Result) {
	defer close(done)
	start := time.Now()

	res := f.execute(ctx, sess, to, amount)
	elapsed := time.Since(start)
	log := f.log.WithField("elapsed", elapsed.Round(time.Millisecond))
	if res.Hash != (common.Hash{}) {
		log = log.WithField("tx", res.Hash.Hex())
	}

	if res.Err != nil {
		result := metrics.ResultError
		if errors.Is(res.Err, contract.ErrReverted) {
			result = metrics.ResultReverted
		}
		f.metrics.TxFinished(f.kind.Name, result, elapsed)
		log.WithError(res.Err).Error("transaction failed")

		f.mu.Lock()
		f.state = Failed
		f.notice = f.kind.FailureNotice
		f.hash = res.Hash
		failed := f.eventLocked()
		f.state = Idle
		idle := f.eventLocked()
		f.mu.Unlock()

		f.publish(failed)
		f.publish(idle)
		done <- res
		return
	}

	f.metrics.TxFinished(f.kind.Name, metrics.ResultOK, elapsed)
	log.Info("transaction confirmed")

	// Subscribers read the balance when they see Succeeded, so it must
	// already be current.
	if f.refresher != nil {
		_, _ = f.refresher.Refresh(ctx, sess)
	}

	f.mu.Lock()
	f.state = Succeeded
	f.hash = res.Hash
	ev := f.eventLocked()
	f.mu.Unlock()
	f.publish(ev)

	time.AfterFunc(f.settle, func() { f.settleIdle(gen) })
	done <- res
}

func (f *Form) execute(ctx context.Context, sess *session.Session, to common.Address, amount *big.Int) Result {
	handle, err := f.kind.send(ctx, sess.Gateway, to, amount)
	if err != nil {
		return Result{Err: err}
	}
	res := Result{Hash: handle.Hash()}

	waitCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	res.Receipt, res.Err = handle.Wait(waitCtx)
	return res
}

// settleIdle returns a Succeeded form to Idle unless a newer submission has
// started since.
func (f *Form) settleIdle(gen uint64) {
	f.mu.Lock()
	if f.gen != gen || f.state != Succeeded {
		f.mu.Unlock()
		return
	}
	f.state = Idle
	ev := f.eventLocked()
	f.mu.Unlock()
	f.publish(ev)
}

// Subscribe calls fn with every event the form publishes. The returned
// function unsubscribes.
func (f *Form) Subscribe(fn func(Event)) func() {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	return func() {
		f.subMu.Lock()
		defer f.subMu.Unlock()
		delete(f.subs, id)
	}
}

func (f *Form) eventLocked() Event {
	return Event{Snapshot: f.snapshotLocked(), Time: time.Now()}
}

func (f *Form) publish(ev Event) {
	f.subMu.Lock()
	fns := make([]func(Event), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
