package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/balance"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/provider"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/session"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/txflow"
)

// Screen text.
const (
	AppTitle        = "Phillip Reward Token"
	ConnectLabel    = "Connect Wallet"
	ConnectingLabel = "Connecting..."
	DisconnectedMsg = "Please connect your wallet to use the dApp."
	BalanceTitle    = "Your Token Balance"
)

// AppDeps are the components the dApp screen drives.
type AppDeps struct {
	Ctx      context.Context
	Sessions *session.Manager
	Balance  *balance.View
	Forms    *txflow.Forms
}

type (
	connectDoneMsg struct{ err error }
	sessionMsg     struct{ s *session.Session }
	balanceMsg     struct {
		value string
		err   error
	}
	formMsg       txflow.Event
	submitDoneMsg struct {
		form string
		err  error
	}
	spinTickMsg struct{}
)

const (
	noFocus    = -1
	inputCount = 4 // target and amount for each form
)

// AppModel is the Bubble Tea model for the dApp screen.
type AppModel struct {
	deps   AppDeps
	events chan tea.Msg
	unsubs []func()

	sess       *session.Session
	balance    string
	snaps      map[string]txflow.Snapshot
	inputs     [inputCount]string
	focus      int
	connecting bool
	notice     string
	noticeErr  bool
	frame      int
	width      int
}

// NewApp builds the model and subscribes it to session and form changes.
// Call Close when the program exits.
func NewApp(deps AppDeps) *AppModel {
	if deps.Ctx == nil {
		deps.Ctx = context.Background()
	}
	m := &AppModel{
		deps:    deps,
		events:  make(chan tea.Msg, 64),
		balance: deps.Balance.Value(),
		snaps:   make(map[string]txflow.Snapshot),
		focus:   noFocus,
		sess:    deps.Sessions.Current(),
	}
	for _, s := range deps.Forms.Snapshots() {
		m.snaps[s.Form] = s
	}
	m.unsubs = append(m.unsubs,
		deps.Sessions.Subscribe(func(s *session.Session) { m.push(sessionMsg{s}) }),
		deps.Forms.Subscribe(func(ev txflow.Event) { m.push(formMsg(ev)) }),
	)
	return m
}

// push never blocks the publisher; the screen re-reads state on the next
// message anyway.
func (m *AppModel) push(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

// Close unsubscribes from session and form changes.
func (m *AppModel) Close() {
	for _, u := range m.unsubs {
		u()
	}
}

func (m AppModel) waitEvent() tea.Cmd {
	return func() tea.Msg { return <-m.events }
}

func spinTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return spinTickMsg{} })
}

func (m AppModel) Init() tea.Cmd { return tea.Batch(m.waitEvent(), spinTick()) }

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)

	case connectDoneMsg:
		m.connecting = false
		if msg.err != nil {
			m.setNotice(connectNotice(msg.err), true)
		} else {
			m.setNotice("", false)
		}

	case sessionMsg:
		m.sess = msg.s
		if msg.s == nil {
			m.balance = balance.Initial
			m.focus = noFocus
			return m, m.waitEvent()
		}
		return m, tea.Batch(m.waitEvent(), m.refreshCmd(msg.s))

	case balanceMsg:
		m.balance = msg.value
		if msg.err != nil {
			m.setNotice("Could not fetch balance", true)
		}

	case formMsg:
		m.snaps[msg.Form] = msg.Snapshot
		m.balance = m.deps.Balance.Value()
		switch msg.State {
		case txflow.Failed.String():
			m.setNotice(msg.Notice, true)
		case txflow.Succeeded.String():
			m.setNotice(msg.Label, false)
		}
		return m, m.waitEvent()

	case submitDoneMsg:
		if msg.err != nil {
			m.setNotice(submitNotice(msg.err), true)
		}

	case spinTickMsg:
		m.frame++
		return m, spinTick()
	}
	return m, nil
}

func (m AppModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		if m.sess != nil {
			m.focus++
			if m.focus >= inputCount {
				m.focus = noFocus
			}
		}
		return m, nil
	case "shift+tab":
		if m.sess != nil {
			m.focus--
			if m.focus < noFocus {
				m.focus = inputCount - 1
			}
		}
		return m, nil
	case "esc":
		m.focus = noFocus
		return m, nil
	case "enter":
		if m.focus == noFocus {
			return m, nil
		}
		return m, m.submitCmd(m.focus / 2)
	}

	if m.focus != noFocus {
		switch key.Type {
		case tea.KeyBackspace:
			in := []rune(m.inputs[m.focus])
			if len(in) > 0 {
				m.inputs[m.focus] = string(in[:len(in)-1])
			}
		case tea.KeyRunes, tea.KeySpace:
			m.inputs[m.focus] += string(key.Runes)
		}
		return m, nil
	}

	switch key.String() {
	case "c":
		if m.connecting || m.sess != nil {
			return m, nil
		}
		m.connecting = true
		m.setNotice("", false)
		return m, m.connectCmd()
	case "r":
		if m.sess != nil {
			return m, m.refreshCmd(m.sess)
		}
	}
	return m, nil
}

func (m *AppModel) setNotice(text string, isErr bool) {
	m.notice, m.noticeErr = text, isErr
}

func (m AppModel) connectCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.deps.Sessions.Connect(m.deps.Ctx)
		return connectDoneMsg{err}
	}
}

func (m AppModel) refreshCmd(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		v, err := m.deps.Balance.Refresh(m.deps.Ctx, s)
		return balanceMsg{value: v, err: err}
	}
}

func (m AppModel) submitCmd(formIdx int) tea.Cmd {
	form := m.deps.Forms.All()[formIdx]
	target, amount := m.inputs[formIdx*2], m.inputs[formIdx*2+1]
	return func() tea.Msg {
		_, err := form.Submit(m.deps.Ctx, target, amount)
		return submitDoneMsg{form: form.Kind().Name, err: err}
	}
}

func connectNotice(err error) string {
	switch {
	case errors.Is(err, provider.ErrUnavailable):
		return "No wallet available. Add one with `prt wallet add` and configure an RPC endpoint."
	case errors.Is(err, provider.ErrUserRejected):
		return "Connection request rejected."
	case errors.Is(err, session.ErrWrongNetwork):
		return "Wallet is on the wrong network."
	}
	return "Could not connect wallet."
}

func submitNotice(err error) string {
	var verr *txflow.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Notice
	case errors.Is(err, txflow.ErrNotConnected):
		return DisconnectedMsg
	case errors.Is(err, txflow.ErrBusy):
		return "A transaction is already pending."
	}
	return err.Error()
}

func (m AppModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.header() + "\n\n")

	if m.sess == nil {
		sb.WriteString(Info(DisconnectedMsg) + "\n")
	} else {
		sb.WriteString(KeyValueBlock(BalanceTitle, [][2]string{
			{"Account", m.sess.Account.Hex()},
			{"Balance", m.balance + " " + contract.TokenSymbol},
		}) + "\n")
		var cards []string
		for i, f := range m.deps.Forms.All() {
			cards = append(cards, m.formCard(i, f.Kind()))
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n")
	}

	if m.notice != "" {
		if m.noticeErr {
			sb.WriteString("\n" + Err(m.notice) + "\n")
		} else {
			sb.WriteString("\n" + Success(m.notice) + "\n")
		}
	}
	sb.WriteString("\n" + Meta(m.help()) + "\n")
	return sb.String()
}

func (m AppModel) header() string {
	title := StyleBrand.Render(AppTitle)
	var right string
	switch {
	case m.sess != nil:
		right = Addr(m.sess.ShortAccount())
	case m.connecting:
		right = Button(spinnerFrames[m.frame%len(spinnerFrames)]+" "+ConnectingLabel, true)
	default:
		right = Button(ConnectLabel, false)
	}
	gap := 4
	if m.width > 0 {
		if g := m.width - lipgloss.Width(title) - lipgloss.Width(right); g > gap {
			gap = g
		}
	}
	return title + strings.Repeat(" ", gap) + right
}

func (m AppModel) formCard(idx int, k txflow.Kind) string {
	snap := m.snaps[k.Name]
	label := snap.Label
	if label == "" {
		label = k.Verb
	}
	if snap.Disabled {
		label = spinnerFrames[m.frame%len(spinnerFrames)] + " " + label
	}

	lines := []string{
		StyleTitle.Render(k.Title),
		m.input(idx*2, k.TargetLabel, 48),
		m.input(idx*2+1, k.AmountLabel, 48),
		Button(label, snap.Disabled),
	}
	return StyleBorder.Render(strings.Join(lines, "\n"))
}

func (m AppModel) input(i int, placeholder string, width int) string {
	text := m.inputs[i]
	body := StyleValue.Render(text)
	if text == "" {
		body = StyleMeta.Render(placeholder)
	}
	if i == m.focus {
		body += "█"
		return StyleFocused.Width(width).Render(body)
	}
	return StyleBorder.Width(width).Render(body)
}

func (m AppModel) help() string {
	switch {
	case m.sess == nil:
		return "c connect · ctrl+c quit"
	case m.focus == noFocus:
		return "tab focus input · r refresh balance · ctrl+c quit"
	}
	return "enter submit · tab/shift+tab move · esc leave input · ctrl+c quit"
}

// RunApp runs the dApp screen until the user quits.
func RunApp(deps AppDeps) error {
	m := NewApp(deps)
	defer m.Close()
	if _, err := tea.NewProgram(*m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return nil
}
