package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/balance"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/config"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/logging"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/metrics"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/provider"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/rpc"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/session"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/txflow"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/ui"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/wallet"
)

// readSecret prompts on stderr and reads a line without echo when stdin is a
// terminal. Piped input is read as a plain line.
func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newWalletManager() (*wallet.Manager, error) {
	ks, err := wallet.OpenKeystore(cfg.Dir(), readSecret)
	if err != nil {
		return nil, err
	}
	return wallet.NewManager(
		wallet.WithStore(wallet.NewConfigStore(cfg)),
		wallet.WithKeystore(ks),
	), nil
}

// newApprover decides how account requests are answered: automatically with
// --yes or auto_approve, otherwise by asking on the terminal.
func newApprover() provider.Approver {
	if assumeYes || cfg.AutoApprove {
		return provider.AutoApprove()
	}
	return provider.ApproverFunc(func(_ context.Context, account common.Address) (bool, error) {
		return ui.Confirm(os.Stdin, os.Stderr,
			fmt.Sprintf("Allow prt to use account %s?", session.ShortAddress(account)))
	})
}

// dapp is everything a front end needs: a session manager, the balance
// display and the two transaction forms.
type dapp struct {
	log      *logrus.Logger
	metrics  *metrics.Metrics
	sessions *session.Manager
	balance  *balance.View
	forms    *txflow.Forms
}

func newDapp(log *logrus.Logger, approver provider.Approver) (*dapp, error) {
	algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
	if err != nil {
		return nil, err
	}
	mgr, err := newWalletManager()
	if err != nil {
		return nil, err
	}

	mt := metrics.New()
	detector := &provider.LocalDetector{
		Config:   cfg,
		Wallets:  mgr,
		Picker:   rpc.NewPicker(algo),
		Approver: approver,
		Log:      logging.Component(log, "provider"),
	}
	sessions := session.NewManager(detector,
		session.WithChainID(cfg.ChainID),
		session.WithGatewayFactory(session.TokenFactory(cfg.ReceiptPoll(), logging.Component(log, "contract"))),
		session.WithLogger(logging.Component(log, "session")),
		session.WithMetrics(mt),
	)
	view := balance.NewView(logging.Component(log, "balance"), mt)
	forms := txflow.NewForms(sessions, view,
		txflow.WithSettleDelay(cfg.SettleDelay()),
		txflow.WithConfirmTimeout(cfg.ConfirmTimeout()),
		txflow.WithLogger(logging.Component(log, "txflow")),
		txflow.WithMetrics(mt),
	)
	return &dapp{log: log, metrics: mt, sessions: sessions, balance: view, forms: forms}, nil
}

// connect runs the account request with the standard timeout.
func (d *dapp) connect(ctx context.Context) (*session.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	return d.sessions.Connect(ctx)
}
