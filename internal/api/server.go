// Package api serves the dApp over HTTP: session control, balance, owner,
// the two action forms, a websocket event stream and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/balance"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/config"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/contract"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/metrics"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/provider"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/session"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/txflow"
)

// Server holds the components the handlers act on.
type Server struct {
	Sessions *session.Manager
	Balance  *balance.View
	Forms    *txflow.Forms
	Metrics  *metrics.Metrics
	Log      *logrus.Entry

	hub *hub
}

// New creates a Server and starts relaying session and form events.
func New(sessions *session.Manager, view *balance.View, forms *txflow.Forms, mt *metrics.Metrics, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "api")
	return &Server{
		Sessions: sessions,
		Balance:  view,
		Forms:    forms,
		Metrics:  mt,
		Log:      log,
		hub:      newHub(sessions, forms, log),
	}
}

// Close stops relaying events and disconnects websocket clients.
func (s *Server) Close() { s.hub.close() }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Route("/api", func(r chi.Router) {
		r.Use(sameOriginOnly)
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/connect", s.connect)
		r.Post("/disconnect", s.disconnect)
		r.Get("/session", s.session)
		r.Get("/balance", s.balance)
		r.Post("/balance/refresh", s.refreshBalance)
		r.Get("/owner", s.owner)
		r.Get("/forms", s.forms)
		r.Post("/forms/{name}/submit", s.submit)
		r.Get("/events", s.events)
	})
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}
	return r
}

type sessionResponse struct {
	Connected    bool   `json:"connected"`
	Account      string `json:"account,omitempty"`
	ShortAccount string `json:"short_account,omitempty"`
	ChainID      string `json:"chain_id,omitempty"`
}

func sessionBody(sess *session.Session) sessionResponse {
	if sess == nil {
		return sessionResponse{}
	}
	out := sessionResponse{
		Connected:    true,
		Account:      sess.Account.Hex(),
		ShortAccount: sess.ShortAccount(),
	}
	if sess.ChainID != nil {
		out.ChainID = sess.ChainID.String()
	}
	return out
}

type errorResponse struct {
	Error  string `json:"error"`
	Notice string `json:"notice,omitempty"`
}

type submitRequest struct {
	Target string `json:"target"`
	Amount string `json:"amount"`
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.ConnectTimeout)
	defer cancel()
	sess, err := s.Sessions.Connect(ctx)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionBody(sess))
}

func (s *Server) disconnect(w http.ResponseWriter, _ *http.Request) {
	s.Sessions.Disconnect()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sessionBody(s.Sessions.Current()))
}

func (s *Server) balance(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"balance": s.Balance.Value(),
		"symbol":  contract.TokenSymbol,
	})
}

func (s *Server) refreshBalance(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Current()
	if sess == nil {
		s.fail(w, txflow.ErrNotConnected)
		return
	}
	val, err := s.Balance.Refresh(r.Context(), sess)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":   err.Error(),
			"balance": val,
			"symbol":  contract.TokenSymbol,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": val, "symbol": contract.TokenSymbol})
}

func (s *Server) owner(w http.ResponseWriter, r *http.Request) {
	sess := s.Sessions.Current()
	if sess == nil {
		s.fail(w, txflow.ErrNotConnected)
		return
	}
	owner, err := s.Balance.RefreshOwner(r.Context(), sess)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"owner": owner.Hex()})
}

func (s *Server) forms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Forms.Snapshots())
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	form := s.Forms.Get(chi.URLParam(r, "name"))
	if form == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown form"})
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if _, err := form.Submit(r.Context(), req.Target, req.Amount); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, form.Snapshot())
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var verr *txflow.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, session.ErrWrongNetwork),
		errors.Is(err, txflow.ErrBusy),
		errors.Is(err, txflow.ErrNotConnected):
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	body := errorResponse{Error: err.Error()}
	var verr *txflow.ValidationError
	if errors.As(err, &verr) {
		body.Notice = verr.Notice
	}
	writeJSON(w, statusFor(err), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sameOrigin reports whether a browser request comes from the page this
// server serves. Requests without an Origin header are not from a browser
// page and pass.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func sameOriginOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sameOrigin(r) {
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "cross-origin request refused"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"elapsed":    time.Since(start).Round(time.Millisecond),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}
