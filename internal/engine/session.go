package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dshills/lynxcheck/internal/metrics"
	"github.com/dshills/lynxcheck/internal/task"
	"github.com/dshills/lynxcheck/pkg/types"
)

const closeTimeout = time.Second

var (
	// ErrProtocol marks a message that is illegal for the session state
	ErrProtocol = errors.New("protocol violation")
	// ErrService marks an explicit error reported by the service
	ErrService = errors.New("service error")
	// ErrConnection marks a transport failure
	ErrConnection = errors.New("connection failed")
)

type state int

const (
	stateSocketOpened state = iota
	stateConnEstablished
	stateSubmitConfirmed
)

func (s state) String() string {
	switch s {
	case stateSocketOpened:
		return "socket-opened"
	case stateConnEstablished:
		return "conn-established"
	case stateSubmitConfirmed:
		return "submit-confirmed"
	}
	return "unknown"
}

// SessionConfig configures a Session
type SessionConfig struct {
	Endpoint string
	Profile  Profile
	Auth     Credentialer
	Dialer   Dialer
	Policy   ProtocolErrorPolicy
	Logger   *zap.Logger
	Metrics  *metrics.Collector
}

// Session is one connection to the checking service that serves tasks
// until its source runs dry
type Session struct {
	endpoint string
	profile  Profile
	auth     Credentialer
	dialer   Dialer
	policy   ProtocolErrorPolicy
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// NewSession creates a session. Nothing is dialed until Run.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Dialer == nil {
		cfg.Dialer = NewDialer(DialerConfig{Logger: cfg.Logger})
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Session{
		endpoint: cfg.Endpoint,
		profile:  cfg.Profile.WithDefaults(),
		auth:     cfg.Auth,
		dialer:   cfg.Dialer,
		policy:   cfg.Policy,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

type frame struct {
	data []byte
	err  error
}

// current is the task being served and what has been received for it
type current struct {
	task   *task.Task
	token  string
	alerts []types.Alert
	log    strings.Builder
}

func (s *Session) begin(t *task.Task) *current {
	c := &current{task: t, token: debugToken(t.Text())}
	s.logger.Debug("starting task", zap.String("token", c.token))
	return c
}

// Run pulls tasks from src and checks them over one connection.
// It returns nil once src is empty and the connection closed normally.
func (s *Session) Run(ctx context.Context, src task.Source) error {
	t := nextLive(src)
	if t == nil {
		return nil
	}
	cur := s.begin(t)

	var credential string
	if s.auth != nil {
		credential = s.auth.Credential(ctx)
	}
	conn, err := s.dialer.Dial(ctx, s.endpoint, s.profile.SocketHeader(credential))
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConnection, err)
		s.abandon(cur, err, "dial")
		return err
	}
	s.logger.Debug("socket opened", zap.String("token", cur.token))

	inbound := make(chan frame)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go readLoop(conn, inbound, done, &wg)
	defer func() {
		close(done)
		_ = conn.Close()
		wg.Wait()
	}()

	st := stateSocketOpened
	if err := s.send(conn, newInitialMessage()); err != nil {
		return s.fail(conn, cur, err, "write")
	}

	for {
		var f frame
		select {
		case <-ctx.Done():
			return s.fail(conn, cur, ctx.Err(), "cancelled")
		case f = <-inbound:
		}
		if f.err != nil {
			return s.fail(conn, cur, fmt.Errorf("%w: %w", ErrConnection, f.err), "read")
		}

		msg, err := decodeResponse(f.data)
		if err != nil {
			s.logger.Warn("malformed response",
				zap.String("token", cur.token),
				zap.ByteString("data", f.data),
				zap.Error(err))
			return s.fail(conn, cur, fmt.Errorf("%w: %w", ErrProtocol, err), "malformed")
		}
		s.metrics.ProtocolMessage(msg.Action)

		switch {
		case msg.Action == ActionEmotions:
			// Ignored in every state

		case st == stateSocketOpened && msg.Action == ActionStart:
			s.logger.Debug("initialization confirmed", zap.String("token", cur.token))
			st = stateConnEstablished
			if err := s.send(conn, newSubmission(cur.task.Text())); err != nil {
				return s.fail(conn, cur, err, "write")
			}

		case st == stateConnEstablished && msg.Action == ActionSubmit:
			s.logger.Debug("submit confirmed", zap.String("token", cur.token))
			st = stateSubmitConfirmed

		case st == stateSubmitConfirmed && msg.Action == ActionAlert:
			s.logger.Debug("alert received", zap.String("token", cur.token), zap.ByteString("data", f.data))
			payload, err := decodeAlert(f.data)
			if err != nil {
				s.logger.Warn("could not decode alert", zap.String("token", cur.token), zap.Error(err))
				continue
			}
			cur.log.WriteString("\n")
			cur.log.Write(f.data)
			cur.alerts = append(cur.alerts, payload.toAlert(cur.task.Text()))
			s.metrics.AlertReceived()

		case st == stateSubmitConfirmed && msg.Action == ActionFinished:
			s.logger.Debug("checking finished", zap.String("token", cur.token), zap.ByteString("data", f.data))
			cur.log.WriteString("\n")
			cur.log.Write(f.data)
			cur.task.Complete(types.CheckResult{
				Text:   cur.task.Text(),
				Alerts: cur.alerts,
				Log:    formatLog(cur.log.String()),
			})

			next := nextLive(src)
			if next == nil {
				s.close(conn, websocket.CloseNormalClosure)
				return nil
			}
			cur = s.begin(next)
			st = stateSocketOpened
			if err := s.send(conn, newInitialMessage()); err != nil {
				return s.fail(conn, cur, err, "write")
			}

		case msg.Action == ActionError:
			s.logger.Warn("service reported error", zap.String("token", cur.token), zap.String("error", msg.Error))
			return s.fail(conn, cur, fmt.Errorf("%w: %s", ErrService, msg.Error), "service")

		default:
			s.logger.Warn("illegal response for state",
				zap.String("token", cur.token),
				zap.String("action", msg.Action),
				zap.Stringer("state", st))
			return s.fail(conn, cur, fmt.Errorf("%w: action %q in state %s", ErrProtocol, msg.Action, st), "unexpected")
		}
	}
}

func (s *Session) send(conn Conn, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return nil
}

// fail tears the connection down with going-away and settles the task per policy
func (s *Session) fail(conn Conn, cur *current, err error, reason string) error {
	s.close(conn, websocket.CloseGoingAway)
	s.abandon(cur, err, reason)
	return err
}

func (s *Session) abandon(cur *current, err error, reason string) {
	s.metrics.ProtocolError(reason)
	s.logger.Warn("session failed",
		zap.String("token", cur.token),
		zap.String("policy", s.policy.String()),
		zap.Error(err))

	if s.policy == PolicyFailFast {
		cur.task.Complete(types.FailedResult(cur.task.Text(), err))
		return
	}
	cur.task.Release()
}

func (s *Session) close(conn Conn, code int) {
	msg := websocket.FormatCloseMessage(code, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout)); err != nil {
		s.logger.Debug("close frame not sent", zap.Error(err))
	}
}

// readLoop forwards inbound frames until the connection fails or done closes
func readLoop(conn Conn, out chan<- frame, done <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		_, data, err := conn.ReadMessage()
		select {
		case out <- frame{data: data, err: err}:
		case <-done:
			return
		}
		if err != nil {
			return
		}
	}
}

// nextLive skips tasks disposed while queued
func nextLive(src task.Source) *task.Task {
	for {
		t := src.Next()
		if t == nil || !t.Disposed() {
			return t
		}
	}
}
