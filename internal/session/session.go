package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eppclient/internal/platform/metrics"
	"eppclient/internal/protocol"
	"eppclient/internal/store"
	"eppclient/internal/transport"
	"eppclient/pkg/errors"
)

// State tracks where the session is in its lifecycle. Commands other
// than hello and login are only accepted once authenticated.
type State int

const (
	StateNew State = iota
	StateGreeted
	StateAuthenticated
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateGreeted:
		return "greeted"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config carries the registrar credentials and session knobs.
type Config struct {
	ClientID     string
	Password     string
	ClTRIDPrefix string
	HandlePrefix string
	DNSSEC       bool
}

// Session drives a single EPP session over one transport. It owns the
// namespace registry negotiated with the server and the transaction
// bookkeeping. Not safe for concurrent use; an EPP session is a
// lockstep request/response channel.
type Session struct {
	cfg       Config
	tr        transport.Transport
	logger    *slog.Logger
	store     store.Store
	publisher store.Publisher
	dedupe    store.Dedupe
	metrics   *metrics.Metrics
	clock     func() time.Time
	tracer    trace.Tracer

	logoutOnFailedLogin bool

	state  State
	reg    *protocol.Registry
	vars   map[string]any
	clTRID string
	svTRID string

	credit   string
	msgID    string
	msgTotal int
	msgTitle string
	msgDate  string
}

type Option func(*Session)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithStore(st store.Store) Option {
	return func(s *Session) {
		s.store = st
	}
}

func WithPublisher(p store.Publisher) Option {
	return func(s *Session) {
		s.publisher = p
	}
}

func WithDedupe(d store.Dedupe) Option {
	return func(s *Session) {
		s.dedupe = d
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogoutOnFailedLogin controls whether a failed login triggers a
// best-effort logout to release the server-side slot. Enabled by default.
func WithLogoutOnFailedLogin(enabled bool) Option {
	return func(s *Session) {
		s.logoutOnFailedLogin = enabled
	}
}

func New(cfg Config, tr transport.Transport, opts ...Option) (*Session, error) {
	if tr == nil {
		return nil, errors.New(errors.CodeConfiguration, "transport is required")
	}
	if cfg.ClientID == "" || cfg.Password == "" {
		return nil, errors.New(errors.CodeConfiguration, "client ID and password are required")
	}
	if cfg.ClTRIDPrefix == "" {
		cfg.ClTRIDPrefix = "epp"
	}

	s := &Session{
		cfg:                 cfg,
		tr:                  tr,
		logger:              slog.Default(),
		clock:               time.Now,
		tracer:              otel.Tracer("eppclient/session"),
		logoutOnFailedLogin: true,
		state:               StateNew,
		reg:                 protocol.NewRegistry(cfg.DNSSEC),
		vars:                map[string]any{},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Session) State() State                 { return s.state }
func (s *Session) Registry() *protocol.Registry { return s.reg }
func (s *Session) LastClTRID() string           { return s.clTRID }
func (s *Session) LastSvTRID() string           { return s.svTRID }

// Credit returns the registrar account balance reported by the server
// on login or via creditMsgData poll messages. Empty until seen.
func (s *Session) Credit() string { return s.credit }

// Vars exposes the accumulated response fields across the session,
// later responses overwriting earlier ones key by key.
func (s *Session) Vars() map[string]any { return s.vars }

// Hello fetches the server greeting and rebuilds the namespace
// registry from it. Idempotent: safe to call at any point as a
// keepalive without disturbing an authenticated session.
func (s *Session) Hello(ctx context.Context) (*protocol.Result, error) {
	res, err := s.exec(ctx, protocol.Command{Kind: protocol.KindSession, Op: protocol.OpHello}, "")
	if err != nil {
		return res, err
	}
	if res.Greeting == nil {
		s.state = StateFailed
		return res, errors.New(errors.CodeDecode, "hello reply carried no greeting")
	}
	s.reg = protocol.NewRegistryFromGreeting(*res.Greeting, s.cfg.DNSSEC)
	if s.state != StateAuthenticated {
		s.state = StateGreeted
	}
	s.mergeVars(res.Fields)
	s.logger.Debug("greeting received",
		"server", res.Greeting.ServerID,
		"object_uris", len(s.reg.ObjURIs()),
		"ext_uris", len(s.reg.ExtURIs()))
	return res, nil
}

// KeepAlive is Hello under its conventional name.
func (s *Session) KeepAlive(ctx context.Context) error {
	_, err := s.Hello(ctx)
	return err
}

// Login authenticates the session. A non-empty newPassword asks the
// server to rotate the password as part of the login.
func (s *Session) Login(ctx context.Context, newPassword string) (*protocol.Result, error) {
	if s.state != StateGreeted {
		return nil, errors.Newf(errors.CodeUsage, "login requires a greeted session, state is %s", s.state)
	}
	op := protocol.OpLogin
	if newPassword != "" {
		op = protocol.OpChangePassword
	}
	cmd := protocol.Command{
		Kind: protocol.KindSession,
		Op:   op,
		Payload: protocol.Login{
			ClientID:    s.cfg.ClientID,
			Password:    s.cfg.Password,
			NewPassword: newPassword,
		},
	}
	res, err := s.exec(ctx, cmd, s.cfg.ClientID)
	if err != nil {
		if errors.HasCode(err, errors.CodeResult) && s.logoutOnFailedLogin {
			// Release the server-side session slot; the login failure
			// is still the error we report.
			if _, lerr := s.logout(ctx); lerr != nil {
				s.logger.Warn("logout after failed login", "error", lerr)
			}
		}
		return res, err
	}
	s.state = StateAuthenticated
	if newPassword != "" {
		s.cfg.Password = newPassword
	}
	s.cacheCredit(res)
	s.mergeVars(res.Fields)
	s.logger.Info("session authenticated", "client_id", s.cfg.ClientID)
	return res, nil
}

// ChangePassword rotates the account password during login.
func (s *Session) ChangePassword(ctx context.Context, newPassword string) (*protocol.Result, error) {
	if newPassword == "" {
		return nil, errors.New(errors.CodeUsage, "new password must not be empty")
	}
	return s.Login(ctx, newPassword)
}

// Logout ends the session. The session is closed regardless of what
// other state it was in, matching the server dropping it.
func (s *Session) Logout(ctx context.Context) (*protocol.Result, error) {
	if s.state != StateGreeted && s.state != StateAuthenticated {
		return nil, errors.Newf(errors.CodeUsage, "logout requires an open session, state is %s", s.state)
	}
	return s.logout(ctx)
}

func (s *Session) logout(ctx context.Context) (*protocol.Result, error) {
	res, err := s.exec(ctx, protocol.Command{Kind: protocol.KindSession, Op: protocol.OpLogout}, s.cfg.ClientID)
	if err != nil {
		return res, err
	}
	s.state = StateClosed
	s.reset()
	s.logger.Info("session closed", "client_id", s.cfg.ClientID)
	return res, nil
}

// reset clears the per-session record so a re-greeted session starts
// from a clean slate.
func (s *Session) reset() {
	s.vars = map[string]any{}
	s.credit = ""
	s.msgID = ""
	s.msgTotal = 0
	s.msgTitle = ""
	s.msgDate = ""
}

// Do runs an object command (contact or domain). The session must be
// authenticated; this is checked before anything touches the wire.
func (s *Session) Do(ctx context.Context, cmd protocol.Command, objectID string) (*protocol.Result, error) {
	if s.state != StateAuthenticated {
		return nil, errors.Newf(errors.CodeUsage, "%s requires an authenticated session, state is %s", cmd.Op, s.state)
	}
	res, err := s.exec(ctx, cmd, objectID)
	if res != nil {
		s.cacheCredit(res)
		s.mergeVars(res.Fields)
	}
	return res, err
}

// exec encodes, sends and decodes one command. Transport and decode
// failures poison the session (StateFailed); negative result codes do
// not, they come back as a CodeResult error alongside the decoded result.
func (s *Session) exec(ctx context.Context, cmd protocol.Command, objectID string) (*protocol.Result, error) {
	clTRID := s.newClTRID()

	body, err := protocol.Encode(cmd, s.reg, clTRID)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "epp."+string(cmd.Op),
		trace.WithAttributes(
			attribute.String("epp.cltrid", clTRID),
			attribute.String("epp.object_id", objectID),
		))
	defer span.End()

	if s.store != nil {
		rec := store.RequestRecord{
			ClTRID:    clTRID,
			Command:   string(cmd.Op),
			ObjectID:  objectID,
			Request:   protocol.MaskCredentials(body),
			CreatedAt: s.clock(),
		}
		if serr := s.store.SaveRequest(ctx, rec); serr != nil {
			s.logger.Warn("request audit write failed", "cltrid", clTRID, "error", serr)
		}
	}

	started := s.clock()
	reply, err := s.tr.Send(ctx, body)
	if err != nil {
		s.state = StateFailed
		span.RecordError(err)
		if s.metrics != nil {
			s.metrics.IncrementTransportErrors()
			s.metrics.ObserveCommand(string(cmd.Op), "transport_error", s.clock().Sub(started).Seconds())
		}
		s.logger.Error("transport failure", "op", cmd.Op, "cltrid", clTRID, "error", err)
		return nil, err
	}

	res, err := protocol.Decode(reply.Body, protocol.DecodeContext{Kind: cmd.Kind})
	if err != nil {
		s.state = StateFailed
		span.RecordError(err)
		if s.metrics != nil {
			s.metrics.ObserveCommand(string(cmd.Op), "decode_error", s.clock().Sub(started).Seconds())
		}
		s.logger.Error("reply decode failure", "op", cmd.Op, "cltrid", clTRID, "error", err)
		return nil, err
	}

	s.clTRID = clTRID
	s.svTRID = res.SvTRID

	if s.store != nil {
		rec := store.ResponseRecord{
			ClTRID:     clTRID,
			SvTRID:     res.SvTRID,
			ResultCode: res.Code,
			HTTPStatus: reply.StatusCode,
			Headers:    headerString(reply),
			Body:       reply.Body,
			CreatedAt:  s.clock(),
		}
		if len(res.WrongValues) > 0 {
			rec.ReasonCode = res.WrongValues[0].Code
			rec.Reason = res.WrongValues[0].Reason
		}
		if serr := s.store.SaveResponse(ctx, rec); serr != nil {
			s.logger.Warn("response audit write failed", "cltrid", clTRID, "error", serr)
		}
	}

	outcome := "success"
	if !res.Success() && res.Code != "" {
		outcome = "failure"
	}
	if s.metrics != nil {
		s.metrics.ObserveCommand(string(cmd.Op), outcome, s.clock().Sub(started).Seconds())
	}
	span.SetAttributes(attribute.String("epp.result_code", res.Code))

	if !res.Success() && res.Code != "" {
		s.logger.Warn("command refused",
			"op", cmd.Op, "cltrid", clTRID, "svtrid", res.SvTRID,
			"code", res.Code, "msg", res.Message)
		return res, errors.Newf(errors.CodeResult, "%s: %s", res.Code, res.Message)
	}

	s.logger.Debug("command completed",
		"op", cmd.Op, "cltrid", clTRID, "svtrid", res.SvTRID, "code", res.Code)
	return res, nil
}

func (s *Session) cacheCredit(res *protocol.Result) {
	if res == nil {
		return
	}
	if c := res.Str("creditMsgData"); c != "" {
		s.credit = c
	}
}

func (s *Session) mergeVars(fields map[string]any) {
	for k, v := range fields {
		s.vars[k] = v
	}
}

func headerString(reply *transport.Reply) string {
	if len(reply.Headers) == 0 {
		return ""
	}
	return fmt.Sprint(reply.Headers)
}
