// Package session implements the client side of the IPOS "Web" JSON-RPC
// service: token persistence, forced logout on 401, detection of UI version
// skew and translation of failures into typed errors.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/denysvitali/ipos-browser-go/internal/models"
	"github.com/denysvitali/ipos-browser-go/pkg/jsonrpc"
	"github.com/denysvitali/ipos-browser-go/pkg/storage"
	"github.com/denysvitali/ipos-browser-go/version"
)

const (
	// Namespace of the remote service
	Namespace = "Web"
	// DefaultPrefix is the reserved path the server mounts the browser under
	DefaultPrefix = "/ipos"
	rpcPath       = "/webrpc"
)

// State is the login state derived from the stored token
type State int

const (
	StateLoggedOut State = iota
	StateLoggedIn
)

func (s State) String() string {
	if s == StateLoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// Session wraps a JSON-RPC client bound to the Web namespace. It is safe
// for concurrent use; calls are independent apart from the shared token and
// the stale flag.
type Session struct {
	origin   string
	prefix   string
	client   *jsonrpc.Client
	http     jsonrpc.Doer
	store    storage.Store
	reloader Reloader
	baseline string
	logger   *logrus.Logger
	tracer   trace.Tracer
	now      func() time.Time

	// expired is set by the first 401 of a logged-in period
	expired atomic.Bool
	// stale is set by the first uiVersion mismatch
	stale atomic.Bool
}

// Option configures a Session
type Option func(*Session)

// WithPrefix sets the path prefix the browser service is mounted under
func WithPrefix(prefix string) Option {
	return func(s *Session) {
		s.prefix = prefix
	}
}

// WithHTTPClient sets the HTTP primitive used for RPC calls and transfers
func WithHTTPClient(d jsonrpc.Doer) Option {
	return func(s *Session) {
		s.http = d
	}
}

// WithReloader sets the hook invoked on forced logout and version skew
func WithReloader(r Reloader) Option {
	return func(s *Session) {
		s.reloader = r
	}
}

// WithUIVersion overrides the build-time UI version baseline
func WithUIVersion(v string) Option {
	return func(s *Session) {
		s.baseline = v
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithTracer sets the tracer used for per-call spans
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Session) {
		s.tracer = tracer
	}
}

// WithClock overrides the clock used for request date headers
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates a session for the server at origin (scheme://host[:port]).
// The RPC endpoint is origin + prefix + "/webrpc".
func New(origin string, store storage.Store, opts ...Option) (*Session, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}

	s := &Session{
		origin:   strings.TrimRight(origin, "/"),
		prefix:   DefaultPrefix,
		http:     http.DefaultClient,
		store:    store,
		reloader: noopReloader{},
		baseline: version.UIVersion,
		tracer:   otel.Tracer("ipos-browser"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.prefix = strings.TrimRight(s.prefix, "/")
	if s.logger == nil {
		s.logger = logrus.New()
		s.logger.SetOutput(io.Discard)
	}

	client, err := jsonrpc.NewClient(s.origin+s.prefix+rpcPath, Namespace,
		jsonrpc.WithHTTPClient(s.http),
		jsonrpc.WithClock(s.now),
		jsonrpc.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	s.client = client

	return s, nil
}

// Endpoint returns the parsed RPC endpoint
func (s *Session) Endpoint() jsonrpc.Endpoint {
	return s.client.Endpoint
}

// Baseline returns the UI version baseline the session compares against
func (s *Session) Baseline() string {
	return s.baseline
}

// Stale reports whether a version mismatch has been observed
func (s *Session) Stale() bool {
	return s.stale.Load()
}

// State reports the login state
func (s *Session) State() State {
	if s.LoggedIn() {
		return StateLoggedIn
	}
	return StateLoggedOut
}

// NewlyUpdated reports and clears the persisted flag left by a version skew
// reload.
func (s *Session) NewlyUpdated() (bool, error) {
	v, ok, err := s.store.Get(storage.KeyNewlyUpdated)
	if err != nil {
		return false, fmt.Errorf("failed to read update flag: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := s.store.Remove(storage.KeyNewlyUpdated); err != nil {
		return false, fmt.Errorf("failed to clear update flag: %w", err)
	}
	return v == "true", nil
}

// Call invokes an arbitrary Web method and returns the raw result
func (s *Session) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return s.makeCall(ctx, method, params)
}

// invoke runs makeCall and decodes the result into reply
func (s *Session) invoke(ctx context.Context, method string, params interface{}, reply interface{}) error {
	result, err := s.makeCall(ctx, method, params)
	if err != nil {
		return err
	}
	if reply == nil {
		return nil
	}
	if err := json.Unmarshal(result, reply); err != nil {
		return &ProtocolError{Reason: fmt.Sprintf("unexpected result for %s", method), Err: err}
	}
	return nil
}

// makeCall is the response pipeline shared by every Web method
func (s *Session) makeCall(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	ctx, span := s.tracer.Start(ctx, "webrpc."+method)
	defer span.End()
	span.SetAttributes(attribute.String("rpc.method", s.client.QualifiedMethod(method)))

	token := s.GetToken()
	resp, err := s.client.Call(ctx, method, &jsonrpc.CallOptions{Params: params}, token)
	if err != nil {
		if status, ok := jsonrpc.StatusOf(err); ok {
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
		err = s.transportError(err, token)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	result, err := s.handleResponse(method, resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return result, nil
}

// transportError maps a failed round trip to the session error taxonomy.
// 401 is handled first so a stale token never surfaces as a generic error.
// token is the one the failed request was sent with.
func (s *Session) transportError(err error, token string) error {
	status, ok := jsonrpc.StatusOf(err)
	switch {
	case ok && status == http.StatusUnauthorized:
		s.expire(token)
		return ErrAuthExpired
	case ok:
		return &ServerError{StatusCode: status}
	default:
		s.logger.Debugf("IPOS server unreachable: %v", err)
		return &UnreachableError{Err: err}
	}
}

func (s *Session) handleResponse(method string, body []byte) (json.RawMessage, error) {
	var envelope models.JSONRPCResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &ProtocolError{Reason: "malformed JSON-RPC response", Err: err}
	}
	if envelope.Error != nil {
		s.logger.WithFields(logrus.Fields{
			"method": method,
			"code":   envelope.Error.Code,
		}).Debugf("Server reported error: %s", envelope.Error.Message)
		return nil, &RPCError{
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
			Data:    envelope.Error.Data,
		}
	}

	uiVersion, ok := uiVersionOf(envelope.Result)
	if !ok {
		return nil, &ProtocolError{Reason: invalidUIVersion}
	}
	s.checkVersion(uiVersion)

	return envelope.Result, nil
}

// checkVersion marks the session stale and requests a reload on the first
// mismatch only. Development builds never report skew.
func (s *Session) checkVersion(uiVersion string) {
	if s.baseline == version.UIVersionPlaceholder || uiVersion == s.baseline {
		return
	}
	if !s.stale.CompareAndSwap(false, true) {
		return
	}
	s.logger.WithFields(logrus.Fields{
		"server_ui_version": uiVersion,
		"client_ui_version": s.baseline,
	}).Warn("UI version changed on the server, reloading")
	if err := s.store.Set(storage.KeyNewlyUpdated, "true"); err != nil {
		s.logger.Warnf("Failed to persist update flag: %v", err)
	}
	s.reloader.Reload(ReloadVersionSkew)
}

// expire clears the rejected token and requests a reload once per
// logged-in period. A token stored by a login that completed while the
// rejected request was in flight is kept.
func (s *Session) expire(sent string) {
	current, _, err := s.store.Get(storage.KeyToken)
	if err == nil && current != sent {
		s.logger.Debug("Session token replaced while the request was in flight, keeping it")
		return
	}
	if err := s.store.Remove(storage.KeyToken); err != nil {
		s.logger.Warnf("Failed to clear session token: %v", err)
	}
	if s.expired.CompareAndSwap(false, true) {
		s.logger.Warn("Session token rejected by server, logging out")
		s.reloader.Reload(ReloadAuthExpired)
	}
}

// storeToken persists a freshly issued token and re-arms the 401 guard.
// A success reply without a token is a protocol violation.
func (s *Session) storeToken(method, token string) error {
	if token == "" {
		return &ProtocolError{Reason: fmt.Sprintf("missing token in %s reply", method)}
	}
	if err := s.store.Set(storage.KeyToken, token); err != nil {
		return fmt.Errorf("failed to store session token: %w", err)
	}
	s.expired.Store(false)
	return nil
}
