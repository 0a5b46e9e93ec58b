// Package dispatch provides a Go client for go-dispatch room servers.
// It signs a session credential, carries it in the handshake cookie, keeps
// exactly one WebSocket connection open and exchanges chat events in the
// global room.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/a-essam23/go-dispatch-client/frame"
	"github.com/a-essam23/go-dispatch-client/wire"
)

// DefaultEndpoint is where a locally started go-dispatch server listens.
const DefaultEndpoint = "ws://127.0.0.1:8080/ws"

// Texts handed to the Sink.
const (
	NoticeConnected     = "Connected to server"
	NoticeDisconnected  = "Disconnected from server"
	NoticeNotConnected  = "Not connected to server"
	ErrTextEmptyName    = "Please enter a username"
	ErrTextConnectFail  = "Failed to connect. Please try again."
	ErrTextConnectionIO = "Connection error. The connection will be closed."
	NoticeSendFailed    = "Failed to send message"
)

// Config holds connection parameters.
type Config struct {
	Endpoint    string // WebSocket URL (e.g. "ws://127.0.0.1:8080/ws")
	Identity    string // credential subject; generated when empty
	Credential  CredentialConfig
	Compression bool // offer permessage-deflate
}

// DefaultConfig returns a Config for a local go-dispatch server.
func DefaultConfig() Config {
	return Config{
		Endpoint:   DefaultEndpoint,
		Credential: DefaultCredentialConfig(),
	}
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithDialer replaces the gobwas/ws dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithIssuer replaces the credential issuer built from Config.Credential.
func WithIssuer(i *Issuer) Option {
	return func(c *Client) { c.issuer = i }
}

// WithClock sets the time source used for credentials.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client owns at most one live connection to a go-dispatch server.
//
// Every state change, transport event and Sink call happens on one event
// loop goroutine. Public methods post commands to it and wait for the
// result, so they must not be called from inside a Sink callback.
type Client struct {
	cfg      Config
	endpoint *url.URL
	identity string
	sink     Sink
	logger   *slog.Logger
	dialer   Dialer
	issuer   *Issuer
	binder   *SessionBinder
	now      func() time.Time

	cmds      chan command
	events    chan connEvent
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	published atomic.Int32

	// owned by run
	state   State
	session *session
	nextID  uint64
}

// session is the state of one connection, created on connect and
// destroyed on close.
type session struct {
	id          uint64
	conn        Conn
	displayName string
	sendCh      chan []byte
	closing     chan struct{}
	failed      atomic.Bool // write side already reported an error
	wg          sync.WaitGroup
}

type commandKind int

const (
	cmdConnect commandKind = iota
	cmdSend
	cmdDisconnect
)

type command struct {
	kind  commandKind
	ctx   context.Context
	text  string
	reply chan error
}

type eventKind int

const (
	evFrame eventKind = iota
	evError
	evClosed
)

type connEvent struct {
	kind    eventKind
	session *session
	data    []byte
	err     error
}

// New creates a disconnected Client and starts its event loop. A nil sink
// discards notifications.
func New(cfg Config, sink Sink, opts ...Option) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("endpoint %q: scheme must be ws or wss", cfg.Endpoint)
	}
	if cfg.Credential.Secret == "" {
		return nil, errors.New("credential secret not configured")
	}
	if sink == nil {
		sink = NopSink{}
	}

	c := &Client{
		cfg:      cfg,
		endpoint: u,
		identity: cfg.Identity,
		sink:     sink,
		logger:   slog.Default(),
		dialer:   WSDialer{Compression: cfg.Compression},
		binder:   NewSessionBinder(),
		now:      time.Now,
		cmds:     make(chan command),
		events:   make(chan connEvent),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.identity == "" {
		c.identity = GenerateIdentity(IdentityLength)
	}
	if c.issuer == nil {
		c.issuer = NewIssuer(cfg.Credential, c.now)
	}
	c.logger = c.logger.With("endpoint", cfg.Endpoint)

	go c.run()
	return c, nil
}

// Identity returns the credential subject, fixed for the Client's lifetime.
func (c *Client) Identity() string { return c.identity }

// State returns the last published connection state.
func (c *Client) State() State { return State(c.published.Load()) }

// Connect authenticates, opens a connection and joins the global room as
// displayName. An open connection is closed first. ctx bounds the dial.
func (c *Client) Connect(ctx context.Context, displayName string) error {
	return c.do(ctx, command{kind: cmdConnect, ctx: ctx, text: displayName})
}

// Send posts a chat message to the global room.
func (c *Client) Send(ctx context.Context, text string) error {
	return c.do(ctx, command{kind: cmdSend, ctx: ctx, text: text})
}

// Disconnect closes the current connection, if any.
func (c *Client) Disconnect() error {
	return c.do(context.Background(), command{kind: cmdDisconnect})
}

// Close disconnects and stops the event loop. The Client cannot be reused.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
	})
	<-c.stopped
	return nil
}

func (c *Client) do(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case c.cmds <- cmd:
	case <-c.stopped:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// run always answers a command it accepted.
	return <-cmd.reply
}

// --- Event loop ---

func (c *Client) run() {
	defer close(c.stopped)
	for {
		select {
		case cmd := <-c.cmds:
			cmd.reply <- c.handleCommand(cmd)
		case ev := <-c.events:
			c.handleEvent(ev)
		case <-c.quit:
			if c.session != nil {
				c.teardown()
			}
			c.logger.Debug("client stopped")
			return
		}
	}
}

func (c *Client) handleCommand(cmd command) error {
	select {
	case <-c.quit:
		return ErrClientClosed
	default:
	}

	switch cmd.kind {
	case cmdConnect:
		return c.connect(cmd.ctx, cmd.text)
	case cmdSend:
		return c.send(cmd.text)
	case cmdDisconnect:
		if c.session != nil {
			c.teardown()
		}
		return nil
	default:
		return fmt.Errorf("unknown command %d", cmd.kind)
	}
}

func (c *Client) handleEvent(ev connEvent) {
	// Events of a torn down session may still be in flight.
	if ev.session == nil || ev.session != c.session {
		return
	}

	switch ev.kind {
	case evFrame:
		c.dispatch(ev.data)
	case evError:
		c.logger.Warn("connection error", "error", ev.err)
		c.sink.OnValidationError(ErrTextConnectionIO)
	case evClosed:
		if ev.err != nil && !isNormalClose(ev.err) {
			c.logger.Info("connection closed", "error", ev.err)
		} else {
			c.logger.Info("connection closed")
		}
		c.teardown()
	}
}

func (c *Client) connect(ctx context.Context, displayName string) error {
	name := strings.TrimSpace(displayName)
	if name == "" {
		c.sink.OnValidationError(ErrTextEmptyName)
		return &ValidationError{Field: "display name", Reason: "must not be empty"}
	}

	// A signing failure leaves the open session alone.
	token, err := c.issuer.Issue(c.identity)
	if err != nil {
		c.logger.Error("failed to issue session credential", "error", err)
		return err
	}

	if c.session != nil {
		c.logger.Info("closing previous connection before reconnecting")
		c.teardown()
	}
	c.binder.Bind(c.endpoint, token)

	// Close must not wait for a hanging dial.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-c.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	c.setState(Connecting)
	conn, err := c.dialer.Dial(ctx, c.endpoint.String(), c.binder.Header(c.endpoint))
	if err != nil {
		cerr := &ConnectionError{Op: "dial", Err: err}
		c.logger.Warn("connect failed", "error", err)
		c.sink.OnValidationError(ErrTextConnectFail)
		c.setState(Disconnected)
		c.sink.OnSystemNotice(NoticeDisconnected)
		return cerr
	}

	c.nextID++
	s := &session{
		id:          c.nextID,
		conn:        conn,
		displayName: name,
		sendCh:      make(chan []byte, 256),
		closing:     make(chan struct{}),
	}
	c.session = s
	s.wg.Add(2)
	go c.readLoop(s)
	go c.writeLoop(s)

	c.logger.Info("connected to server", "identity", c.identity, "name", name)
	c.setState(Connected)
	c.sink.OnSystemNotice(NoticeConnected)

	if err := c.emit(wire.EventJoinRoom, wire.JoinRoomPayload{Name: name}); err != nil {
		c.logger.Warn("failed to queue join", "error", err)
	}
	return nil
}

func (c *Client) send(text string) error {
	if c.state != Connected || c.session == nil {
		c.sink.OnSystemNotice(NoticeNotConnected)
		return ErrNotConnected
	}
	msg := strings.TrimSpace(text)
	if msg == "" {
		return &ValidationError{Field: "message", Reason: "must not be empty"}
	}
	if err := c.emit(wire.EventSendMessage, wire.SendMessagePayload{Message: msg}); err != nil {
		c.logger.Warn("failed to queue message", "error", err)
		c.sink.OnSystemNotice(NoticeSendFailed)
		return err
	}
	return nil
}

// emit encodes an action for the global room and queues it on the
// session's writer.
func (c *Client) emit(event string, payload any) error {
	data, err := frame.Encode(frame.Action{
		Event:   event,
		Target:  wire.RoomGlobal,
		Payload: payload,
	})
	if err != nil {
		return err
	}

	select {
	case c.session.sendCh <- data:
		return nil
	default:
		return ErrSendBuffer
	}
}

// teardown closes the current session, waits for its goroutines and
// performs the transition to Disconnected.
func (c *Client) teardown() {
	s := c.session
	c.session = nil

	close(s.closing)
	if err := s.conn.Close(); err != nil {
		c.logger.Debug("close connection", "session", s.id, "error", err)
	}
	s.wg.Wait()

	c.setState(Disconnected)
	c.sink.OnSystemNotice(NoticeDisconnected)
}

func (c *Client) setState(s State) {
	c.state = s
	c.published.Store(int32(s))
	c.sink.OnStateChange(s)
}

// --- Dispatch ---

// dispatch decodes one inbound frame and notifies the Sink. Bad frames are
// dropped; the connection stays open.
func (c *Client) dispatch(data []byte) {
	ev, err := frame.Decode(data)
	if err == nil {
		err = c.dispatchEvent(ev)
	}
	if err != nil {
		c.logger.Warn("dropping inbound frame", "error", &DecodeError{Frame: data, Err: err})
	}
}

func (c *Client) dispatchEvent(ev frame.Event) error {
	switch ev.Event {
	case wire.EventJoinSuccess:
		var p wire.JoinSuccessPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		c.sink.OnSystemNotice("Joined room: " + p.Room)

	case wire.EventUserJoined:
		var p wire.UserJoinedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		c.sink.OnSystemNotice(fmt.Sprintf("User %s joined %s", p.User, p.Room))

	case wire.EventNewMessage:
		var p wire.NewMessagePayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		c.sink.OnChatNotice(p.User, p.Message, p.User == c.session.displayName)

	default:
		c.logger.Debug("ignoring event", "event", ev.Event, "target", ev.Target)
	}
	return nil
}

// --- Internal ---

// post hands an event to the loop unless the session is being torn down.
func (c *Client) post(s *session, ev connEvent) bool {
	ev.session = s
	select {
	case c.events <- ev:
		return true
	case <-s.closing:
		return false
	}
}

func (c *Client) readLoop(s *session) {
	defer s.wg.Done()
	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closing:
				return
			default:
			}
			if !isNormalClose(err) && !s.failed.Load() {
				if !c.post(s, connEvent{kind: evError, err: &ConnectionError{Op: "read", Err: err}}) {
					return
				}
			}
			c.post(s, connEvent{kind: evClosed, err: err})
			return
		}

		if !c.post(s, connEvent{kind: evFrame, data: data}) {
			return
		}
	}
}

func (c *Client) writeLoop(s *session) {
	defer s.wg.Done()
	for {
		select {
		case data := <-s.sendCh:
			if err := s.conn.WriteMessage(data); err != nil {
				s.failed.Store(true)
				c.post(s, connEvent{kind: evError, err: &ConnectionError{Op: "write", Err: err}})
				// readLoop observes the closed socket and reports the close.
				s.conn.Close()
				return
			}
		case <-s.closing:
			return
		}
	}
}
