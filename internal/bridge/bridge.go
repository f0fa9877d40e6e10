package bridge

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/gimp-mcp/internal/config"
	"github.com/ironsheep/gimp-mcp/internal/protocol"
)

// State is the lifecycle state of a Bridge.
type State int32

const (
	// StateIdle means no socket is open; the next exchange dials.
	StateIdle State = iota
	// StateOpen means a socket is connected but no command has been sent.
	StateOpen
	// StateInUse means a command is being written or its reply read.
	StateInUse
	// StateClosed means Close was called; exchanges fail with ErrClosed.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpen:
		return "open"
	case StateInUse:
		return "in-use"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Dialer opens stream connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Options configures a Bridge.
type Options struct {
	Addr          string
	DialTimeout   time.Duration
	IOTimeout     time.Duration
	MaxReplyBytes int64
	Dialer        Dialer
	Logger        *slog.Logger
}

// OptionsFromConfig derives Options from the GIMP section of the config.
func OptionsFromConfig(c config.GIMPConfig, logger *slog.Logger) Options {
	return Options{
		Addr:          c.Addr(),
		DialTimeout:   c.DialTimeout,
		IOTimeout:     c.IOTimeout,
		MaxReplyBytes: c.MaxReplyBytes,
		Logger:        logger,
	}
}

// Bridge owns the socket to the GIMP plugin.
//
// Each Exchange dials a fresh connection, writes one command, reads one
// reply and drops the connection again, whatever the outcome. Exchanges are
// serialised: at most one is in flight and at most one socket is open.
// A Bridge never retries.
type Bridge struct {
	opts  Options
	log   *slog.Logger
	mu    sync.Mutex
	conn  net.Conn
	state atomic.Int32
	dials atomic.Int64
}

// New returns an idle Bridge. No connection is made until the first Exchange.
func New(opts Options) *Bridge {
	if opts.Dialer == nil {
		opts.Dialer = &net.Dialer{}
	}
	if opts.MaxReplyBytes <= 0 {
		opts.MaxReplyBytes = config.DefaultMaxReplyBytes
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Bridge{opts: opts, log: opts.Logger.With("component", "bridge", "addr", opts.Addr)}
}

// State reports the current lifecycle state.
func (b *Bridge) State() State { return State(b.state.Load()) }

// Dials reports how many connections have been attempted.
func (b *Bridge) Dials() int64 { return b.dials.Load() }

// Close marks the bridge closed. It waits for an in-flight exchange.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drop()
	b.state.Store(int32(StateClosed))
	return nil
}

// Exchange sends cmd and returns the decoded reply. A reply whose status is
// not "success" is still a successful exchange; only transport, framing and
// decoding problems are returned as errors, always as *protocol.Error.
func (b *Bridge) Exchange(ctx context.Context, cmd protocol.Command) (*protocol.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.State() == StateClosed {
		return nil, &protocol.Error{Kind: protocol.KindClosed, Msg: "GIMP bridge is closed"}
	}

	log := b.log.With("exchange", uuid.NewString(), "command", cmd.Type)
	if path, ok := cmd.Params["api_path"].(string); ok {
		log = log.With("api_path", path)
	}

	data, err := protocol.Encode(cmd)
	if err != nil {
		log.Error("encode command", "err", err)
		return nil, err
	}

	if err := b.ensureOpen(ctx, log); err != nil {
		return nil, err
	}
	defer b.drop()

	b.state.Store(int32(StateInUse))
	log.Debug("sending command", "bytes", len(data))
	res, err := b.roundTrip(ctx, data)
	if err != nil {
		log.Error("exchange failed", "err", err)
		return nil, err
	}
	log.Debug("reply received", "status", res.Status)
	return res, nil
}

func (b *Bridge) ensureOpen(ctx context.Context, log *slog.Logger) error {
	if b.conn != nil {
		return nil
	}
	dialCtx := ctx
	if b.opts.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, b.opts.DialTimeout)
		defer cancel()
	}
	b.dials.Add(1)
	conn, err := b.opts.Dialer.DialContext(dialCtx, "tcp", b.opts.Addr)
	if err != nil {
		log.Error("failed to connect", "err", err)
		return protocol.ConnectionError(err)
	}
	log.Info("connected to GIMP")
	b.conn = conn
	b.state.Store(int32(StateOpen))
	return nil
}

func (b *Bridge) roundTrip(ctx context.Context, data []byte) (*protocol.Result, error) {
	conn := b.conn

	var deadline time.Time
	if b.opts.IOTimeout > 0 {
		deadline = time.Now().Add(b.opts.IOTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, protocol.CommunicationError(err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := conn.Write(data); err != nil {
		return nil, classify(ctx, "send", err)
	}
	msg, err := protocol.ReadMessage(conn, b.opts.MaxReplyBytes)
	if err != nil {
		if protocol.KindOf(err) != "" {
			return nil, err
		}
		return nil, classify(ctx, "receive", err)
	}
	return protocol.Decode(msg)
}

// drop discards the socket so the next exchange reconnects.
func (b *Bridge) drop() {
	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}
	if b.State() != StateClosed {
		b.state.Store(int32(StateIdle))
	}
}

func classify(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return protocol.TimeoutError(op, ctxErr)
		}
		return protocol.CommunicationError(ctxErr)
	}
	var ne net.Error
	if errors.Is(err, os.ErrDeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return protocol.TimeoutError(op, err)
	}
	return protocol.CommunicationError(err)
}
