package lightctl

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/pkg/errors"
	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
	"libdb.so/hserve"
	"libdb.so/lightctl/led"
	"libdb.so/lightctl/ledserial"
)

// MDNSService is the service type the control API is advertised as.
const MDNSService = "_lightctl._tcp"

// readRetryInterval is how long readPackets waits after a short read before
// reading again.
const readRetryInterval = 10 * time.Millisecond

// Daemon is the main lightctl daemon. It drives the fixtures of a single strip
// through the board on the serial port and serves the HTTP control API.
type Daemon struct {
	cfg    *Config
	logger *slog.Logger
}

// NewDaemon creates a new lightctl daemon.
func NewDaemon(cfg *Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &Daemon{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Run starts the daemon. It blocks until the given context is canceled.
func (d *Daemon) Run(ctx context.Context) error {
	port, err := serial.Open(d.cfg.Device, &serial.Mode{
		BaudRate: d.cfg.Baud,
	})
	if err != nil {
		return errors.Wrap(err, "failed to open serial port")
	}
	defer port.Close()

	if err := port.SetReadTimeout(serial.NoTimeout); err != nil {
		return errors.Wrap(err, "failed to reset read timeout")
	}

	return d.run(ctx, port)
}

func (d *Daemon) run(ctx context.Context, port io.ReadWriteCloser) error {
	board := newBoardConn(port, d.logger.With("component", "board"), time.Duration(d.cfg.AckTimeout))

	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		<-ctx.Done()
		d.logger.Debug("closing serial port")
		if err := port.Close(); err != nil {
			return errors.Wrap(err, "failed to close serial port")
		}
		return ctx.Err()
	})

	errg.Go(func() error {
		return board.readPackets(ctx, port)
	})

	errg.Go(func() error {
		d.logger.Debug("sending initialize packet")
		if err := board.send(ledserial.InitializePacket{
			NumLEDs: uint16(d.cfg.NumLEDs()),
		}); err != nil {
			return errors.Wrap(err, "failed to initialize LEDs")
		}

		strip, err := NewStrip(d.cfg.NumLEDs(), board)
		if err != nil {
			return err
		}

		fixtures, err := NewFixtures(d.cfg, strip, ControllerOpts{
			Logger: d.logger,
		})
		if err != nil {
			return err
		}

		if err := strip.Flush(); err != nil {
			d.logger.Warn(
				"failed to write initial colors",
				"error", err)
		}

		if d.cfg.Advertise {
			shutdown, err := advertise(d.cfg.HTTPAddr)
			if err != nil {
				d.logger.Warn(
					"failed to advertise over mDNS",
					"error", err)
			} else {
				defer shutdown()
			}
		}

		d.logger.Info(
			"starting HTTP server",
			"addr", d.cfg.HTTPAddr,
			"fixtures", fixtures.Names())

		return hserve.ListenAndServe(ctx, d.cfg.HTTPAddr, NewHandler(fixtures, d.logger.With("component", "http")))
	})

	return errg.Wait()
}

// advertise registers the control API at addr over mDNS. The returned
// function stops the advertisement.
func advertise(addr string) (func(), error) {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid HTTP address")
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid HTTP port")
	}

	service, err := mdns.NewMDNSService("lightctl", MDNSService, "", "", port, nil, []string{"path=/fixtures"})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create mDNS service")
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, errors.Wrap(err, "failed to start mDNS server")
	}

	return func() { server.Shutdown() }, nil
}

// boardConn is the host side of the connection to the board. It implements
// StripWriter by sending SetPackets and waiting for them to be acknowledged.
type boardConn struct {
	w       io.Writer
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	results chan error

	pendingMu sync.Mutex
	pending   *ledserial.IncomingPacketType // nil unless a send is waiting
}

var _ StripWriter = (*boardConn)(nil)

func newBoardConn(w io.Writer, logger *slog.Logger, timeout time.Duration) *boardConn {
	if timeout <= 0 {
		timeout = DefaultAckTimeout
	}
	return &boardConn{
		w:       w,
		logger:  logger,
		timeout: timeout,
		results: make(chan error, 1),
	}
}

// WriteLEDs implements StripWriter.
func (c *boardConn) WriteLEDs(leds led.LEDs) error {
	return c.send(ledserial.SetPacket{Pix: leds.AsPixels()})
}

// send writes p and waits until the board acknowledges or rejects it.
func (c *boardConn) send(p ledserial.IncomingPacket) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Drop a result that arrived after an earlier send gave up.
	select {
	case <-c.results:
	default:
	}

	c.setPending(p.Type())
	defer c.clearPending()

	c.logger.Debug(
		"writing packet",
		"type", p.Type())

	if err := ledserial.WriteIncomingPacket(c.w, p); err != nil {
		return errors.Wrapf(err, "failed to write %s packet", p.Type())
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case err := <-c.results:
		return errors.Wrapf(err, "board rejected %s packet", p.Type())
	case <-timer.C:
		return errors.Errorf("timed out waiting for board to acknowledge %s packet", p.Type())
	}
}

func (c *boardConn) readPackets(ctx context.Context, r io.Reader) error {
	for ctx.Err() == nil {
		p, err := ledserial.ReadOutgoingPacket(r)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			// A short read indicates a timeout. This is expected.
			if errors.Is(err, io.EOF) {
				select {
				case <-ctx.Done():
				case <-time.After(readRetryInterval):
				}
				continue
			}
			return errors.Wrap(err, "failed to read packet")
		}

		if err := c.handlePacket(p); err != nil {
			return err
		}
	}

	return ctx.Err()
}

func (c *boardConn) handlePacket(p ledserial.OutgoingPacket) error {
	switch p := p.(type) {
	case ledserial.AckPacket:
		c.logger.Debug(
			"received ack packet from board",
			"acked_for", p.IncomingPacketType)
		if !c.isPending(p.IncomingPacketType) {
			c.logger.Debug(
				"dropping ack for a packet that is not pending",
				"acked_for", p.IncomingPacketType)
			return nil
		}
		c.result(nil)

	case ledserial.ErrorPacket:
		c.logger.Warn(
			"received error packet from board",
			"message", p.Message)
		c.result(errors.New(p.Message))

	case ledserial.PanicPacket:
		c.logger.Error("board unrecoverably panicked")
		return errors.New("board panicked")

	case ledserial.LogPacket:
		c.logger.Debug(
			"received log packet from board",
			"message", p.Message)

	default:
		return errors.Errorf("received unknown packet from board: %s", p.Type())
	}

	return nil
}

func (c *boardConn) setPending(t ledserial.IncomingPacketType) {
	c.pendingMu.Lock()
	c.pending = &t
	c.pendingMu.Unlock()
}

func (c *boardConn) clearPending() {
	c.pendingMu.Lock()
	c.pending = nil
	c.pendingMu.Unlock()
}

func (c *boardConn) isPending(t ledserial.IncomingPacketType) bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	return c.pending != nil && *c.pending == t
}

func (c *boardConn) result(err error) {
	select {
	case c.results <- err:
	default:
		c.logger.Debug("dropping unexpected board response")
	}
}
