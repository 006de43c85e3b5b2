package pigpio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"
)

// Command numbers from pigpiod's socket interface.
const (
	cmdMODES uint32 = 0
	cmdPUD   uint32 = 2
	cmdREAD  uint32 = 3
	cmdWRITE uint32 = 4
	cmdSERVO uint32 = 8
	cmdNB    uint32 = 19
	cmdNC    uint32 = 21
	cmdPIGPV uint32 = 26
	cmdGPW   uint32 = 84
	cmdNOIB  uint32 = 99
)

// frameSize is the size of a command request and of its response.
const frameSize = 16

// defaultTimeout bounds a command round trip when Config.Timeout is zero.
const defaultTimeout = 2 * time.Second

// Mode is a GPIO pin mode.
type Mode uint32

// Pin modes.
const (
	ModeInput  Mode = 0
	ModeOutput Mode = 1
)

// Pull is a GPIO pull-up/down resistor setting.
type Pull uint32

// Pull resistor settings.
const (
	PullOff  Pull = 0
	PullDown Pull = 1
	PullUp   Pull = 2
)

// Config contains pigpiod connection settings.
type Config struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// Client is a connection to pigpiod.
//
// The command connection is opened once by Dial and shared by every caller.
// Notification captures open a short-lived second connection.
type Client struct {
	addr    string
	timeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	closed bool
}

// Dial connects to pigpiod and verifies the daemon answers.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	conn, err := dialContext(ctx, addr, timeout)
	if err != nil {
		return nil, err
	}

	c := &Client{
		addr:    addr,
		timeout: timeout,
		conn:    conn,
	}

	if _, err := c.Version(ctx); err != nil {
		conn.Close() //nolint:errcheck // best effort cleanup on error path
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return c, nil
}

func dialContext(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, addr, err)
	}
	return conn, nil
}

// Addr returns the daemon address this client is connected to.
func (c *Client) Addr() string {
	return c.addr
}

// Close closes the command connection. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("closing pigpio connection: %w", err)
	}
	return nil
}

// HealthCheck verifies pigpiod still answers on the command connection.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.Version(ctx); err != nil {
		return fmt.Errorf("pigpio health check: %w", err)
	}
	return nil
}

// Version returns the pigpio library version reported by the daemon.
func (c *Client) Version(ctx context.Context) (uint32, error) {
	res, err := c.command(ctx, cmdPIGPV, 0, 0)
	if err != nil {
		return 0, err
	}
	return uint32(res), nil
}

// SetMode sets a pin's mode.
func (c *Client) SetMode(ctx context.Context, pin uint, mode Mode) error {
	_, err := c.command(ctx, cmdMODES, uint32(pin), uint32(mode))
	return err
}

// SetPullUpDown sets a pin's pull resistor.
func (c *Client) SetPullUpDown(ctx context.Context, pin uint, pull Pull) error {
	_, err := c.command(ctx, cmdPUD, uint32(pin), uint32(pull))
	return err
}

// Read returns a pin's level.
func (c *Client) Read(ctx context.Context, pin uint) (bool, error) {
	res, err := c.command(ctx, cmdREAD, uint32(pin), 0)
	if err != nil {
		return false, err
	}
	return res != 0, nil
}

// Write drives a pin high or low. pigpiod switches the pin to output mode.
func (c *Client) Write(ctx context.Context, pin uint, high bool) error {
	var level uint32
	if high {
		level = 1
	}
	_, err := c.command(ctx, cmdWRITE, uint32(pin), level)
	return err
}

// SetServoPulsewidth starts servo pulses of width microseconds on pin.
// A width of 0 switches pulses off.
func (c *Client) SetServoPulsewidth(ctx context.Context, pin uint, width uint) error {
	_, err := c.command(ctx, cmdSERVO, uint32(pin), uint32(width))
	return err
}

// GetServoPulsewidth returns the servo pulse width currently set on pin.
func (c *Client) GetServoPulsewidth(ctx context.Context, pin uint) (uint, error) {
	res, err := c.command(ctx, cmdGPW, uint32(pin), 0)
	if err != nil {
		return 0, err
	}
	return uint(res), nil
}

// command performs one request/response round trip on the command connection.
func (c *Client) command(ctx context.Context, cmd, p1, p2 uint32) (int32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrNotConnected
	}

	if err := c.conn.SetDeadline(c.deadline(ctx)); err != nil {
		return 0, fmt.Errorf("setting deadline: %w", err)
	}

	return exchange(c.conn, cmd, p1, p2)
}

// deadline returns the earlier of the context deadline and now+timeout.
func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}

// exchange writes a command frame to conn and reads its response.
func exchange(conn io.ReadWriter, cmd, p1, p2 uint32) (int32, error) {
	var req [frameSize]byte
	binary.LittleEndian.PutUint32(req[0:], cmd)
	binary.LittleEndian.PutUint32(req[4:], p1)
	binary.LittleEndian.PutUint32(req[8:], p2)
	// req[12:16] is p3, the extension length, always zero here.

	if _, err := conn.Write(req[:]); err != nil {
		return 0, fmt.Errorf("sending command %d: %w", cmd, err)
	}

	var resp [frameSize]byte
	if _, err := io.ReadFull(conn, resp[:]); err != nil {
		return 0, fmt.Errorf("reading response to command %d: %w", cmd, err)
	}

	if got := binary.LittleEndian.Uint32(resp[0:]); got != cmd {
		return 0, fmt.Errorf("%w: response for command %d, want %d", ErrProtocol, got, cmd)
	}

	res := int32(binary.LittleEndian.Uint32(resp[12:]))
	if res < 0 {
		return res, &Error{Command: cmd, Code: res}
	}
	return res, nil
}

// isTimeout reports whether err is a network deadline expiry.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
