package pigpio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// reportSize is the size of one notification report.
const reportSize = 12

// Report flags. Reports carrying any of these are not level changes.
const (
	flagWatchdog uint16 = 1 << 5
	flagAlive    uint16 = 1 << 6
	flagEvent    uint16 = 1 << 7
)

// maxNotifyPin is the highest pin a notification bitmask can address.
const maxNotifyPin = 31

// Edge is a level change observed on a pin. Tick is pigpiod's microsecond
// counter and wraps around every ~72 minutes; compare ticks by subtraction.
type Edge struct {
	Tick uint32
	High bool
}

// Capture records level changes on pin while trigger runs and for window
// afterwards.
//
// A notification connection is opened before trigger is called, so edges
// caused by trigger itself are included. The notification handle is closed
// before Capture returns.
func (c *Client) Capture(ctx context.Context, pin uint, window time.Duration, trigger func(ctx context.Context) error) ([]Edge, error) {
	if pin > maxNotifyPin {
		return nil, &Error{Command: cmdNB, Code: CodeBadUserGPIO}
	}

	conn, err := dialContext(ctx, c.addr, c.timeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close() //nolint:errcheck // notification socket is discarded

	if err := conn.SetDeadline(c.deadline(ctx)); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}
	handle, err := exchange(conn, cmdNOIB, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("opening notification: %w", err)
	}

	if _, err := c.command(ctx, cmdNB, uint32(handle), 1<<pin); err != nil {
		return nil, fmt.Errorf("starting notification: %w", err)
	}
	defer c.command(context.WithoutCancel(ctx), cmdNC, uint32(handle), 0) //nolint:errcheck // daemon also drops the handle when the socket closes

	if err := trigger(ctx); err != nil {
		return nil, err
	}

	end := time.Now().Add(window)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(end) {
		end = ctxDeadline
	}
	if err := conn.SetReadDeadline(end); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}

	return collectEdges(conn, pin)
}

// collectEdges reads reports from r until it returns a deadline error and
// returns the level changes seen on pin.
func collectEdges(r io.Reader, pin uint) ([]Edge, error) {
	var (
		edges []Edge
		buf   [reportSize]byte
		last  bool
		known bool
	)
	mask := uint32(1) << pin

	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if isTimeout(err) || err == io.EOF {
				return edges, nil
			}
			return edges, fmt.Errorf("reading notification: %w", err)
		}

		flags := binary.LittleEndian.Uint16(buf[2:])
		if flags&(flagWatchdog|flagAlive|flagEvent) != 0 {
			continue
		}

		tick := binary.LittleEndian.Uint32(buf[4:])
		high := binary.LittleEndian.Uint32(buf[8:])&mask != 0
		if known && high == last {
			continue
		}
		edges = append(edges, Edge{Tick: tick, High: high})
		last, known = high, true
	}
}
