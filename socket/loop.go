package socket

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kleeedolinux/legacyio/debug"
	"github.com/kleeedolinux/legacyio/socket/transport"
	"github.com/kleeedolinux/legacyio/telemetry"
)

var heartbeatFrame = NewMessage(TypeHeartbeat).String()

// loop owns conn until it returns. Every return is an error: the loop has no
// clean exit, only a reason for stopping.
func (c *Client) loop(ctx context.Context, conn transport.Conn, sess *Session, handler EventHandler, log *slog.Logger) error {
	for {
		if err := ctx.Err(); err != nil {
			return transportError(err)
		}

		wait := c.pollInterval
		if d, ok := sess.untilHeartbeat(time.Now()); ok && d < wait {
			wait = d
		}

		rctx, cancel := context.WithTimeout(ctx, wait)
		frame, err := conn.Receive(rctx)
		cancel()

		switch {
		case err == nil:
			if err := c.handleFrame(conn, frame, handler, log); err != nil {
				return err
			}
		case errors.Is(err, transport.ErrWouldBlock):
			if wait > 0 {
				if err := sleep(ctx, wait); err != nil {
					return transportError(err)
				}
			}
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			// nothing arrived within wait
		default:
			return transportError(err)
		}

		if now := time.Now(); sess.heartbeatDue(now) {
			if err := conn.Send(transport.TextFrame(heartbeatFrame)); err != nil {
				return transportError(err)
			}
			sess.markHeartbeat(now)
			telemetry.Inc(telemetry.HeartbeatsSent)
			debug.Printf("socket.io %s: heartbeat sent", sess.SID)
		}
	}
}

func (c *Client) handleFrame(conn transport.Conn, frame transport.Frame, handler EventHandler, log *slog.Logger) error {
	telemetry.IncFrame(frame.Kind.String())

	switch frame.Kind {
	case transport.FramePing:
		if err := conn.Send(transport.PongFrame(frame.Data)); err != nil {
			return transportError(err)
		}
		telemetry.Inc(telemetry.PongsSent)
		return nil

	case transport.FramePong, transport.FrameBinary:
		return nil

	case transport.FrameClose:
		if frame.HasReason {
			return closeError(frame.CloseReason)
		}
		return closeError("no reason")

	case transport.FrameText:
		return c.handleText(conn, string(frame.Data), handler, log)

	default:
		return nil
	}
}

func (c *Client) handleText(conn transport.Conn, text string, handler EventHandler, log *slog.Logger) error {
	msg, err := ParseMessage(text)
	if err != nil {
		telemetry.Inc(telemetry.FramesMalformed)
		log.Debug("dropping malformed frame", slog.String("frame", text), slog.Any("err", err))
		return nil
	}
	debug.Printf("socket.io: received %s message %s", msg.Type.Name(), text)

	// A disconnect for the whole socket is reported like a close frame; the
	// server drops the connection right after sending it.
	if msg.Type == TypeDisconnect && msg.Endpoint == "" {
		return closeError("server disconnect")
	}

	ev, ok, err := DecodeEvent(msg)
	if err != nil {
		return err
	}
	if !ok || handler == nil {
		return nil
	}

	var reply *Message
	telemetry.TimeFunc(telemetry.HandlerDuration, func() {
		reply = handler(ev)
	})
	telemetry.Inc(telemetry.EventsDispatched)

	if reply == nil {
		return nil
	}
	if err := conn.Send(transport.TextFrame(reply.String())); err != nil {
		return transportError(err)
	}
	telemetry.Inc(telemetry.RepliesSent)
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
