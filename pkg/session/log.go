package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const (
	sendingHeartbeat = "sending heartbeat"
	// acks only show up as a received gateway message carrying opcode 11
	receivedMessage = "received gateway message"
	heartbeatAckOp  = `"op":11`
)

type heartbeatFilter struct {
	handler slog.Handler
}

// NewHeartbeatFilter drops heartbeat records before they reach h.
func NewHeartbeatFilter(h slog.Handler) slog.Handler {
	return &heartbeatFilter{handler: h}
}

func (f *heartbeatFilter) Enabled(ctx context.Context, level slog.Level) bool {
	return f.handler.Enabled(ctx, level)
}

func (f *heartbeatFilter) Handle(ctx context.Context, r slog.Record) error {
	if isHeartbeat(r) {
		return nil
	}
	return f.handler.Handle(ctx, r)
}

func isHeartbeat(r slog.Record) bool {
	msg := strings.ToLower(r.Message)
	if strings.Contains(msg, sendingHeartbeat) {
		return true
	}
	if !strings.Contains(msg, receivedMessage) {
		return false
	}
	ack := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "data" {
			return true
		}
		ack = isHeartbeatAck(a.Value.Resolve())
		return false
	})
	return ack
}

func isHeartbeatAck(v slog.Value) bool {
	var data string
	if v.Kind() == slog.KindAny {
		// raw payloads are byte slices
		data = fmt.Sprintf("%s", v.Any())
	} else {
		data = v.String()
	}
	return strings.Contains(strings.ReplaceAll(data, " ", ""), heartbeatAckOp)
}

func (f *heartbeatFilter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &heartbeatFilter{handler: f.handler.WithAttrs(attrs)}
}

func (f *heartbeatFilter) WithGroup(name string) slog.Handler {
	return &heartbeatFilter{handler: f.handler.WithGroup(name)}
}
