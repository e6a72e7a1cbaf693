// SPDX-License-Identifier: MIT

// Package delivery hands finished XMLTV documents to a downstream consumer.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	xglog "github.com/domevanzy/Zattoo-EPG/internal/log"
)

// DefaultTVHeadendSocket is the XMLTV grabber socket of a stock TVHeadend install.
const DefaultTVHeadendSocket = "/var/lib/tvheadend/epggrab/xmltv.sock"

// ErrSocketMissing is returned when the socket path does not exist.
var ErrSocketMissing = errors.New("delivery: socket not found")

// Sink accepts a complete document.
type Sink interface {
	Deliver(ctx context.Context, r io.Reader) error
}

// SocketSink streams documents over a unix stream socket.
type SocketSink struct {
	Path    string
	Timeout time.Duration
}

// NewSocketSink returns a sink for path, or the TVHeadend default.
func NewSocketSink(path string) *SocketSink {
	if path == "" {
		path = DefaultTVHeadendSocket
	}
	return &SocketSink{Path: path, Timeout: 60 * time.Second}
}

// Deliver connects, writes all of r and closes. There is no partial success.
// Outcome metrics are recorded by the caller.
func (s *SocketSink) Deliver(ctx context.Context, r io.Reader) error {
	logger := xglog.WithComponentFromContext(ctx, "delivery")

	if _, statErr := os.Stat(s.Path); statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSocketMissing, s.Path)
		}
		return fmt.Errorf("delivery: stat socket: %w", statErr)
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", s.Path)
	if err != nil {
		return fmt.Errorf("delivery: connect %s: %w", s.Path, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	n, err := io.Copy(conn, r)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("delivery: send to %s: %w", s.Path, err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("delivery: close %s: %w", s.Path, err)
	}

	logger.Info().
		Str(xglog.FieldEvent, "delivery.sent").
		Str(xglog.FieldSocket, s.Path).
		Int64("bytes", n).
		Msg("XMLTV delivered")
	return nil
}

// SendFile delivers the document persisted at path.
func SendFile(ctx context.Context, sink Sink, path string) error {
	f, err := os.Open(path) // #nosec G304 -- operator-provided output path
	if err != nil {
		return fmt.Errorf("delivery: open %s: %w", path, err)
	}
	defer f.Close()
	return sink.Deliver(ctx, f)
}
