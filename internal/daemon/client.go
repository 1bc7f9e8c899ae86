package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a request when ctx carries no deadline.
const DefaultTimeout = 5 * time.Second

// Send delivers args to the daemon listening on socketPath and waits for
// the reply.
func Send(ctx context.Context, socketPath string, args map[string]string) (Response, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("connect to daemon at %s: %w", socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	req := Request{ID: uuid.NewString(), Args: args}
	if err := writeLine(conn, req); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}

	reader := bufio.NewReaderSize(conn, 4*1024)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read reply: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode reply: %w", err)
	}
	if resp.ID != req.ID {
		return Response{}, fmt.Errorf("reply id %q does not match request %q", resp.ID, req.ID)
	}
	return resp, nil
}
