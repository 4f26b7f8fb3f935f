package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/astorre88/chat/internal/protocol"
)

// connection is one dial attempt's live Conn plus the keep-alive goroutine
// it owns. It is discarded entirely when the Conn closes.
type connection struct {
	id   string
	conn Conn
	log  zerolog.Logger

	writeMu sync.Mutex // serialises all conn writes (commands, bootstrap, ping)

	stopPing context.CancelFunc
	pingDone chan struct{}
}

func newConnection(conn Conn, log zerolog.Logger) *connection {
	id := uuid.NewString()
	return &connection{
		id:   id,
		conn: conn,
		log:  log.With().Str("conn", id).Logger(),
	}
}

func (c *connection) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.Write(data)
}

// startKeepAlive writes the keep-alive literal every interval until
// stopKeepAlive is called or ctx ends. A failed write is logged and
// otherwise ignored: only the read side decides that the connection is gone.
func (c *connection) startKeepAlive(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ctx, c.stopPing = context.WithCancel(ctx)
	c.pingDone = make(chan struct{})

	go func() {
		defer close(c.pingDone)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.write([]byte(protocol.KeepAlive)); err != nil {
					c.log.Warn().Err(err).Msg("keep-alive send failed")
				}
				if p, ok := c.conn.(Pinger); ok {
					if err := p.Ping(); err != nil {
						c.log.Warn().Err(err).Msg("ping control frame failed")
					}
				}
			}
		}
	}()
}

// stopKeepAlive cancels the keep-alive goroutine and waits for it, so no
// tick can reach the Conn after this returns.
func (c *connection) stopKeepAlive() {
	if c.stopPing == nil {
		return
	}
	c.stopPing()
	<-c.pingDone
}
