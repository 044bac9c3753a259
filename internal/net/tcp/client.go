package tcp

import (
	"net"
	"sync"
	"time"
)

// client adapts one TCP connection to the observer contract. Writes come from
// the connection goroutine and the tick goroutine, so they are serialized
// behind a mutex.
type client struct {
	mu           sync.Mutex
	conn         net.Conn
	writeTimeout time.Duration
	closed       bool
}

func newClient(conn net.Conn, writeTimeout time.Duration) *client {
	return &client{conn: conn, writeTimeout: writeTimeout}
}

func (c *client) SendLine(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return net.ErrClosed
	}
	if c.writeTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.conn.Write([]byte(line))
	return err
}

func (c *client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

func (c *client) remoteAddr() string {
	return c.conn.RemoteAddr().String()
}
