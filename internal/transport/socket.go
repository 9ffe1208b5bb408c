package transport

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"eppclient/pkg/errors"
)

const (
	defaultSocketTimeout = 30 * time.Second
	// frameLimit bounds a single reply; anything larger is a broken peer.
	frameLimit = 16 << 20
)

// SocketConfig configures the raw TLS transport.
type SocketConfig struct {
	Addr               string
	Timeout            time.Duration
	ClientCertFile     string
	ClientKeyFile      string
	InsecureSkipVerify bool
	ServerName         string
}

// SocketClient speaks the protocol's TCP mapping: one persistent TLS
// connection, every document framed by a 4-byte length header that counts
// itself. The server volunteers a greeting frame right after the
// handshake; it is read at connect time and kept as the banner so request
// and reply frames stay in lockstep.
type SocketClient struct {
	cfg    SocketConfig
	tlsCfg *tls.Config

	mu     sync.Mutex
	conn   net.Conn
	banner []byte
}

// NewSocketClient builds the transport without connecting; the first Send
// dials.
func NewSocketClient(cfg SocketConfig) (*SocketClient, error) {
	if cfg.Addr == "" {
		return nil, errors.New(errors.CodeConfiguration, "socket transport requires a server address")
	}
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		ServerName:         cfg.ServerName,
	}
	if cfg.ClientCertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeConfiguration, "load client certificate")
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultSocketTimeout
	}
	return &SocketClient{cfg: cfg, tlsCfg: tlsCfg}, nil
}

// Banner returns the greeting frame the server sent on connect, or nil if
// no connection has been made yet.
func (c *SocketClient) Banner() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banner
}

func (c *SocketClient) Send(ctx context.Context, body []byte) (*Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return nil, err
		}
	}

	deadline := time.Now().Add(c.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	if err := writeFrame(c.conn, body); err != nil {
		c.drop()
		return nil, errors.Wrap(err, errors.CodeTransport, "write request frame")
	}
	reply, err := readFrame(c.conn)
	if err != nil {
		c.drop()
		return nil, errors.Wrap(err, errors.CodeTransport, "read reply frame")
	}
	return &Reply{Body: reply}, nil
}

// Close tears down the connection; the next Send reconnects.
func (c *SocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *SocketClient) connect(ctx context.Context) error {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: c.cfg.Timeout},
		Config:    c.tlsCfg,
	}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr)
	if err != nil {
		return errors.Wrap(err, errors.CodeTransport, "dial registry server")
	}
	_ = conn.SetDeadline(time.Now().Add(c.cfg.Timeout))
	banner, err := readFrame(conn)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, errors.CodeTransport, "read server greeting")
	}
	c.conn = conn
	c.banner = banner
	return nil
}

func (c *SocketClient) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func writeFrame(w io.Writer, body []byte) error {
	var header [4]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(body)+4))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	total := binary.BigEndian.Uint32(header[:])
	if total < 4 || total > frameLimit {
		return nil, errors.Newf(errors.CodeTransport, "invalid frame length %d", total)
	}
	body := make([]byte, total-4)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}
