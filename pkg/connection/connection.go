// SCTP transport support. Diameter peers conventionally run over SCTP
// (RFC 6733 §2.1) as often as TCP, specifically for the property TCP
// lacks: multi-homed failover between a peer's redundant network paths
// without tearing down the association, and multiple independent
// streams within one association so head-of-line blocking on one
// exchange doesn't stall another. Go's net package has no SCTP support
// at all, so ListenSCTP/DialSCTP below talk to socket(2)/bind(2)/
// listen(2)/connect(2) directly through golang.org/x/sys/unix and wrap
// the resulting file descriptor as an ordinary net.Conn/net.Listener;
// WriteStream uses the same raw-fd access to target a specific SCTP
// output stream via an SCTP_SNDRCV ancillary message, the one piece of
// this wrapper's existing interface (stream selection) that a TCP
// connection has no use for at all.
package connection

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ConnectionConfig holds configuration for a connection
type ConnectionConfig struct {
	ReadTimeout  time.Duration // Maximum duration before timing out read
	WriteTimeout time.Duration // Maximum duration before timing out write
	BufferSize   int           // Buffer size for read/write operations
	Transport    string        // "tcp" (default) or "sctp"; governs WriteStream's stream selection
}

// DefaultConnectionConfig returns default connection configuration
func DefaultConnectionConfig() *ConnectionConfig {
	return &ConnectionConfig{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BufferSize:   4096,
		Transport:    "tcp",
	}
}

// ConfigForTransport returns the default connection configuration with
// Transport overridden, for callers that know up front whether they
// dialed or accepted over SCTP.
func ConfigForTransport(transport string) *ConnectionConfig {
	cfg := DefaultConnectionConfig()
	cfg.Transport = transport
	return cfg
}

// liveSwitchReader is a switchReader that's safe for concurrent reads and switches
type liveSwitchReader struct {
	sync.Mutex
	r         io.Reader
	pr        *io.PipeReader
	pipeCopyF func()
}

func (sr *liveSwitchReader) Read(p []byte) (n int, err error) {
	sr.Lock()
	// Check if closeNotifier was created prior to this Read call & start it
	if sr.pr != nil && sr.pipeCopyF != nil {
		go sr.pipeCopyF()
		sr.r = sr.pr
		sr.pr = nil
		sr.pipeCopyF = nil
	}
	r := sr.r
	sr.Unlock()
	return r.Read(p)
}

// conn represents a Diameter connection (used by both server and client)
type conn struct {
	rwc      net.Conn
	sr       liveSwitchReader
	buf      *bufio.ReadWriter
	tlsState *tls.ConnectionState
	config   *ConnectionConfig

	mu           sync.Mutex
	closeNotifyc chan struct{}
	clientGone   bool
	ctx          context.Context
	ctxMu        sync.Mutex
}

// NewConn creates a new connection wrapper
func NewConn(rwc net.Conn, config *ConnectionConfig) Conn {
	if config == nil {
		config = DefaultConnectionConfig()
	}

	c := &conn{
		rwc:    rwc,
		sr:     liveSwitchReader{r: rwc},
		config: config,
		ctx:    context.Background(),
	}
	c.buf = bufio.NewReadWriter(bufio.NewReader(&c.sr), bufio.NewWriter(rwc))

	// Check for TLS connection
	if tlsConn, ok := rwc.(*tls.Conn); ok {
		state := tlsConn.ConnectionState()
		c.tlsState = &state
	}

	return c
}

// Write writes a message to the connection
func (c *conn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.WriteTimeout > 0 {
		c.rwc.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}

	// Use bufio.Writer but ensure proper flushing
	n, err := c.buf.Writer.Write(b)
	if err != nil {
		return 0, err
	}

	// Force flush to ensure data is sent
	if err = c.buf.Writer.Flush(); err != nil {
		return 0, err
	}

	return n, nil
}

// WriteStream writes b to the connection, targeting SCTP output stream
// `stream` when this connection's transport is SCTP (Diameter-over-SCTP
// conventionally keeps peer-management traffic on stream 0 and spreads
// data traffic across the rest, RFC 6733 §2.1.1, so one slow answer
// doesn't head-of-line-block an unrelated exchange). TCP has no stream
// concept, so stream is ignored and this is a plain Write there.
func (c *conn) WriteStream(b []byte, stream uint) (int, error) {
	if c.config.Transport != "sctp" {
		return c.Write(b)
	}
	sc, ok := c.rwc.(syscall.Conn)
	if !ok {
		return c.Write(b)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return c.Write(b)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config.WriteTimeout > 0 {
		c.rwc.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}

	cmsg := sctpSndrcvCmsg(uint16(stream))
	var n int
	var werr error
	if err := raw.Write(func(fd uintptr) bool {
		n, werr = unix.SendmsgN(int(fd), b, cmsg, nil, 0)
		return werr != unix.EAGAIN
	}); err != nil {
		return 0, err
	}
	return n, werr
}

// Close closes the connection
func (c *conn) Close() error {
	return c.rwc.Close()
}

// LocalAddr returns the local address of the connection
func (c *conn) LocalAddr() net.Addr {
	return c.rwc.LocalAddr()
}

// RemoteAddr returns the peer address of the connection
func (c *conn) RemoteAddr() net.Addr {
	return c.rwc.RemoteAddr()
}

// TLS returns the TLS connection state, or nil
func (c *conn) TLS() *tls.ConnectionState {
	return c.tlsState
}

// CloseNotify implements the CloseNotifier interface
func (c *conn) CloseNotify() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeNotifyc == nil {
		c.closeNotifyc = make(chan struct{})

		pr, pw := io.Pipe()
		c.sr.Lock()
		readSource := c.sr.r
		c.sr.pr = pr
		c.sr.pipeCopyF = func() {
			_, err := io.Copy(pw, readSource)
			if err == nil {
				err = io.EOF
			}
			pw.CloseWithError(err)
			c.notifyClientGone()
		}
		c.sr.Unlock()
	}
	return c.closeNotifyc
}

func (c *conn) notifyClientGone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closeNotifyc != nil && !c.clientGone {
		close(c.closeNotifyc)
		c.clientGone = true
	}
}

// Context returns the internal context or a new context.Background
func (c *conn) Context() context.Context {
	c.ctxMu.Lock()
	defer c.ctxMu.Unlock()
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	return c.ctx
}

// SetContext replaces the internal context with the given one
func (c *conn) SetContext(ctx context.Context) {
	c.ctxMu.Lock()
	c.ctx = ctx
	c.ctxMu.Unlock()
}

// Connection returns the underlying network connection
func (c *conn) Connection() net.Conn {
	return c.rwc
}

// SCTP socket option levels/ancillary-message types from RFC 6458.
// golang.org/x/sys/unix does not export these.
const (
	solSCTP             = 132
	sctpEvents          = 11
	sctpSockoptBindxAdd = 100
	sctpCmsgSndrcv      = 0
)

// ListenSCTP opens a listening SCTP socket bound to every address in
// addrs (multi-homing): the first address is passed to bind(2), and
// any additional addresses are attached via SCTP_SOCKOPT_BINDX_ADD so
// the association can fail over between them without the remote peer
// seeing a new connection. This uses the one-to-one style SCTP socket
// (SOCK_STREAM with IPPROTO_SCTP) rather than one-to-many, since
// one-to-one sockets support plain listen/accept semantics and every
// accepted association can be handed to the rest of the codebase as an
// unremarkable net.Conn.
func ListenSCTP(addrs []string, port int) (net.Listener, error) {
	if len(addrs) == 0 {
		return nil, fmt.Errorf("connection: ListenSCTP requires at least one address")
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_SCTP)
	if err != nil {
		return nil, fmt.Errorf("connection: sctp socket: %w", err)
	}

	sa, err := sockaddrInet4(addrs[0], port)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connection: sctp bind %s: %w", addrs[0], err)
	}
	for _, extra := range addrs[1:] {
		if err := bindxAdd(fd, extra, port); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("connection: sctp bindx %s: %w", extra, err)
		}
	}
	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connection: sctp listen: %w", err)
	}
	if err := subscribeAssociationEvents(fd); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connection: sctp subscribe events: %w", err)
	}

	f := os.NewFile(uintptr(fd), fmt.Sprintf("sctp-listener-%s:%d", addrs[0], port))
	l, err := net.FileListener(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("connection: wrap sctp listener: %w", err)
	}
	return l, nil
}

// DialSCTP establishes a single-homed SCTP association. Frontline's
// RoleServer peers are always dialed into rather than out of, and
// internal/peer.Runtime's RoleClient dial path only ever has one
// configured local address, so multi-homed dial-out (binding several
// local addresses before connect(2)) isn't exposed here.
func DialSCTP(raddr string, port int) (net.Conn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_SCTP)
	if err != nil {
		return nil, fmt.Errorf("connection: sctp socket: %w", err)
	}

	sa, err := sockaddrInet4(raddr, port)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	if err := unix.Connect(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connection: sctp connect %s: %w", raddr, err)
	}

	f := os.NewFile(uintptr(fd), fmt.Sprintf("sctp-conn-%s:%d", raddr, port))
	c, err := net.FileConn(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("connection: wrap sctp conn: %w", err)
	}
	return c, nil
}

func sockaddrInet4(host string, port int) (unix.Sockaddr, error) {
	ip := net.ParseIP(host)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip4", host)
		if err != nil {
			return nil, fmt.Errorf("connection: resolve %s: %w", host, err)
		}
		ip = resolved.IP
	}
	v4 := ip.To4()
	if v4 == nil {
		return nil, fmt.Errorf("connection: %s is not an IPv4 address", host)
	}
	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], v4)
	return sa, nil
}

// bindxAdd attaches one additional local address to an already-bound
// SCTP socket via SCTP_SOCKOPT_BINDX_ADD (RFC 6458 §9.1). The option
// value is a single packed sockaddr_in.
func bindxAdd(fd int, host string, port int) error {
	sa, err := sockaddrInet4(host, port)
	if err != nil {
		return err
	}
	raw, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return fmt.Errorf("connection: unsupported sockaddr type for bindx")
	}
	buf := make([]byte, 16)
	buf[0] = unix.AF_INET
	buf[2] = byte(raw.Port >> 8)
	buf[3] = byte(raw.Port)
	copy(buf[4:8], raw.Addr[:])
	return unix.SetsockoptString(fd, solSCTP, sctpSockoptBindxAdd, string(buf))
}

// subscribeAssociationEvents enables SCTP_EVENTS notifications for
// association-state and shutdown events (RFC 6458 §6.2), so a future
// accept-loop iteration can distinguish a graceful SHUTDOWN from
// COMM_LOST without waiting for a read to fail first.
func subscribeAssociationEvents(fd int) error {
	events := make([]byte, 12)
	events[1] = 1 // sctp_data_io_event
	events[3] = 1 // sctp_association_event
	events[4] = 1 // sctp_shutdown_event
	return unix.SetsockoptString(fd, solSCTP, sctpEvents, string(events))
}

// sctpSndrcvCmsg builds the SCTP_SNDRCV ancillary message (RFC 6458
// §5.3.2) that selects an output stream for one sendmsg(2) call, the
// way WriteStream targets a specific SCTP stream.
func sctpSndrcvCmsg(stream uint16) []byte {
	info := make([]byte, 20) // struct sctp_sndrcvinfo; sinfo_stream is its first field
	binary.LittleEndian.PutUint16(info[0:2], stream)

	buf := make([]byte, unix.CmsgSpace(len(info)))
	h := (*unix.Cmsghdr)(unsafe.Pointer(&buf[0]))
	h.Len = uint64(unix.CmsgLen(len(info)))
	h.Level = int32(solSCTP)
	h.Type = sctpCmsgSndrcv
	copy(buf[unix.CmsgLen(0):], info)
	return buf
}

// ReadMessage reads the next message from the connection
func (c *conn) ReadMessage() (*Message, error) {
	if c.config.ReadTimeout > 0 {
		c.rwc.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}

	buf := newReaderBuffer()
	defer putReaderBuffer(buf)
	m := &Message{}
	err := m.readHeader(c.buf.Reader, buf)
	if err != nil {
		return nil, err
	}
	if err = m.readBody(c.buf.Reader, buf); err != nil {
		return m, err
	}
	return m, nil
}
