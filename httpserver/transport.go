package httpserver

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http/httputil"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/yd-915/DJI-COIN/common/log"
)

// HTTP status codes written by the server core.
const (
	StatusOK                          = 200
	StatusBadRequest                  = 400
	StatusForbidden                   = 403
	StatusNotFound                    = 404
	StatusMethodNotAllowed            = 405
	StatusRequestEntityTooLarge       = 413
	StatusRequestHeaderFieldsTooLarge = 431
	StatusInternalServerError         = 500
	StatusServiceUnavailable          = 503
)

func statusText(status int) string {
	switch status {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusForbidden:
		return "Forbidden"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusRequestEntityTooLarge:
		return "Request Entity Too Large"
	case StatusRequestHeaderFieldsTooLarge:
		return "Request Header Fields Too Large"
	case StatusInternalServerError:
		return "Internal Server Error"
	case StatusServiceUnavailable:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}

const rfc1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

// onSendReply is a test shim observing every reply flush on the reactor.
var onSendReply func(*Request)

// transport owns the listening sockets and per-connection I/O. Parsed
// requests are posted to the event base; the dispatch goroutine is the only
// one that ever writes to a connection.
type transport struct {
	base           *EventBase
	timeout        time.Duration
	maxHeadersSize int
	maxBodySize    int64
	trace          bool

	gencb atomic.Value // func(*Request)
	debug int32

	mtx      sync.Mutex
	conns    map[*serverConn]struct{}
	acceptWG sync.WaitGroup
	connWG   sync.WaitGroup
}

func newTransport(base *EventBase, timeout time.Duration, maxHeadersSize int, maxBodySize int64, trace bool) *transport {
	return &transport{
		base:           base,
		timeout:        timeout,
		maxHeadersSize: maxHeadersSize,
		maxBodySize:    maxBodySize,
		trace:          trace,
		conns:          make(map[*serverConn]struct{}),
	}
}

func (t *transport) setGenCallback(cb func(*Request)) {
	t.gencb.Store(cb)
}

func (t *transport) genCallback() func(*Request) {
	return t.gencb.Load().(func(*Request))
}

func (t *transport) setDebug(enable bool) {
	v := int32(0)
	if enable {
		v = 1
	}
	atomic.StoreInt32(&t.debug, v)
}

func (t *transport) debugEnabled() bool {
	return atomic.LoadInt32(&t.debug) == 1
}

// bind opens a listening socket without accepting on it yet.
func (t *transport) bind(host string, port int) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
}

// serve accepts connections on ln until the listener is closed.
func (t *transport) serve(ln net.Listener) {
	t.acceptWG.Add(1)
	go func() {
		defer t.acceptWG.Done()
		for {
			nc, err := ln.Accept()
			if err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					continue
				}
				return
			}
			sc := &serverConn{nc: nc}
			t.trackConn(sc, true)
			t.connWG.Add(1)
			go t.connLoop(sc)
		}
	}()
}

func (t *transport) trackConn(sc *serverConn, add bool) {
	t.mtx.Lock()
	if add {
		t.conns[sc] = struct{}{}
	} else {
		delete(t.conns, sc)
	}
	t.mtx.Unlock()
}

// closeAllConns kicks readers blocked on idle connections during Stop.
func (t *transport) closeAllConns() {
	t.mtx.Lock()
	for sc := range t.conns {
		sc.nc.Close()
	}
	t.mtx.Unlock()
}

// waitIdle blocks until every accept loop and connection reader has exited.
func (t *transport) waitIdle() {
	t.acceptWG.Wait()
	t.connWG.Wait()
}

// serverConn is one accepted connection. Reads happen on its reader
// goroutine, writes only on the reactor.
type serverConn struct {
	nc net.Conn
}

// connLoop parses one request at a time and hands it to the reactor. It does
// not read ahead while a request is in flight: parsing resumes only after
// the reply for the previous request has been flushed, so the reactor and
// the parser never touch the stream concurrently.
func (t *transport) connLoop(sc *serverConn) {
	defer t.connWG.Done()
	defer t.trackConn(sc, false)
	defer sc.nc.Close()

	lr := &limitReader{conn: sc.nc}
	br := bufio.NewReader(lr)
	for {
		sc.nc.SetReadDeadline(time.Now().Add(t.timeout))
		lr.remain = t.maxHeadersSize
		req, status, err := t.readRequest(sc, br, lr)
		if err != nil {
			if status != 0 {
				if t.debugEnabled() {
					log.Debug("Rejecting malformed HTTP request", "peer", sc.nc.RemoteAddr().String(), "status", status, "err", err)
				}
				done := make(chan struct{})
				t.base.Post(func() {
					t.writeError(sc, status)
					close(done)
				})
				select {
				case <-done:
				case <-t.base.exited():
				}
			}
			return
		}
		cb := t.genCallback()
		t.base.Post(func() { cb(req) })
		select {
		case keepAlive := <-req.replyDone:
			if !keepAlive {
				return
			}
		case <-t.base.exited():
			return
		}
	}
}

var errHeadersTooLarge = errors.New("request header block too large")

// limitReader caps how many bytes the header block of one request may
// occupy. remain < 0 lifts the cap while the body is read.
type limitReader struct {
	conn   net.Conn
	remain int
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.remain == 0 {
		return 0, errHeadersTooLarge
	}
	if l.remain > 0 && len(p) > l.remain {
		p = p[:l.remain]
	}
	n, err := l.conn.Read(p)
	if l.remain > 0 {
		l.remain -= n
	}
	return n, err
}

// readRequest parses one request including its whole body. A non-zero status
// on error means the connection deserves that error reply before closing;
// status 0 means close silently (EOF, timeout).
func (t *transport) readRequest(sc *serverConn, br *bufio.Reader, lr *limitReader) (*Request, int, error) {
	tp := textproto.NewReader(br)

	line, err := tp.ReadLine()
	// tolerate a stray CRLF between pipelined requests
	for err == nil && line == "" {
		line, err = tp.ReadLine()
	}
	if err != nil {
		if err == errHeadersTooLarge {
			return nil, StatusRequestHeaderFieldsTooLarge, err
		}
		return nil, 0, err
	}

	method, rest, ok1 := strings.Cut(line, " ")
	target, proto, ok2 := strings.Cut(rest, " ")
	if !ok1 || !ok2 || method == "" || target == "" || !strings.HasPrefix(proto, "HTTP/1.") {
		return nil, StatusBadRequest, errors.Errorf("malformed request line %q", line)
	}
	if method == "CONNECT" {
		return nil, StatusMethodNotAllowed, errors.New("CONNECT is not serviced")
	}

	var inHeaders []NameValuePair
	for {
		l, err := tp.ReadLine()
		if err != nil {
			if err == errHeadersTooLarge {
				return nil, StatusRequestHeaderFieldsTooLarge, err
			}
			return nil, 0, err
		}
		if l == "" {
			break
		}
		name, value, ok := strings.Cut(l, ":")
		if !ok || name == "" || strings.ContainsAny(name, " \t") {
			return nil, StatusBadRequest, errors.Errorf("malformed header line %q", l)
		}
		inHeaders = append(inHeaders, NameValuePair{name, strings.TrimSpace(value)})
	}

	req := &Request{
		t:         t,
		conn:      sc,
		method:    method,
		uri:       target,
		proto:     proto,
		peer:      sc.nc.RemoteAddr().String(),
		inHeaders: inHeaders,
		replyDone: make(chan bool, 1),
	}
	connHdr, _ := req.GetHeader("Connection")
	if proto == "HTTP/1.0" {
		req.closeConn = !strings.EqualFold(connHdr, "keep-alive")
	} else {
		req.closeConn = strings.EqualFold(connHdr, "close")
	}

	// headers are done, the cap no longer applies
	lr.remain = -1

	te, _ := req.GetHeader("Transfer-Encoding")
	cl, hasCL := req.GetHeader("Content-Length")
	switch {
	case strings.EqualFold(te, "chunked"):
		body, err := io.ReadAll(io.LimitReader(httputil.NewChunkedReader(br), t.maxBodySize+1))
		if err != nil {
			return nil, StatusBadRequest, err
		}
		if int64(len(body)) > t.maxBodySize {
			return nil, StatusRequestEntityTooLarge, errors.New("chunked body too large")
		}
		req.body = body
	case hasCL:
		n, err := strconv.ParseInt(cl, 10, 64)
		if err != nil || n < 0 {
			return nil, StatusBadRequest, errors.Errorf("bad Content-Length %q", cl)
		}
		if n > t.maxBodySize {
			return nil, StatusRequestEntityTooLarge, errors.Errorf("body of %d bytes too large", n)
		}
		body := make([]byte, n)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, 0, err
		}
		req.body = body
	}
	return req, 0, nil
}

// sendReply runs on the reactor and flushes one reply. It signals the
// connection reader whether the connection stays open.
func (t *transport) sendReply(req *Request, status int) {
	if onSendReply != nil {
		onSendReply(req)
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "HTTP/1.1 %d %s\r\n", status, statusText(status))
	var hasLength, hasDate bool
	for _, h := range req.outHeaders {
		if strings.EqualFold(h.Name, "Content-Length") {
			hasLength = true
		}
		if strings.EqualFold(h.Name, "Date") {
			hasDate = true
		}
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}
	if !hasDate {
		fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().UTC().Format(rfc1123GMT))
	}
	if !hasLength {
		fmt.Fprintf(&buf, "Content-Length: %d\r\n", len(req.replyBody))
	}
	buf.WriteString("\r\n")
	if req.method != "HEAD" {
		buf.Write(req.replyBody)
	}

	req.conn.nc.SetWriteDeadline(time.Now().Add(t.timeout))
	if _, err := req.conn.nc.Write(buf.Bytes()); err != nil {
		if t.debugEnabled() {
			log.Debug("Failed to write HTTP reply", "peer", req.peer, "err", err)
		}
		req.closeConn = true
	}
	metrics.RequestsServed.With("status", strconv.Itoa(status)).Add(1)
	req.replyDone <- !req.closeConn
}

// writeError runs on the reactor and answers a request the parser could not
// turn into a Request. The connection is closed by the caller.
func (t *transport) writeError(sc *serverConn, status int) {
	body := statusText(status)
	sc.nc.SetWriteDeadline(time.Now().Add(t.timeout))
	fmt.Fprintf(sc.nc, "HTTP/1.1 %d %s\r\nContent-Type: text/plain\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, statusText(status), len(body), body)
	metrics.RequestsServed.With("status", strconv.Itoa(status)).Add(1)
}
