package httpserver

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/yd-915/DJI-COIN/common/log"
	"github.com/yd-915/DJI-COIN/common/shutdown"
)

// RequestMethod is the parsed HTTP method of a request. Methods outside the
// set below are reported as MethodUnknown and rejected at admission.
type RequestMethod int

const (
	MethodUnknown RequestMethod = iota
	MethodGet
	MethodPost
	MethodHead
	MethodPut
	MethodOptions
)

// RequestMethodString is for logging only.
func RequestMethodString(m RequestMethod) string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodHead:
		return "HEAD"
	case MethodPut:
		return "PUT"
	case MethodOptions:
		return "OPTIONS"
	default:
		return "unknown"
	}
}

// NameValuePair is one header in wire order.
type NameValuePair struct {
	Name  string
	Value string
}

// Request wraps one in-flight HTTP exchange. A request is owned by exactly
// one goroutine at a time: it is created by the connection parser, handed to
// the reactor, moved onto the work queue and finally, inside WriteReply,
// transferred back to the reactor which flushes the reply. After WriteReply
// returns no other method may be called on it.
type Request struct {
	t    *transport
	conn *serverConn

	method string
	uri    string
	proto  string
	peer   string

	inHeaders  []NameValuePair
	body       []byte
	outHeaders []NameValuePair
	replyBody  []byte

	replySent bool
	closeConn bool
	replyDone chan bool
}

// GetPeer returns the peer "address:port".
func (r *Request) GetPeer() string {
	return r.peer
}

// GetURI returns the raw request target.
func (r *Request) GetURI() string {
	return r.uri
}

func (r *Request) GetRequestMethod() RequestMethod {
	switch r.method {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "HEAD":
		return MethodHead
	case "PUT":
		return MethodPut
	case "OPTIONS":
		return MethodOptions
	default:
		return MethodUnknown
	}
}

// GetHeader looks up an input header, case-insensitively.
func (r *Request) GetHeader(hdr string) (string, bool) {
	for i := range r.inHeaders {
		if strings.EqualFold(r.inHeaders[i].Name, hdr) {
			return r.inHeaders[i].Value, true
		}
	}
	return "", false
}

// GetAllInputHeaders returns the request headers in wire order.
func (r *Request) GetAllInputHeaders() []NameValuePair {
	return r.inHeaders
}

// GetAllOutputHeaders returns the headers written so far, in write order.
func (r *Request) GetAllOutputHeaders() []NameValuePair {
	return r.outHeaders
}

// ReadBody returns the entire body. With drain the input buffer is emptied,
// so a second call returns nothing.
func (r *Request) ReadBody(drain bool) []byte {
	ret := r.body
	if drain {
		r.body = nil
	}
	return ret
}

// WriteHeader appends an output header. Must precede WriteReply.
func (r *Request) WriteHeader(hdr string, value string) {
	r.outHeaders = append(r.outHeaders, NameValuePair{hdr, value})
}

// WriteReply schedules the reply. The body is copied here, on the calling
// goroutine; the actual socket write happens on the reactor, which is the
// only goroutine allowed to touch the connection. Calling WriteReply twice,
// or calling anything else on the request afterwards, is a programmer error.
func (r *Request) WriteReply(status int, body []byte) {
	if r.replySent || r.t == nil {
		panic("httpserver: WriteReply called twice on the same request")
	}
	if shutdown.Requested() {
		r.WriteHeader("Connection", "close")
		r.closeConn = true
	}
	if r.t.trace {
		r.logReplyTrace(status, body)
	}
	r.replyBody = append([]byte(nil), body...)
	t := r.t
	// Mark the reply sent before arming the trigger so the safety net can
	// never fire a second write for this request.
	r.replySent = true
	r.t = nil
	ev := NewEvent(t.base, true, func() {
		t.sendReply(r, status)
	})
	ev.Trigger(nil)
}

// finalize is the destructor safety net: a request that reached the
// dispatcher but never replied is answered with a synthetic 500.
func (r *Request) finalize() {
	if !r.replySent && r.t != nil {
		log.Error("Unhandled request", "peer", r.peer, "uri", r.uri)
		r.WriteReply(StatusInternalServerError, []byte("Unhandled request"))
	}
}

func (r *Request) logRequestTrace() {
	var sb strings.Builder
	for _, h := range r.inHeaders {
		fmt.Fprintf(&sb, "%s: %s\n", h.Name, h.Value)
	}
	content := r.ReadBody(false)
	// Nothing here is sanitized: tracing is an advanced debugging option not
	// intended for general use.
	log.Info(fmt.Sprintf("<httptrace> Request from %s, method: %q, URI: %q, headers: %d, content: %d bytes\n"+
		"--- HEADERS ---\n%s--- CONTENT ---\n%s",
		r.peer, r.method, r.uri, len(r.inHeaders), len(content), sb.String(), content))
}

func (r *Request) logReplyTrace(status int, body []byte) {
	var sb strings.Builder
	isBinary := false
	for _, h := range r.outHeaders {
		if h.Name == "Content-Type" && h.Value == "application/octet-stream" {
			isBinary = true
		}
		fmt.Fprintf(&sb, "%s: %s\n", h.Name, h.Value)
	}
	contentDesc := ""
	content := string(body)
	if isBinary {
		// Binary output is hex encoded to keep log files tidy.
		contentDesc = " (binary data, hex encoded)"
		content = hex.EncodeToString(body)
	}
	log.Info(fmt.Sprintf("<httptrace> Writing reply to %s, status: %d, headers: %d, content: %d bytes\n"+
		"--- HEADERS ---\n%s--- CONTENT%s ---\n%s",
		r.peer, status, len(r.outHeaders), len(body), sb.String(), contentDesc, content))
}
