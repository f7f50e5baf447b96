// Package httpserver is the embedded HTTP front-end of the node. It accepts
// connections on the configured RPC endpoints, admits requests by source
// address, dispatches them onto a bounded worker pool and serializes every
// reply back through a single reactor goroutine that owns all connection
// I/O. The JSON-RPC and REST modules plug into it through
// RegisterHTTPHandler.
package httpserver

import (
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/yd-915/DJI-COIN/app/config"
	"github.com/yd-915/DJI-COIN/app/params"
	"github.com/yd-915/DJI-COIN/common/log"
	"github.com/yd-915/DJI-COIN/common/utils"
)

// Maximum size of http request (request line + headers).
const maxHeadersSize = 8192

// Minimum supported HTTP body size. Twice the excessive block size is added
// to this value so RPC keeps working for large blocks.
const minSupportedBodySize = 0x02000000

// Server aggregates everything the front-end owns between Init and Stop:
// the reactor, the transport, the ACL, the work queue, the bound sockets and
// the worker pool.
type Server struct {
	cfg          *config.DJICoinConfig
	base         *EventBase
	http         *transport
	allowed      *allowList
	workQueue    *WorkQueue
	boundSockets []net.Listener

	started bool
	workers sync.WaitGroup
}

var g *Server

// InitHTTPServer builds the ACL, binds the listening sockets and creates the
// work queue. No goroutines are started yet. On error nothing is left
// allocated.
func InitHTTPServer(cfg *config.DJICoinConfig) error {
	allowed, err := newAllowList(cfg.RPC.AllowIP)
	if err != nil {
		log.Error(err.Error())
		return err
	}
	log.Debug("Allowing HTTP connections from", "subnets", allowed.String())

	base := NewEventBase()
	timeout := time.Duration(cfg.RPC.ServerTimeout) * time.Second
	if timeout <= 0 {
		timeout = config.DefaultHTTPServerTimeout * time.Second
	}
	maxBodySize := int64(minSupportedBodySize) + 2*int64(cfg.ExcessiveBlockSize)
	t := newTransport(base, timeout, maxHeadersSize, maxBodySize, cfg.RPC.TraceHTTP)

	s := &Server{
		cfg:     cfg,
		base:    base,
		http:    t,
		allowed: allowed,
	}
	t.setGenCallback(s.handleRequest)

	if err := s.bindAddresses(); err != nil {
		for _, ln := range s.boundSockets {
			ln.Close()
		}
		log.Error("Unable to bind any endpoint for RPC server")
		return err
	}

	workQueueDepth := cfg.RPC.WorkQueue
	if workQueueDepth < 1 {
		workQueueDepth = 1
	}
	log.Info("Initialized HTTP server", "work_queue_depth", workQueueDepth)
	s.workQueue = NewWorkQueue(workQueueDepth)

	g = s
	return nil
}

// bindAddresses resolves the endpoint list from the configuration. Without
// both rpcallowip and rpcbind only loopback is bound: an explicit bind list
// is refused rather than exposing the endpoint to the world without an ACL.
// Binding is best effort; Init succeeds if at least one endpoint bound.
func (s *Server) bindAddresses() error {
	port := s.cfg.RPC.Port
	if port <= 0 {
		port = params.BaseParams().RPCPort()
	}
	type endpoint struct {
		host string
		port int
	}
	var endpoints []endpoint
	allowSet := len(s.cfg.RPC.AllowIP) > 0
	bindSet := len(s.cfg.RPC.Bind) > 0
	if !(allowSet && bindSet) {
		endpoints = append(endpoints,
			endpoint{"::1", port},
			endpoint{"127.0.0.1", port})
		if allowSet {
			log.Info("WARNING: option -rpcallowip was specified without -rpcbind; this doesn't usually make sense")
		}
		if bindSet {
			log.Info("WARNING: option -rpcbind was ignored because -rpcallowip was not specified, refusing to allow everyone to connect")
		}
	} else {
		for _, b := range s.cfg.RPC.Bind {
			host, p := utils.SplitHostPort(b, port)
			endpoints = append(endpoints, endpoint{host, p})
		}
	}

	for _, e := range endpoints {
		log.Debug("Binding RPC", "address", e.host, "port", e.port)
		ln, err := s.http.bind(e.host, e.port)
		if err != nil {
			log.Error("Binding RPC failed", "address", e.host, "port", e.port, "err", err)
			continue
		}
		s.boundSockets = append(s.boundSockets, ln)
	}
	if len(s.boundSockets) == 0 {
		return errors.New("unable to bind any endpoint for RPC server")
	}
	return nil
}

// StartHTTPServer launches the reactor goroutine, the accept loops and the
// worker pool.
func StartHTTPServer() {
	s := g
	log.Debug("Starting HTTP server")
	rpcThreads := s.cfg.RPC.Threads
	if rpcThreads < 1 {
		rpcThreads = 1
	}
	log.Info("Starting HTTP server", "worker_threads", rpcThreads)

	s.started = true
	go func() {
		log.Debug("Entering http event loop")
		s.base.Dispatch()
		log.Debug("Exited http event loop")
	}()
	for _, ln := range s.boundSockets {
		s.http.serve(ln)
	}
	for i := 0; i < rpcThreads; i++ {
		s.workers.Add(1)
		go func(worker int) {
			defer s.workers.Done()
			l := log.With("worker", worker)
			l.Debug("HTTP worker started")
			s.workQueue.Run()
			l.Debug("HTTP worker exited")
		}(i)
	}
}

// InterruptHTTPServer swaps the generic callback for one that answers 503
// and stops the work queue, so workers drain out. In-flight handlers finish.
func InterruptHTTPServer() {
	log.Debug("Interrupting HTTP server")
	if g == nil {
		return
	}
	g.http.setGenCallback(rejectRequest)
	if g.workQueue != nil {
		g.workQueue.Interrupt()
	}
}

// StopHTTPServer joins the workers, destroys the queue with its pending
// items, unbinds the sockets, stops the reactor and drops every connection.
func StopHTTPServer() {
	s := g
	if s == nil {
		return
	}
	log.Debug("Stopping HTTP server")
	if s.workQueue != nil {
		log.Debug("Waiting for HTTP worker threads to exit")
		s.workers.Wait()
		// safe now that the workers are gone; pending requests answer 500
		// through the still-running reactor
		s.workQueue.Close()
		s.workQueue = nil
	}
	// Closing the listeners stops new connections. The loop itself exits
	// only on Break; the connections still open are dropped after it so
	// their readers return promptly.
	for _, ln := range s.boundSockets {
		ln.Close()
	}
	s.boundSockets = nil
	if s.started {
		log.Debug("Waiting for HTTP event thread to exit")
		s.base.Break()
		s.base.WaitExit()
		s.http.closeAllConns()
		s.http.waitIdle()
	}
	g = nil
	log.Debug("Stopped HTTP server")
}

// GetEventBase exposes the reactor base so other modules can schedule their
// own triggers. Valid between Init and Stop.
func GetEventBase() *EventBase {
	if g == nil {
		return nil
	}
	return g.base
}

// UpdateHTTPServerLogging toggles verbose transport logging. Returns whether
// the toggle took effect.
func UpdateHTTPServerLogging(enable bool) bool {
	if g == nil {
		return false
	}
	g.http.setDebug(enable)
	return true
}

// BoundListenerAddrs reports the bound listen addresses, for logging and for
// tests that bind port 0.
func BoundListenerAddrs() []string {
	if g == nil {
		return nil
	}
	addrs := make([]string, 0, len(g.boundSockets))
	for _, ln := range g.boundSockets {
		addrs = append(addrs, ln.Addr().String())
	}
	return addrs
}

// HTTPWorkItem carries one matched request to a worker.
type HTTPWorkItem struct {
	config *config.DJICoinConfig
	req    *Request
	path   string
	fn     HandlerFunc
}

func (w *HTTPWorkItem) Run() {
	w.fn(w.config, w.req, w.path)
	w.req.finalize()
}

// Destroy replies on behalf of a request that will never reach a worker.
func (w *HTTPWorkItem) Destroy() {
	w.req.finalize()
}

// handleRequest is the generic callback, run on the reactor for every parsed
// request. The connection reader stays paused until the reply is flushed, so
// nothing else reads the stream while the request is admitted and handled.
func (s *Server) handleRequest(req *Request) {
	peer := req.GetPeer()
	if s.http.trace {
		req.logRequestTrace()
	}

	// Early address-based allow check.
	if !s.allowed.Allowed(peerAddr(peer)) {
		log.Debug("HTTP request rejected: client network is not allowed RPC access", "peer", peer)
		req.WriteReply(StatusForbidden, nil)
		return
	}

	// Early reject unknown HTTP methods.
	method := req.GetRequestMethod()
	if method == MethodUnknown {
		log.Debug("HTTP request rejected: unknown HTTP request method", "peer", peer)
		req.WriteReply(StatusBadRequest, nil)
		return
	}

	uri := req.GetURI()
	kvs := []interface{}{
		"method", RequestMethodString(method),
		"uri", utils.SanitizeURI(uri, 100),
		"peer", peer,
	}
	if cmd := rpcCommand(req); cmd != "" {
		kvs = append(kvs, "command", cmd)
	}
	log.Debug("Received HTTP request", kvs...)

	handler, path, found := findPathHandler(uri)
	if !found {
		req.WriteReply(StatusNotFound, nil)
		return
	}

	item := &HTTPWorkItem{config: s.cfg, req: req, path: path, fn: handler}
	if s.workQueue.Enqueue(item) {
		// queue took ownership
		return
	}
	log.Error("request rejected because http work queue depth exceeded, it can be increased with the -rpcworkqueue= setting")
	metrics.RequestsDropped.Add(1)
	item.req.WriteReply(StatusInternalServerError, []byte("Work queue depth exceeded"))
}

// rejectRequest replaces the generic callback once shutdown begins.
func rejectRequest(req *Request) {
	log.Debug("Rejecting request while shutting down")
	req.WriteReply(StatusServiceUnavailable, nil)
}

func peerAddr(peer string) netip.Addr {
	ap, err := netip.ParseAddrPort(peer)
	if err != nil {
		return netip.Addr{}
	}
	return ap.Addr()
}

// rpcCommand pulls the JSON-RPC method name out of a JSON body, for the
// access log only.
func rpcCommand(req *Request) string {
	ct, ok := req.GetHeader("Content-Type")
	if !ok || !strings.HasPrefix(ct, "application/json") {
		return ""
	}
	v := gjson.GetBytes(req.ReadBody(false), "method")
	if v.Type != gjson.String {
		return ""
	}
	return v.String()
}
