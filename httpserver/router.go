package httpserver

import (
	"strings"

	"github.com/yd-915/DJI-COIN/app/config"
	"github.com/yd-915/DJI-COIN/common/log"
)

// HandlerFunc handles one request on a worker goroutine. path carries the
// part of the URI after the registered prefix. A handler must call
// WriteReply exactly once.
type HandlerFunc func(cfg *config.DJICoinConfig, req *Request, path string)

type pathHandler struct {
	prefix     string
	exactMatch bool
	handler    HandlerFunc
}

// Handlers for (sub)paths. Registration is not thread-safe: register before
// Start, unregister after Stop.
var pathHandlers []pathHandler

// RegisterHTTPHandler appends a handler. Lookup is first-match in
// registration order.
func RegisterHTTPHandler(prefix string, exactMatch bool, handler HandlerFunc) {
	log.Debug("Registering HTTP handler", "prefix", prefix, "exactmatch", exactMatch)
	pathHandlers = append(pathHandlers, pathHandler{prefix, exactMatch, handler})
}

// UnregisterHTTPHandler removes the first handler registered with the same
// prefix and match mode.
func UnregisterHTTPHandler(prefix string, exactMatch bool) {
	for i := range pathHandlers {
		if pathHandlers[i].prefix == prefix && pathHandlers[i].exactMatch == exactMatch {
			log.Debug("Unregistering HTTP handler", "prefix", prefix, "exactmatch", exactMatch)
			pathHandlers = append(pathHandlers[:i], pathHandlers[i+1:]...)
			return
		}
	}
}

// findPathHandler returns the first registered handler matching uri and the
// path tail after its prefix.
func findPathHandler(uri string) (HandlerFunc, string, bool) {
	for i := range pathHandlers {
		h := &pathHandlers[i]
		if h.exactMatch {
			if uri == h.prefix {
				return h.handler, "", true
			}
		} else if strings.HasPrefix(uri, h.prefix) {
			return h.handler, uri[len(h.prefix):], true
		}
	}
	return nil, "", false
}
