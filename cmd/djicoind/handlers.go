package main

import (
	"bytes"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/tidwall/gjson"

	"github.com/yd-915/DJI-COIN/app/config"
	"github.com/yd-915/DJI-COIN/common/log"
	"github.com/yd-915/DJI-COIN/httpserver"
)

func registerHandlers() {
	httpserver.RegisterHTTPHandler("/", true, handleRPC)
	httpserver.RegisterHTTPHandler("/metrics", true, handleMetrics)
}

func unregisterHandlers() {
	httpserver.UnregisterHTTPHandler("/", true)
	httpserver.UnregisterHTTPHandler("/metrics", true)
}

// handleRPC is the root endpoint the JSON-RPC dispatcher mounts on. The bare
// daemon ships without command tables, so every well-formed call is answered
// with a method-not-found error.
func handleRPC(cfg *config.DJICoinConfig, req *httpserver.Request, path string) {
	if req.GetRequestMethod() != httpserver.MethodPost {
		req.WriteReply(httpserver.StatusMethodNotAllowed, []byte("JSON-RPC server handles only POST requests"))
		return
	}
	body := req.ReadBody(true)
	method := gjson.GetBytes(body, "method")
	if !method.Exists() {
		req.WriteHeader("Content-Type", "application/json")
		req.WriteReply(httpserver.StatusBadRequest,
			[]byte(`{"result":null,"error":{"code":-32700,"message":"Parse error"},"id":null}`))
		return
	}
	id := "null"
	if v := gjson.GetBytes(body, "id"); v.Exists() {
		id = v.Raw
	}
	req.WriteHeader("Content-Type", "application/json")
	req.WriteReply(httpserver.StatusOK,
		[]byte(fmt.Sprintf(`{"result":null,"error":{"code":-32601,"message":"Method not found"},"id":%s}`, id)))
}

func handleMetrics(cfg *config.DJICoinConfig, req *httpserver.Request, path string) {
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		req.WriteReply(httpserver.StatusInternalServerError, []byte(err.Error()))
		return
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			log.Error("encoding metrics failed", "err", err)
			req.WriteReply(httpserver.StatusInternalServerError, []byte(err.Error()))
			return
		}
	}
	req.WriteHeader("Content-Type", string(expfmt.FmtText))
	req.WriteReply(httpserver.StatusOK, buf.Bytes())
}
