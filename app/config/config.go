package config

import (
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/log"

	commonlog "github.com/yd-915/DJI-COIN/common/log"
)

const (
	// DefaultHTTPThreads is the worker pool size behind the RPC work queue.
	DefaultHTTPThreads = 4
	// DefaultHTTPWorkQueue is the maximum number of queued RPC requests.
	DefaultHTTPWorkQueue = 16
	// DefaultHTTPServerTimeout is the per-connection idle timeout in seconds.
	DefaultHTTPServerTimeout = 30

	// DefaultExcessiveBlockSize mirrors the chain's excessive block limit and
	// scales the maximum accepted HTTP body.
	DefaultExcessiveBlockSize = 32000000
)

type DJICoinContext struct {
	Config *DJICoinConfig
	Logger log.Logger
}

func NewDefaultContext() *DJICoinContext {
	return &DJICoinContext{DefaultDJICoinConfig(), commonlog.NewConsoleLogger()}
}

type DJICoinConfig struct {
	RPC *RPCConfig `mapstructure:"rpc"`

	// ExcessiveBlockSize is the chain's configured excessive block size in
	// bytes. The HTTP server accepts bodies up to twice this above its floor.
	ExcessiveBlockSize uint64 `mapstructure:"excessiveblocksize"`
}

// RPCConfig holds every option the embedded HTTP front-end consumes.
type RPCConfig struct {
	// Port is the listen port. Zero means the active network's default.
	Port int `mapstructure:"rpcport"`

	// Bind lists "host" or "host:port" endpoints to listen on. Ignored
	// unless AllowIP is also set.
	Bind []string `mapstructure:"rpcbind"`

	// AllowIP lists hosts or subnets allowed to connect. Loopback is always
	// allowed.
	AllowIP []string `mapstructure:"rpcallowip"`

	Threads       int `mapstructure:"rpcthreads"`
	WorkQueue     int `mapstructure:"rpcworkqueue"`
	ServerTimeout int `mapstructure:"rpcservertimeout"`

	// TraceHTTP logs full requests and replies verbatim. Diagnostic only.
	TraceHTTP bool `mapstructure:"tracehttp"`
}

func DefaultDJICoinConfig() *DJICoinConfig {
	return &DJICoinConfig{
		RPC:                DefaultRPCConfig(),
		ExcessiveBlockSize: DefaultExcessiveBlockSize,
	}
}

func DefaultRPCConfig() *RPCConfig {
	return &RPCConfig{
		Threads:       DefaultHTTPThreads,
		WorkQueue:     DefaultHTTPWorkQueue,
		ServerTimeout: DefaultHTTPServerTimeout,
	}
}

func (context *DJICoinContext) ParseConfig() (*DJICoinConfig, error) {
	err := viper.Unmarshal(context.Config)
	if err != nil {
		return nil, err
	}
	return context.Config, err
}
