package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaultRPCConfig(t *testing.T) {
	cfg := DefaultDJICoinConfig()
	require.Equal(t, DefaultHTTPThreads, cfg.RPC.Threads)
	require.Equal(t, DefaultHTTPWorkQueue, cfg.RPC.WorkQueue)
	require.Equal(t, DefaultHTTPServerTimeout, cfg.RPC.ServerTimeout)
	require.Equal(t, uint64(DefaultExcessiveBlockSize), cfg.ExcessiveBlockSize)
	require.Empty(t, cfg.RPC.Bind)
	require.Empty(t, cfg.RPC.AllowIP)
	require.Zero(t, cfg.RPC.Port)
}

func TestParseConfigOverrides(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("rpc.rpcport", 9999)
	viper.Set("rpc.rpcthreads", 8)
	viper.Set("rpc.rpcallowip", []string{"10.0.0.0/8"})
	viper.Set("excessiveblocksize", 64000000)

	ctx := NewDefaultContext()
	cfg, err := ctx.ParseConfig()
	require.NoError(t, err)
	require.Equal(t, 9999, cfg.RPC.Port)
	require.Equal(t, 8, cfg.RPC.Threads)
	require.Equal(t, []string{"10.0.0.0/8"}, cfg.RPC.AllowIP)
	require.Equal(t, uint64(64000000), cfg.ExcessiveBlockSize)
	// untouched options keep their defaults
	require.Equal(t, DefaultHTTPWorkQueue, cfg.RPC.WorkQueue)
}
