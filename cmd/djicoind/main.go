package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yd-915/DJI-COIN/app/config"
	"github.com/yd-915/DJI-COIN/app/params"
	"github.com/yd-915/DJI-COIN/common/log"
	"github.com/yd-915/DJI-COIN/common/shutdown"
	"github.com/yd-915/DJI-COIN/httpserver"
	"github.com/yd-915/DJI-COIN/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "djicoind",
		Short: "DJI Coin Daemon (server)",
		RunE:  runNode,
	}

	flags := rootCmd.Flags()
	flags.Int("rpcport", 0, "listen port for RPC connections (default: network default)")
	flags.StringSlice("rpcbind", nil, "bind to given address to listen for RPC connections; ignored without -rpcallowip")
	flags.StringSlice("rpcallowip", nil, "allow RPC connections from the given source, a single IP or a subnet")
	flags.Int("rpcthreads", config.DefaultHTTPThreads, "number of RPC worker threads")
	flags.Int("rpcworkqueue", config.DefaultHTTPWorkQueue, "depth of the RPC work queue")
	flags.Int("rpcservertimeout", config.DefaultHTTPServerTimeout, "seconds before an idle RPC connection is dropped")
	flags.Bool("tracehttp", false, "log full HTTP requests and replies verbatim")
	flags.Uint64("excessiveblocksize", config.DefaultExcessiveBlockSize, "excessive block size in bytes")
	flags.String("datadir", "", "data directory (default: ~/.djicoin)")
	flags.String("network", params.MainNet, "chain network: main, test or regtest")
	flags.String("logfile", "", "write logs to this file instead of stdout")

	viper.BindPFlag("rpc.rpcport", flags.Lookup("rpcport"))
	viper.BindPFlag("rpc.rpcbind", flags.Lookup("rpcbind"))
	viper.BindPFlag("rpc.rpcallowip", flags.Lookup("rpcallowip"))
	viper.BindPFlag("rpc.rpcthreads", flags.Lookup("rpcthreads"))
	viper.BindPFlag("rpc.rpcworkqueue", flags.Lookup("rpcworkqueue"))
	viper.BindPFlag("rpc.rpcservertimeout", flags.Lookup("rpcservertimeout"))
	viper.BindPFlag("rpc.tracehttp", flags.Lookup("tracehttp"))
	viper.BindPFlag("excessiveblocksize", flags.Lookup("excessiveblocksize"))
	viper.BindPFlag("datadir", flags.Lookup("datadir"))
	viper.BindPFlag("network", flags.Lookup("network"))
	viper.BindPFlag("logfile", flags.Lookup("logfile"))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runNode(cmd *cobra.Command, args []string) error {
	if logFile := viper.GetString("logfile"); logFile != "" {
		log.InitLogger(log.NewFileLogger(logFile, 100, 10))
	}
	params.SelectBaseParams(viper.GetString("network"))

	dataDir := viper.GetString("datadir")
	if dataDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}
		dataDir = filepath.Join(home, ".djicoin")
	}
	viper.SetConfigFile(filepath.Join(dataDir, "djicoin.toml"))
	if err := viper.ReadInConfig(); err == nil {
		log.Info("Using config file", "file", viper.ConfigFileUsed())
	}

	ctx := config.NewDefaultContext()
	cfg, err := ctx.ParseConfig()
	if err != nil {
		return err
	}

	httpserver.UseMetrics(httpserver.PrometheusMetrics())
	if err := httpserver.InitHTTPServer(cfg); err != nil {
		return err
	}
	registerHandlers()
	httpserver.StartHTTPServer()
	log.Info("RPC server listening", "addrs", httpserver.BoundListenerAddrs(), "version", version.Version)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	log.Info("Shutdown requested")
	shutdown.Request()
	httpserver.InterruptHTTPServer()
	httpserver.StopHTTPServer()
	unregisterHandlers()
	return nil
}
