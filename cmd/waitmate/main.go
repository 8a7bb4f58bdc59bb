package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markrileybot/waitmate/pkg/bus"
	"github.com/markrileybot/waitmate/pkg/config"
	"github.com/markrileybot/waitmate/pkg/coordinator"
	"github.com/markrileybot/waitmate/pkg/eventlog"
	"github.com/markrileybot/waitmate/pkg/httpapi"
	"github.com/markrileybot/waitmate/pkg/log"
	"github.com/markrileybot/waitmate/pkg/stdio"
	"github.com/markrileybot/waitmate/pkg/zmqnet"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

var cfg config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "waitmate",
	Short:   "waitmate - a durable, tailable event-collection pipeline",
	Long:    "waitmate watches for events, persists them in an ordered durable log, and fans them out to notifiers that each resume from their own durable offset.",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("waitmate version %s\ncommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "path to a waitmate.yaml config file")

	cobra.OnInitialize(initConfigAndLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(clientCmd)
}

func initConfigAndLogging() {
	configPath, _ := rootCmd.PersistentFlags().GetString("config")

	loaded, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	if level, _ := rootCmd.PersistentFlags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if asJSON, _ := rootCmd.PersistentFlags().GetBool("log-json"); asJSON {
		cfg.LogJSON = true
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
}

func openLog() *eventlog.EventLog {
	pid := 0
	if cfg.Ephemeral {
		pid = os.Getpid()
	}
	path := fmt.Sprintf("%s/waitmate/event_log.%d.rdb", cfg.DataDir, pid)
	return eventlog.Open(path, cfg.Ephemeral)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the full pipeline: stdin waiter, ZeroMQ pair, HTTP tail, stdout notifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		el := openLog()
		defer el.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		waiters := []bus.Waiter{stdio.NewStdinWaiter()}
		notifiers := []bus.Notifier{stdio.NewStdoutNotifier()}

		if cfg.ZMQListen != "" {
			srv, err := zmqnet.NewServer(cfg.ZMQListen)
			if err != nil {
				return fmt.Errorf("start zmq server: %w", err)
			}
			waiters = append(waiters, srv)
		}
		if cfg.ZMQConnect != "" {
			cl, err := zmqnet.NewClient(cfg.ZMQConnect)
			if err != nil {
				return fmt.Errorf("connect zmq client: %w", err)
			}
			defer cl.Close()
			notifiers = append(notifiers, cl)
		}
		if cfg.HTTPListen != "" {
			waiters = append(waiters, httpapi.NewServer(cfg.HTTPListen, el))
		}

		c := coordinator.New(ctx, el, waiters, notifiers)
		c.Run()
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "open the event log and print every event as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		el := openLog()
		defer el.Close()

		cur := el.BuildCursor().Build()
		for {
			_, e, ok := cur.Next()
			if !ok {
				return nil
			}
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
			fmt.Println(string(data))
		}
	},
}

var serverCmd = &cobra.Command{
	Use:   "server <addr>",
	Short: "run only the ZeroMQ server waiter, for testing the pair in isolation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		el := openLog()
		defer el.Close()

		srv, err := zmqnet.NewServer(args[0])
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c := coordinator.New(ctx, el, []bus.Waiter{srv}, nil)
		c.Run()
		return nil
	},
}

var clientCmd = &cobra.Command{
	Use:   "client <addr>",
	Short: "run only the ZeroMQ client notifier, fed by the sleepy waiter, for testing the pair in isolation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		el := openLog()
		defer el.Close()

		cl, err := zmqnet.NewClient(args[0])
		if err != nil {
			return err
		}
		defer cl.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c := coordinator.New(ctx, el, []bus.Waiter{stdio.NewSleepyWaiter()}, []bus.Notifier{cl})
		c.Run()
		return nil
	},
}
