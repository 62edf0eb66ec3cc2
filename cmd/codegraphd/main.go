// Package main provides the codegraphd binary entry point: a daemon
// that watches a repository, maintains an in-memory dependency graph,
// and answers queries against it over a local control socket.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codegraphd/codegraphd/api"
	"github.com/codegraphd/codegraphd/daemon"
	"github.com/codegraphd/codegraphd/query"
)

const (
	Version = "0.1.0"
	appName = "codegraphd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		repoPath   string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Dependency-graph daemon for a source repository",
		Long: `codegraphd watches a repository, extracts import/include/call/
inheritance edges per-language, and maintains an in-memory dependency
graph queryable over a local control socket.`,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&repoPath, "repo", ".", "Repository path to watch")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		startCmd(&configPath, &repoPath, &logLevel),
		statusCmd(&repoPath),
		refreshCmd(&repoPath),
		queryCmd(&repoPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func startCmd(configPath, repoPath, logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(*configPath, *repoPath, *logLevel)
		},
	}
}

func runStart(configPath, repoPath, logLevel string) error {
	logger := newLogger(logLevel)
	slog.SetDefault(logger)

	absRepoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return fmt.Errorf("resolve repo path: %w", err)
	}
	info, err := os.Stat(absRepoPath)
	if err != nil {
		return fmt.Errorf("stat repo path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", absRepoPath)
	}

	cfg, err := loadConfig(configPath, absRepoPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(4)
	}

	supervisor := daemon.New(cfg, logger)
	engine := query.New(supervisor.Store)
	socketPath := cfg.API.SocketPath
	if !filepath.IsAbs(socketPath) {
		socketPath = filepath.Join(absRepoPath, socketPath)
	}

	server := &api.Server{
		SocketPath: socketPath,
		Supervisor: supervisor,
		Engine:     engine,
		Logger:     logger,
	}
	if err := server.Listen(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start control socket: %v\n", err)
		os.Exit(3)
	}
	defer server.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	refreshSig := make(chan os.Signal, 1)
	signal.Notify(refreshSig, syscall.SIGUSR1)
	defer signal.Stop(refreshSig)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-refreshSig:
				supervisor.Refresh()
			}
		}
	}()

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Serve(ctx) }()

	logger.Info("codegraphd ready", "version", Version, "repo_path", absRepoPath, "socket", socketPath)

	runErr := supervisor.Run(ctx)
	<-serverErr

	if runErr != nil {
		logger.Error("daemon exited with error", "error", runErr)
		if errors.Is(runErr, daemon.ErrLockHeld) {
			os.Exit(2)
		}
		if errors.Is(runErr, daemon.ErrSnapshotFailed) {
			os.Exit(3)
		}
		os.Exit(1)
	}

	logger.Info("codegraphd shutdown complete")
	return nil
}

func statusCmd(repoPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the daemon's current health and graph size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callSocket(*repoPath, api.Request{Verb: api.VerbStatus})
		},
	}
}

func refreshCmd(repoPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Ask the running daemon to perform a full rescan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return callSocket(*repoPath, api.Request{Verb: api.VerbRefresh})
		},
	}
}

func queryCmd(repoPath *string) *cobra.Command {
	var (
		root           string
		maxDepth       int
		edgeTypes      []string
		includeReverse bool
		keywords       []string
		hotPathLimit   int
	)

	cmd := &cobra.Command{
		Use:   "query <related|symbols|hot-paths|cycles|overview>",
		Short: "Run a read-only query against the running daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "related":
				return callSocket(*repoPath, api.Request{Verb: api.VerbFindRelated, Params: api.FindRelatedParams{
					Root:           root,
					MaxDepth:       maxDepth,
					Types:          edgeTypes,
					IncludeReverse: includeReverse,
				}})
			case "symbols":
				return callSocket(*repoPath, api.Request{Verb: api.VerbSearchSymbols, Params: api.SearchSymbolsParams{Keywords: keywords}})
			case "hot-paths":
				return callSocket(*repoPath, api.Request{Verb: api.VerbHotPaths, Params: api.HotPathsParams{Limit: hotPathLimit}})
			case "cycles":
				return callSocket(*repoPath, api.Request{Verb: api.VerbDetectCycles})
			case "overview":
				return callSocket(*repoPath, api.Request{Verb: api.VerbArchitectureOverview, Params: api.ArchitectureOverviewParams{HotPathLimit: hotPathLimit}})
			default:
				return fmt.Errorf("unknown query kind %q", args[0])
			}
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "Root file for the related query")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 3, "Max hops for the related query")
	cmd.Flags().StringSliceVar(&edgeTypes, "types", nil, "Edge types to traverse for the related query (default: all)")
	cmd.Flags().BoolVar(&includeReverse, "include-reverse", false, "Also traverse incoming edges for the related query")
	cmd.Flags().StringSliceVar(&keywords, "keywords", nil, "Comma-separated keywords for the symbols query")
	cmd.Flags().IntVar(&hotPathLimit, "limit", 20, "Result limit for hot-paths/overview queries")
	return cmd
}

// callSocket sends req to the running daemon's control socket and
// prints the response as formatted JSON.
func callSocket(repoPath string, req api.Request) error {
	cfg, err := loadConfig("", repoPath)
	if err != nil {
		return err
	}

	absRepoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return err
	}
	socketPath := cfg.API.SocketPath
	if !filepath.IsAbs(socketPath) {
		socketPath = filepath.Join(absRepoPath, socketPath)
	}

	req.ID = strconv.Itoa(os.Getpid())
	line, err := json.Marshal(req)
	if err != nil {
		return err
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to daemon at %s (is it running?): %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write(append(line, '\n')); err != nil {
		return err
	}

	reader := bufio.NewReader(conn)
	respLine, err := reader.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var resp api.Response
	if err := json.Unmarshal(bytes.TrimSpace(respLine), &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != "" {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}

	out, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(configPath, repoPath string) (*daemon.Config, error) {
	if configPath != "" {
		return daemon.LoadFromFile(configPath)
	}
	cfg := daemon.DefaultConfig()
	cfg.Repo.Path = repoPath
	return cfg, nil
}
