// ABOUTME: Entry point for the agentwire terminal client
// ABOUTME: Loads configuration, wires the protocol engine, and starts the Bubbletea application
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/harper/agentwire/internal/appserver"
	"github.com/harper/agentwire/internal/config"
	"github.com/harper/agentwire/internal/logger"
	"github.com/harper/agentwire/internal/tui"
	"github.com/harper/agentwire/internal/wirelog"
	"github.com/harper/agentwire/internal/xdg"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default "+config.DefaultPath()+")")
	url := flag.String("url", "", "app-server WebSocket URL (overrides config)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("agentwire %s (built %s)\n", version, buildTime)
		return
	}

	// Optional .env overlay; AGENTWIRE_* variables override file values
	_ = godotenv.Load()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *url != "" {
		cfg.Endpoint.URL = *url
	}
	if *verbose {
		cfg.Logging.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.SetVerbose(cfg.Logging.Verbose)

	// The TUI owns the terminal, so engine logs go to a file
	if logFile := openLogFile(); logFile != nil {
		defer logFile.Close()
		logger.SetOutput(logFile)
		if cfg.Logging.Verbose {
			tui.EnableDebug(logFile)
		}
	}

	opts := appserver.Options{
		URL:            cfg.Endpoint.URL,
		ClientName:     cfg.Client.Name,
		ClientTitle:    cfg.Client.Title,
		ClientVersion:  version,
		Headers:        cfg.Endpoint.Headers,
		Compression:    cfg.Endpoint.Compression,
		AllowLoopback:  cfg.Endpoint.AllowLoopback,
		MinimumVersion: cfg.Endpoint.MinimumVersion,
	}

	var frameLog *wirelog.Log
	if cfg.WireLog.Enabled {
		frameLog, err = wirelog.Open(cfg.WireLog.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open wire log: %v\n", err)
			os.Exit(1)
		}
		opts.Recorder = frameLog
	}

	client := appserver.New(opts)

	m := tui.NewModel(cfg, client)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, runErr := p.Run()

	client.Disconnect()
	if frameLog != nil {
		// Flush queued frames before exit
		if err := frameLog.Close(); err != nil {
			logger.Warn("wire log close: %v", err)
		}
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}

// openLogFile creates the engine log under the XDG cache dir. Logging is
// best-effort; a nil return leaves logger output on stderr.
func openLogFile() *os.File {
	dir := xdg.CacheHome()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, "agentwire.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil
	}
	return f
}
