package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/peltran/giftwise/internal/config"
	"github.com/peltran/giftwise/internal/engine"
	"github.com/peltran/giftwise/internal/genai"
	"github.com/peltran/giftwise/internal/i18n"
	"github.com/peltran/giftwise/internal/recommend"
	"github.com/peltran/giftwise/internal/server"
)

// main is the application entry point.
// It delegates execution to runMain to ensure that deferred function calls
// (like closing log files) are executed before the process terminates.
// os.Exit() does not run defers, so we must return an integer code first.
func main() {
	os.Exit(runMain())
}

// runMain manages the application lifecycle, argument parsing, and exit codes.
// Returns config.ExitCodeSuccess on success, config.ExitCodeError on failure.
func runMain() int {
	// -------------------------------------------------------------------------
	// 1. CLI Argument Parsing
	// -------------------------------------------------------------------------
	showVersion := flag.Bool(config.FlagVersion, false, config.FlagDescVersion)
	debugMode := flag.Bool(config.FlagDebug, false, config.FlagDescDebug)
	port := flag.String(config.FlagPort, config.DefaultPort, config.FlagDescPort)
	contactsSrc := flag.String(config.FlagContacts, "", config.FlagDescContacts)
	lang := flag.String(config.FlagLanguage, config.DefaultLanguage, config.FlagDescLanguage)
	model := flag.String(config.FlagModel, config.DefaultGenAIModel, config.FlagDescModel)
	apiKey := flag.String(config.FlagAPIKey, "", config.FlagDescAPIKey)
	flag.Parse()

	if *showVersion {
		printVersion()
		return config.ExitCodeSuccess
	}

	// -------------------------------------------------------------------------
	// 2. Logging Initialization
	// -------------------------------------------------------------------------
	// We configure structured logging (slog) early to capture startup issues.
	logCloser := setupLogging(*debugMode)
	if logCloser != nil {
		defer func() {
			_ = logCloser.Close() // Best effort close
		}()
	}

	// -------------------------------------------------------------------------
	// 3. Context & Signal Handling
	// -------------------------------------------------------------------------
	// Create a root context that cancels on SIGINT (Ctrl+C) or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logStartupInfo()

	// -------------------------------------------------------------------------
	// 4. Application Logic
	// -------------------------------------------------------------------------
	if err := run(ctx, options{
		port:        *port,
		contactsSrc: *contactsSrc,
		lang:        *lang,
		model:       *model,
		apiKey:      *apiKey,
	}); err != nil {
		slog.Error(config.ErrAppFailed,
			config.LogKeyComponent, config.CompMain,
			config.LogKeyError, err,
		)
		return config.ExitCodeError
	}

	slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
	return config.ExitCodeSuccess
}

// options carries the parsed CLI settings into run.
type options struct {
	port        string
	contactsSrc string
	lang        string
	model       string
	apiKey      string
}

// run wires dependencies and serves the API until the context is cancelled.
func run(ctx context.Context, opts options) error {
	clock := engine.RealClock{}
	translator := i18n.New(opts.lang)
	store := engine.NewStore(clock)

	// Optional seed: start the session from a vCard file or URL.
	if opts.contactsSrc != "" {
		importer := &engine.Importer{
			Clock:   clock,
			Fetcher: engine.NewHTTPFetcher(),
		}
		contacts, err := importer.Load(ctx, opts.contactsSrc)
		if err != nil {
			return err
		}
		if err := store.Seed(contacts); err != nil {
			return err
		}
	}

	client := genai.NewClient(genai.Config{
		APIKey: genai.ResolveAPIKey(opts.apiKey),
		Model:  opts.model,
	})

	recommender := recommend.New(client, clock, translator.Msg)
	builder := &engine.CalendarBuilder{
		Clock: clock,
		FormatSummary: func(kind engine.EventKind, name string) string {
			return translator.MsgData(config.TKeyEvtSummary, map[string]any{
				"Kind": translator.Msg(kind.LabelKey()),
				"Name": name,
			})
		},
	}

	srv := server.New(opts.port, store, clock, recommender, client, builder, translator.Msg)
	if err := srv.RefreshCalendar(); err != nil {
		return err
	}

	// Blocks until signal-driven cancellation.
	return srv.Start(ctx)
}

// printVersion outputs the build information to stdout and exits.
func printVersion() {
	fmt.Printf(config.MsgVersionOutput,
		config.AppName,
		config.Version,
		runtime.GOOS,
		runtime.GOARCH,
	)
}

// logStartupInfo logs environment details useful for debugging.
func logStartupInfo() {
	slog.Info(config.MsgAppStarting,
		config.LogKeyComponent, config.CompMain,
		slog.Group(config.LogKeyBuild,
			slog.String(config.LogKeyApp, config.AppName),
			slog.String(config.LogKeyVersion, config.Version),
			slog.String(config.LogKeyGoVer, runtime.Version()),
		),
		slog.Group(config.LogKeyEnv,
			slog.String(config.LogKeyOS, runtime.GOOS),
			slog.String(config.LogKeyArch, runtime.GOARCH),
			slog.Int(config.LogKeyPID, os.Getpid()),
		),
	)
}

// setupLogging configures the default slog logger.
func setupLogging(debugMode bool) io.Closer {
	var writers []io.Writer
	var logFile *os.File

	// 1. Always write to Stdout.
	writers = append(writers, os.Stdout)

	// 2. Attempt to set up a file writer in the user's cache directory.
	if logPath, err := getLogFilePath(); err == nil {
		// O_TRUNC resets logs on restart to prevent indefinite growth.
		f, err := os.OpenFile(logPath, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, config.FilePermUserRW)
		if err == nil {
			writers = append(writers, f)
			logFile = f
		} else {
			fmt.Fprintf(os.Stderr, config.MsgLogWarning, config.ErrLogFile, logPath, err)
		}
	}

	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: debugMode,
	}

	logger := slog.New(slog.NewJSONHandler(io.MultiWriter(writers...), opts))
	slog.SetDefault(logger)

	if logFile == nil {
		return nil
	}
	return logFile
}

// getLogFilePath determines the platform-specific cache directory for logs.
func getLogFilePath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCacheDir, err)
	}

	appDir := filepath.Join(cacheDir, config.AppID)

	// Ensure the directory exists with restricted permissions (700).
	if err := os.MkdirAll(appDir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	return filepath.Join(appDir, config.LogFileName), nil
}
