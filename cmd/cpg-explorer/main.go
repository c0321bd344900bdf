package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ritzau/cpg-explorer/pkg/api"
	"github.com/ritzau/cpg-explorer/pkg/config"
	"github.com/ritzau/cpg-explorer/pkg/logging"
	"github.com/ritzau/cpg-explorer/pkg/output"
	"github.com/ritzau/cpg-explorer/pkg/persist"
	"github.com/ritzau/cpg-explorer/pkg/pubsub"
	"github.com/ritzau/cpg-explorer/pkg/session"
	"github.com/ritzau/cpg-explorer/pkg/viewmodel"
	"github.com/ritzau/cpg-explorer/pkg/watcher"
	"github.com/ritzau/cpg-explorer/pkg/web"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("cpg-explorer", pflag.ExitOnError)
	flags.String("api", "", "Base URL of the analysis backend")
	flags.Int("port", 0, "Port for the presentation server")
	flags.String("state", "", "File that persists session settings")
	flags.String("url", "", "Initial URL query, e.g. view=calls&function=F1")
	flags.Duration("search-debounce", 0, "Quiet period before a symbol search runs")
	flags.Duration("type-debounce", 0, "Quiet period before a type query runs")
	flags.Duration("viewport-debounce", 0, "Quiet period before the layout is retuned")
	flags.Duration("secondary-fit-delay", 0, "Delay of the second camera fit after settle")
	flags.String("print", "", "Print a summary of the given view and exit")
	flags.Bool("open", false, "Open the browser")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	flags.CountP("verbose", "v", "Increase verbosity (-v debug, -vv trace)")
	flags.Bool("json-logs", false, "Log as JSON")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logging.Setup(os.Stderr, logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt), cfg.JSONLogs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(cfg.API, nil)

	if cfg.Print != "" {
		if err := printView(ctx, client, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	watchConfig(ctx, flags)

	if err := serve(ctx, client, cfg); err != nil {
		logging.Fatal("server failed", "error", err)
	}
}

// watchConfig reloads the config file when it changes and applies the
// settings that can change at runtime. Other settings need a restart.
func watchConfig(ctx context.Context, flags *pflag.FlagSet) {
	fw, err := watcher.NewFileWatcher(config.FileName, 0)
	if err != nil {
		logging.Warn("config watcher disabled", "error", err)
		return
	}
	err = fw.Start(ctx, func(context.Context) {
		cfg, err := config.Load(flags)
		if err != nil {
			logging.Warn("ignoring invalid config", "path", fw.Path(), "error", err)
			return
		}
		level := logging.ParseLevel(cfg.Verbosity, cfg.VerboseCnt)
		if level != logging.CurrentLevel() {
			logging.SetLevel(level)
			logging.Info("log level changed", "level", level.String())
		}
	})
	if err != nil {
		logging.Warn("config watcher disabled", "error", err)
	}
}

func options(cfg *config.Config) session.Options {
	return session.Options{
		Store:             persist.NewFileStore(cfg.State),
		SearchDelay:       cfg.SearchDebounce,
		TypeDelay:         cfg.TypeDebounce,
		ViewportDelay:     cfg.ViewportDebounce,
		SecondaryFitDelay: cfg.SecondaryFitDelay,
	}
}

// printView bootstraps a session, switches to the requested view and
// prints its graph model.
func printView(ctx context.Context, client api.Backend, cfg *config.Config) error {
	mode, ok := viewmodel.ParseViewMode(cfg.Print)
	if !ok {
		return fmt.Errorf("unknown view %q", cfg.Print)
	}

	opts := options(cfg)
	opts.Location = persist.NewMemoryLocation(cfg.URL)
	sess := session.New(ctx, client, opts)
	defer sess.Close()

	if err := sess.Bootstrap(ctx); err != nil {
		return err
	}
	if err := sess.SwitchView(ctx, mode); err != nil {
		return err
	}

	snap := sess.Snapshot()
	output.PrintModelSummary(os.Stdout, snap.Model, snap.Error)
	return nil
}

func serve(ctx context.Context, client api.Backend, cfg *config.Config) error {
	publisher := pubsub.NewSSEPublisher()
	pubsub.ConfigureDefaultTopics(publisher)

	opts := options(cfg)
	opts.Location = web.NewLocation(publisher, cfg.URL)
	opts.Engine = web.NewEngine(publisher)
	sess := session.New(ctx, client, opts)
	defer sess.Close()

	server := web.NewServer(sess, publisher)

	go func() {
		if err := sess.Bootstrap(ctx); err != nil {
			logging.Warn("bootstrap failed", "error", err)
		}
	}()

	if cfg.OpenBrowser {
		go func() {
			// Wait a moment for server to start
			time.Sleep(500 * time.Millisecond)
			openBrowser(fmt.Sprintf("http://localhost:%d", cfg.Port))
		}()
	}

	if err := server.Start(ctx, cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Info("shut down")
	return nil
}

func openBrowser(url string) {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{url}
	case "linux":
		cmd = "xdg-open"
		args = []string{url}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", url}
	default:
		logging.Warn("cannot open browser on this platform", "os", runtime.GOOS)
		return
	}

	if err := exec.Command(cmd, args...).Start(); err != nil {
		logging.Warn("failed to open browser", "error", err)
	}
}
