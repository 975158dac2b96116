// Command spokenform converts written text into its spoken form.
//
// Without -serve it reads one text per line from -input (or takes the
// positional arguments as texts) and writes the normalized lines to stdout.
// With -serve it runs the HTTP API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/MrWong99/spokenform/internal/config"
	"github.com/MrWong99/spokenform/internal/gcache"
	"github.com/MrWong99/spokenform/internal/lang"
	"github.com/MrWong99/spokenform/internal/normalizer"
	"github.com/MrWong99/spokenform/internal/observe"
	"github.com/MrWong99/spokenform/internal/registry"
	"github.com/MrWong99/spokenform/internal/server"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (defaults apply when empty)")
	langCode := flag.String("lang", "", "language code, overrides the config")
	serve := flag.Bool("serve", false, "run the HTTP API instead of processing input")
	input := flag.String("input", "-", `file with one text per line, "-" for stdin`)
	verbose := flag.Bool("verbose", false, "log the parsed token trees")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "spokenform: %v\n", err)
			return 1
		}
	}
	if *langCode != "" {
		cfg.Language = *langCode
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(cfg.LogLevel.Level())
	logger, closeLog := newLogger(cfg.LogFile, &level)
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
		Language:       cfg.Language,
		InputCase:      string(cfg.InputCase),
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	reg := lang.Registry()
	opts := callOptions(cfg, *verbose)

	if *serve {
		return runServer(ctx, cfg, *configPath, reg, &level, opts)
	}

	n, err := normalizer.New(reg, cfg.Language, normalizerOptions(cfg)...)
	if err != nil {
		slog.Error("failed to build normalizer", "err", err)
		return 1
	}
	if err := runBatch(ctx, n, *input, flag.Args(), os.Stdout, opts); err != nil {
		slog.Error("normalization failed", "err", err)
		return 1
	}
	return 0
}

// runServer builds the grammars in the background so that the health
// endpoints answer while they compile, then serves until ctx ends.
func runServer(ctx context.Context, cfg *config.Config, configPath string, reg *registry.Registry, level *slog.LevelVar, opts normalizer.Options) int {
	srv := server.New()
	srv.SetDefaults(opts)

	rb := newRebuilder(func(cfg *config.Config) {
		n, err := normalizer.New(reg, cfg.Language, normalizerOptions(cfg)...)
		if err != nil {
			slog.Error("failed to build normalizer", "language", cfg.Language, "err", err)
			srv.Fail(err)
			return
		}
		srv.SetNormalizer(n)
	})
	rb.request(cfg)
	go rb.run(ctx)

	if configPath != "" {
		w, err := config.NewWatcher(configPath, func(_, new *config.Config, d config.ConfigDiff) {
			if d.LogLevelChanged {
				level.Set(d.NewLogLevel.Level())
				slog.Info("log level changed", "level", d.NewLogLevel)
			}
			if d.OptionsChanged {
				srv.SetDefaults(callOptions(new, false))
			}
			if d.RebuildRequired {
				slog.Info("rebuilding normalizer after config change", "language", new.Language)
				rb.request(new)
			}
			if d.RestartRequired {
				slog.Warn("some config changes take effect only after a restart")
			}
		})
		if err != nil {
			slog.Error("failed to watch config", "err", err)
			return 1
		}
		defer w.Stop()
	}

	slog.Info("spokenform starting", "version", version, "listen_addr", cfg.Server.ListenAddr, "language", cfg.Language)
	if err := srv.ListenAndServe(ctx, cfg.Server.ListenAddr, cfg.Server.ShutdownTimeout); err != nil {
		slog.Error("server error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// runBatch normalizes args, or the lines of input when there are none, and
// writes one result per line to out.
func runBatch(ctx context.Context, n *normalizer.Normalizer, input string, args []string, out io.Writer, opts normalizer.Options) error {
	texts := args
	if len(texts) == 0 {
		var err error
		if texts, err = readLines(input); err != nil {
			return err
		}
	}
	results, err := n.NormalizeList(ctx, texts, opts)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(out)
	for _, r := range results {
		if _, err := fmt.Fprintln(bw, r); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func readLines(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return lines, nil
}

// normalizerOptions maps cfg onto construction options.
func normalizerOptions(cfg *config.Config) []normalizer.Option {
	opts := []normalizer.Option{
		normalizer.WithInputCase(cfg.InputCase),
		normalizer.WithWhitelist(cfg.Whitelist),
		normalizer.WithWorkers(cfg.Workers),
		normalizer.WithMaxDepth(cfg.MaxDepth),
		normalizer.WithMaxPermutations(cfg.MaxPermutationsPerSplit),
		normalizer.WithVerbalizeCache(cfg.VerbalizeCacheSize, cfg.VerbalizeCacheTTL),
	}
	if cfg.Cache.Dir != "" {
		opts = append(opts, normalizer.WithGrammarCache(&gcache.Cache{
			Dir:       cfg.Cache.Dir,
			Overwrite: cfg.Cache.Overwrite,
		}))
	}
	return opts
}

// callOptions maps cfg onto per-call options.
func callOptions(cfg *config.Config, verbose bool) normalizer.Options {
	return normalizer.Options{
		PunctuationPreProcess:   cfg.PreProcess,
		PunctuationPostProcess:  cfg.PostProcess,
		MaxPermutationsPerSplit: cfg.MaxPermutationsPerSplit,
		Verbose:                 verbose,
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

// newLogger logs to stderr, or to a size-rotated file when path is set.
func newLogger(path string, level slog.Leveler) (*slog.Logger, func()) {
	if path == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), func() {}
	}
	lj := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	closeFn := func() {
		if err := lj.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(os.Stderr, "spokenform: close log file: %v\n", err)
		}
	}
	return slog.New(slog.NewJSONHandler(lj, &slog.HandlerOptions{Level: level})), closeFn
}
