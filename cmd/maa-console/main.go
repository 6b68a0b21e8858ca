// Command maa-console is the operator console for the MAA core: it runs the
// live-tracking simulation and fronts the Gemini assistant surfaces (text
// chat, voice, promo video) from one prompt.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mindful-auto/maa-core/internal/dotenv"
	"github.com/mindful-auto/maa-core/pkg/assistant"
	"github.com/mindful-auto/maa-core/pkg/config"
	"github.com/mindful-auto/maa-core/pkg/gemini"
	"github.com/mindful-auto/maa-core/pkg/metrics"
	"github.com/mindful-auto/maa-core/pkg/promo"
	"github.com/mindful-auto/maa-core/pkg/tracking"
)

const promoOutputPath = "maa-promo.mp4"

// console wires the tracking store and the collaborator clients behind the
// interactive prompt. client and chat are nil without an API key; tracking
// works regardless.
type console struct {
	cfg    config.Config
	store  *tracking.Store
	client *gemini.Client
	chat   *assistant.Session
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
}

func newConsole(cfg config.Config, logger *slog.Logger, out, errOut io.Writer) (*console, error) {
	c := &console{
		cfg:    cfg,
		store:  tracking.NewStore(),
		logger: logger,
		out:    out,
		errOut: errOut,
	}

	if cfg.HasAPIKey() {
		client, err := gemini.New(cfg.APIKey, gemini.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		c.client = client
		c.chat = assistant.NewSession(client, cfg.ChatModel, assistant.WithLogger(logger))
	}
	return c, nil
}

func run(ctx context.Context, cfg config.Config, in io.Reader, out, errOut io.Writer, logger *slog.Logger) error {
	c, err := newConsole(cfg, logger, out, errOut)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runner := tracking.NewRunner(c.store, cfg.TickInterval, nil, logger)
	go runner.Run(ctx)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	fmt.Fprintln(out, "MAA console ready. Tracking feed is live.")
	if c.chat == nil {
		fmt.Fprintln(out, "No GEMINI_API_KEY set: chat, voice, and promo are disabled.")
	} else {
		greeting := c.chat.History()[0]
		fmt.Fprintf(out, "%s\n", greeting.Text)
	}
	fmt.Fprintln(out, "Type /help for commands, /exit to stop.")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "maa> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(out)
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			fmt.Fprintln(out, "bye")
			return nil
		}

		if strings.HasPrefix(line, "/") {
			c.handleCommand(ctx, line, scanner)
			continue
		}

		c.handleChat(ctx, line)
	}
}

func (c *console) handleCommand(ctx context.Context, line string, scanner *bufio.Scanner) {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		c.printHelp()
	case "/track":
		c.printEntities()
	case "/select":
		if arg == "" {
			fmt.Fprintln(c.errOut, "usage: /select <entity-id>")
			return
		}
		if err := c.store.Select(arg); err != nil {
			fmt.Fprintf(c.errOut, "select: %v\n", err)
			return
		}
		c.printSelected()
	case "/zoom":
		switch arg {
		case "in":
			fmt.Fprintf(c.out, "zoom %.1fx\n", c.store.ZoomIn())
		case "out":
			fmt.Fprintf(c.out, "zoom %.1fx\n", c.store.ZoomOut())
		default:
			fmt.Fprintln(c.errOut, "usage: /zoom in|out")
		}
	case "/recenter":
		c.store.Recenter()
		c.printSelected()
	case "/warnings":
		warnings := c.store.Warnings()
		if len(warnings) == 0 {
			fmt.Fprintln(c.out, "no active warnings")
			return
		}
		for _, e := range warnings {
			fmt.Fprintf(c.out, "%s\n", formatEntity(e))
		}
	case "/voice":
		c.runVoice(ctx, scanner)
	case "/promo":
		c.runPromo(ctx)
	default:
		fmt.Fprintf(c.errOut, "unknown command %q, try /help\n", cmd)
	}
}

func (c *console) handleChat(ctx context.Context, line string) {
	if c.chat == nil {
		fmt.Fprintln(c.errOut, "chat requires GEMINI_API_KEY")
		return
	}
	reply, err := c.chat.Send(ctx, line)
	if err != nil {
		fmt.Fprintf(c.errOut, "chat: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "%s\n", reply)
}

func (c *console) runPromo(ctx context.Context) {
	if c.client == nil {
		fmt.Fprintln(c.errOut, "promo generation requires GEMINI_API_KEY")
		return
	}

	job := promo.NewJob(c.client, c.cfg.VideoModel,
		promo.WithPollInterval(c.cfg.PromoPollInterval),
		promo.WithLogger(c.logger))
	if err := job.Start(ctx); err != nil {
		fmt.Fprintf(c.errOut, "promo: %v\n", err)
		return
	}

	fmt.Fprintln(c.out, "Generating promo video; this can take a few minutes...")
	video, err := job.Wait(ctx)
	if err != nil {
		fmt.Fprintf(c.errOut, "promo: %v\n", err)
		return
	}
	if err := os.WriteFile(promoOutputPath, video, 0o644); err != nil {
		fmt.Fprintf(c.errOut, "promo: write %s: %v\n", promoOutputPath, err)
		return
	}
	fmt.Fprintf(c.out, "Promo video saved to %s (%d bytes)\n", promoOutputPath, len(video))
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, "commands:")
	fmt.Fprintln(c.out, "  /track           show the tracking feed")
	fmt.Fprintln(c.out, "  /select <id>     select an entity")
	fmt.Fprintln(c.out, "  /zoom in|out     adjust the map zoom")
	fmt.Fprintln(c.out, "  /recenter        reselect the home vehicle at default zoom")
	fmt.Fprintln(c.out, "  /warnings        list entities in a warning state")
	fmt.Fprintln(c.out, "  /voice           start a voice session (Enter stops it)")
	fmt.Fprintln(c.out, "  /promo           generate the MAA promo video")
	fmt.Fprintln(c.out, "  /exit            quit")
	fmt.Fprintln(c.out, "anything else is sent to the MAA assistant")
}

func (c *console) printEntities() {
	selected, _ := c.store.Selected()
	for _, e := range c.store.Entities() {
		marker := "  "
		if e.ID == selected.ID {
			marker = "* "
		}
		fmt.Fprintf(c.out, "%s%s\n", marker, formatEntity(e))
	}
	fmt.Fprintf(c.out, "zoom %.1fx\n", c.store.Zoom())
}

func (c *console) printSelected() {
	if e, ok := c.store.Selected(); ok {
		fmt.Fprintf(c.out, "selected %s\n", formatEntity(e))
	}
}

func formatEntity(e tracking.Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-3s %s (%s) at (%.1f, %.1f)  %s, %s", e.ID, e.Name, e.Owner, e.X, e.Y, e.Data, e.Status)
	switch e.Kind {
	case tracking.KindVehicle:
		fmt.Fprintf(&b, "  fuel %.0f%%, tires %.0f psi, engine %d°C, oil %d%%", e.Fuel, e.TirePressure, e.EngineTemp, e.OilLife)
	case tracking.KindWearable:
		fmt.Fprintf(&b, "  battery %.1f%%", e.Battery)
	}
	if e.HasWarning() {
		b.WriteString("  [warning]")
	}
	return b.String()
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "error", err)
	}
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := dotenv.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "maa-console: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "maa-console: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout, os.Stderr, logger); err != nil {
		fmt.Fprintf(os.Stderr, "maa-console: %v\n", err)
		os.Exit(1)
	}
}
