package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"threadcast/internal/config"
	"threadcast/internal/content"
	"threadcast/internal/domain"
	"threadcast/internal/logging"
	"threadcast/internal/poster"
	"threadcast/internal/thread"
)

func main() {
	if err := run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:      "post",
		Usage:     "publish a thread right away",
		ArgsUsage: "[fragment ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to config.yaml",
				EnvVars: []string{"THREADCAST_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "platform",
				Aliases: []string{"p"},
				Usage:   "x, bluesky or threads (defaults to thread.default_platform)",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "read fragments from a file, separated by blank lines",
			},
			&cli.StringFlag{
				Name:  "html",
				Usage: "generate fragments from an HTML file with the content source",
			},
			&cli.IntFlag{
				Name:  "min-delay-ms",
				Usage: "override thread.min_delay_ms",
				Value: -1,
			},
			&cli.IntFlag{
				Name:  "max-delay-ms",
				Usage: "override thread.max_delay_ms",
				Value: -1,
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the fragments without posting",
			},
		},
		Action: runPost,
	}
	return app.Run(args)
}

func runPost(cctx *cli.Context) error {
	ctx, stop := signal.NotifyContext(cctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		cfg *config.Config
		err error
	)
	if path := cctx.String("config"); path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level, "console")

	platformName := cctx.String("platform")
	if platformName == "" {
		platformName = cfg.Thread.DefaultPlatform
	}
	platform, err := domain.ParsePlatform(platformName)
	if err != nil {
		return err
	}

	texts, err := collectFragments(ctx, cctx, cfg)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return fmt.Errorf("nothing to post: pass fragments as arguments, --file or --html")
	}

	minDelay, maxDelay := cfg.Thread.MinDelayMs, cfg.Thread.MaxDelayMs
	if v := cctx.Int("min-delay-ms"); v >= 0 {
		minDelay = v
	}
	if v := cctx.Int("max-delay-ms"); v >= 0 {
		maxDelay = v
	}

	plan, err := domain.NewThreadPlan(texts, domain.DelayRangeMs(minDelay, maxDelay))
	if err != nil {
		return err
	}

	if cctx.Bool("dry-run") {
		for i, f := range plan.Fragments {
			fmt.Printf("[%d/%d] %s\n", i+1, len(plan.Fragments), f.Text())
		}
		return nil
	}

	provider, err := poster.NewRegistryFromConfig(cfg).Get(platform)
	if err != nil {
		return err
	}

	refs, err := thread.NewComposer(logger).Post(ctx, provider, plan)
	for i, ref := range refs {
		fmt.Printf("%d\t%s\n", i+1, ref)
	}
	return err
}

func collectFragments(ctx context.Context, cctx *cli.Context, cfg *config.Config) ([]string, error) {
	if path := cctx.String("html"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		fragments, err := content.NewNexusAI(cfg.Content.URL, cfg.Content.APIKey).Fragments(ctx, string(raw))
		if err != nil {
			return nil, err
		}
		texts := make([]string, len(fragments))
		for i, f := range fragments {
			texts[i] = f.Text()
		}
		return texts, nil
	}

	if path := cctx.String("file"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return splitFragments(string(raw)), nil
	}

	return cctx.Args().Slice(), nil
}

// splitFragments splits text on blank lines, trimming each paragraph.
func splitFragments(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			out = append(out, para)
		}
	}
	return out
}
