package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/ansuz/internal"
	pkgconfig "github.com/starford/ansuz/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("ANSUZ_CONFIG_FILE"),
	}

	cmd := &cli.Command{
		Name:  "ansuz",
		Usage: "Index a Markdown vault, ask it questions, and enrich documents with generated frontmatter",
		Flags: []cli.Flag{configFlag},
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "Run one incremental index pass over the vault",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.IndexVault(ctx, internal.WithConfig(cfg))
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the vault (interactive when no question given)",
				ArgsUsage: "[question]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					question := cmd.Args().First()
					if question == "" {
						return internal.AskInteractive(ctx, internal.WithConfig(cfg))
					}
					return internal.Ask(ctx, question, internal.WithConfig(cfg))
				},
			},
			{
				Name:  "enrich",
				Usage: "Generate frontmatter for vault documents with the configured model",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force-update",
						Usage: "Regenerate frontmatter even when a document already has one",
					},
					&cli.IntFlag{
						Name:  "max-files",
						Usage: "Maximum number of files to process (0 = all)",
					},
					&cli.IntFlag{
						Name:  "max-workers",
						Usage: "Worker pool size (0 = config default)",
					},
					&cli.BoolFlag{
						Name:  "sequential",
						Usage: "Process documents one at a time",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					workers := int(cmd.Int("max-workers"))
					if cmd.Bool("sequential") {
						workers = 1
					}
					return internal.EnrichVault(ctx, internal.EnrichOptions{
						ForceUpdate: cmd.Bool("force-update"),
						MaxFiles:    int(cmd.Int("max-files")),
						Workers:     workers,
					}, internal.WithConfig(cfg))
				},
			},
			{
				Name:  "serve",
				Usage: "Serve the HTTP API with a live index watcher",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.Serve(ctx, internal.WithConfig(cfg))
				},
			},
			{
				Name:  "mcp",
				Usage: "Serve MCP tools over stdio",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					return internal.ServeMCP(ctx, internal.WithConfig(cfg))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
