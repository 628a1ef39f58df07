package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/topwebdesignco/advanced-schema-manager/internal"
	pkgconfig "github.com/topwebdesignco/advanced-schema-manager/pkg/config"
)

type entrypoint func(ctx context.Context, opts ...internal.Option) error

// action loads the config named by --config and hands it to fn.
func action(name string, fn entrypoint) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg := internal.NewDefaultConfig()
		if err := pkgconfig.LoadWithDefaults(cmd.String("config"), "", cfg); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
		if err := fn(ctx, internal.WithConfig(cfg)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		return nil
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "config",
		Aliases:     []string{"c"},
		Usage:       "Path to config file",
		DefaultText: "config/config.yaml",
		Value:       "config/config.yaml",
		Sources:     cli.EnvVars("APP_CONFIG_FILE"),
	}
}

func main() {
	cmd := &cli.Command{
		Name:   "asm",
		Usage:  "Attach JSON-LD structured data to site content and serve it for page heads",
		Action: action("serve", internal.Run),
		Flags:  []cli.Flag{configFlag()},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server (default)",
				Flags:  []cli.Flag{configFlag()},
				Action: action("serve", internal.Run),
			},
			{
				Name:   "install",
				Usage:  "Create the schema store",
				Flags:  []cli.Flag{configFlag()},
				Action: action("install", internal.Install),
			},
			{
				Name:   "uninstall",
				Usage:  "Drop the schema store and every record in it",
				Flags:  []cli.Flag{configFlag()},
				Action: action("uninstall", internal.Uninstall),
			},
			{
				Name:   "mcp",
				Usage:  "Serve schema tools to MCP clients over stdio",
				Flags:  []cli.Flag{configFlag()},
				Action: action("mcp", internal.ServeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
