package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	"github.com/starford/quire/internal/search"
	pkgconfig "github.com/starford/quire/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func options(cmd *cli.Command, cfg *internal.Config) []internal.Option {
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithFile(cmd.String("file")),
		internal.WithVersion(version),
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, options(cmd, cfg)...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, options(cmd, cfg)...)
}

// withWorkspace opens a workspace quietly, runs fn and closes it.
func withWorkspace(fn func(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		ws, err := internal.OpenWorkspace(ctx, append(options(cmd, cfg), internal.WithLogger(logger))...)
		if err != nil {
			return err
		}
		defer ws.Close()
		return fn(ctx, cmd, ws)
	}
}

func requireArgs(cmd *cli.Command, names ...string) ([]string, error) {
	args := cmd.Args().Slice()
	if len(args) < len(names) {
		return nil, fmt.Errorf("usage: %s %s", cmd.Name, strings.Join(names, " "))
	}
	return args, nil
}

func listSections(_ context.Context, _ *cli.Command, ws *internal.Workspace) error {
	def := ws.Session.DefaultSection()
	for _, name := range ws.Session.Sections() {
		marker := " "
		if name == def {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, name)
	}
	return nil
}

func showSection(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	name := cmd.Args().First()
	if name == "" {
		name = ws.Session.DefaultSection()
	}
	content, err := ws.Session.Content(ctx, name)
	if err != nil {
		return err
	}
	fmt.Println(content)
	return nil
}

func findInSection(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	args, err := requireArgs(cmd, "SECTION", "QUERY")
	if err != nil {
		return err
	}
	matches, err := ws.Session.Find(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Println(search.Summary(matches))
	for _, m := range matches {
		fmt.Printf("%6d  %s\n", m.Start, strings.ReplaceAll(m.Snippet(), "\n", " "))
	}
	return nil
}

func searchNotes(_ context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	args, err := requireArgs(cmd, "QUERY")
	if err != nil {
		return err
	}
	hits, err := ws.Index.Search(strings.Join(args, " "), int(cmd.Int("limit")))
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("No match found")
	}
	for _, h := range hits {
		fmt.Printf("%s#%s  %s\n", h.Path, h.Section, strings.ReplaceAll(h.Snippet, "\n", " "))
	}
	return nil
}

func addSection(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	args, err := requireArgs(cmd, "NAME")
	if err != nil {
		return err
	}
	if err := ws.Session.AddSection(ctx, args[0]); err != nil {
		return err
	}
	if content := cmd.String("content"); content != "" {
		if err := ws.Session.SetContent(ctx, args[0], content); err != nil {
			return err
		}
	}
	return ws.Session.Save(ctx)
}

func deleteSection(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	args, err := requireArgs(cmd, "NAME")
	if err != nil {
		return err
	}
	if err := ws.Session.DeleteSection(ctx, args[0]); err != nil {
		return err
	}
	return ws.Session.Save(ctx)
}

func showInfo(_ context.Context, _ *cli.Command, ws *internal.Workspace) error {
	fmt.Println(ws.Session.Info().Formatted)
	return nil
}

func newFile(ctx context.Context, cmd *cli.Command, ws *internal.Workspace) error {
	args, err := requireArgs(cmd, "PATH")
	if err != nil {
		return err
	}
	if err := ws.Session.Create(ctx, args[0]); err != nil {
		return err
	}
	// saving records the new file as the last used one
	if err := ws.Session.Save(ctx); err != nil {
		return err
	}
	fmt.Println(ws.Session.FilePath())
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "quire",
		Usage:   "Sectioned plain-text notes with REST, SSE and MCP access",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (.yaml or .toml)",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Note file to open instead of the last used one",
				Sources: cli.EnvVars("QUIRE_FILE"),
			},
		},
		Commands: []*cli.Command{
			{Name: "serve", Usage: "Run the HTTP API", Action: serve},
			{Name: "mcp", Usage: "Serve MCP tools over stdio", Action: serveMCP},
			{Name: "sections", Usage: "List sections of the note file", Action: withWorkspace(listSections)},
			{Name: "show", Usage: "Print a section", ArgsUsage: "[SECTION]", Action: withWorkspace(showSection)},
			{Name: "find", Usage: "Search one section", ArgsUsage: "SECTION QUERY", Action: withWorkspace(findInSection)},
			{
				Name:      "search",
				Usage:     "Search every indexed note file",
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum number of hits"},
				},
				Action: withWorkspace(searchNotes),
			},
			{
				Name:      "add-section",
				Usage:     "Append a section and save",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "content", Usage: "Initial section text"},
				},
				Action: withWorkspace(addSection),
			},
			{Name: "delete-section", Usage: "Delete a section and save", ArgsUsage: "NAME", Action: withWorkspace(deleteSection)},
			{Name: "info", Usage: "Show file path, size and last update", Action: withWorkspace(showInfo)},
			{Name: "new", Usage: "Create a note file and make it the current one", ArgsUsage: "PATH", Action: withWorkspace(newFile)},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
