package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/my-entourage/notion-export/internal/config"
	"github.com/my-entourage/notion-export/internal/converter"
	"github.com/my-entourage/notion-export/internal/exporter"
	"github.com/my-entourage/notion-export/internal/logger"
	"github.com/my-entourage/notion-export/internal/notion"
	"github.com/my-entourage/notion-export/internal/snapshot"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", config.DefaultPath(), "Path to the space configuration file (JSON or YAML)")
	envPath := flag.String("env", config.DefaultEnvPath(), "Path to the .env file holding API keys")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error); defaults to LOG_LEVEL or info")
	flag.Parse()

	// Initialize logger
	level := *logLevel
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	if err := logger.Init(level); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", err, map[string]interface{}{
			"filepath": *configPath,
		})
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) < 2 {
		printUsage(cfg)
		os.Exit(1)
	}
	command, name := args[0], args[1]

	space, err := cfg.Space(name)
	if err != nil {
		if errors.Is(err, config.ErrUnknownSpace) {
			fmt.Printf("Error: unknown space %q\n\n", name)
			printUsage(cfg)
			os.Exit(1)
		}
		logger.Error("Invalid space configuration", err, nil)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch command {
	case "export":
		err = runExport(ctx, space, *envPath)
	case "convert":
		err = runConvert(ctx, space, args[2:])
	default:
		fmt.Printf("Error: unknown command %q\n\n", command)
		printUsage(cfg)
		os.Exit(1)
	}
	if err != nil {
		logger.Error(fmt.Sprintf("%s failed", command), err, map[string]interface{}{
			"space": name,
		})
		os.Exit(1)
	}
}

func printUsage(cfg *config.Config) {
	fmt.Printf("Usage: %s [flags] <export|convert> <space> [convert flags]\n\n", filepath.Base(os.Args[0]))
	fmt.Println("Commands:")
	fmt.Println("  export <space>                  Export the workspace to a dated snapshot")
	fmt.Println("  convert <space> [--input FILE]  Convert the latest (or given) snapshot to Markdown")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
	fmt.Println()

	names := cfg.Names()
	if len(names) == 0 {
		fmt.Println("No spaces configured.")
		return
	}
	fmt.Println("Spaces:")
	for _, name := range names {
		fmt.Printf("  %s\n", name)
	}
}

func runExport(ctx context.Context, space config.Space, envPath string) error {
	// Load .env file
	if err := config.LoadEnv(envPath); err != nil {
		return err
	}
	apiKey, err := space.APIKey()
	if err != nil {
		return err
	}
	excludes, err := space.Excludes()
	if err != nil {
		return err
	}

	// Initialize Notion client
	client, err := notion.New(apiKey)
	if err != nil {
		return fmt.Errorf("failed to initialize Notion client: %w", err)
	}

	exp := exporter.New(client, exporter.Options{
		OutputDir: snapshot.ExportDir(space.RawExportDir(), time.Now()),
		Excludes:  excludes,
	})
	s, err := exp.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Exported to %s\n", exp.Path())
	fmt.Printf("  Pages: %d, Databases: %d, Data sources: %d, Referenced databases: %d\n",
		s.PageCount, s.DatabaseCount, s.DataSourceCount, s.ReferencedDatabaseCount)
	fmt.Printf("  Users: %d, Comments: %d, Assets: %d\n", s.UserCount, s.CommentCount, s.AssetCount)
	return nil
}

func runConvert(ctx context.Context, space config.Space, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	input := fs.String("input", "", "Snapshot to convert (default: latest export of the space)")
	workers := fs.Int("workers", 1, "Number of pages rendered concurrently")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := config.ExpandPath(*input)
	if path == "" {
		latest, err := snapshot.FindLatest(space.RawExportDir())
		if err != nil {
			return err
		}
		path = latest
	}

	s, err := snapshot.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	conv := converter.New(converter.Options{
		OutputDir: space.OutputDir(),
		AssetsDir: filepath.Join(filepath.Dir(path), snapshot.AssetsDir),
		Workers:   *workers,
	})
	stats, err := conv.Run(ctx, s)
	if err != nil {
		return err
	}

	fmt.Printf("Converted %s to %s\n", path, space.OutputDir())
	fmt.Printf("  %s\n", stats)
	return nil
}
