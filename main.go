package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aaricantto/GraphFS/internal/api"
	"github.com/aaricantto/GraphFS/internal/config"
	"github.com/aaricantto/GraphFS/internal/exclude"
	"github.com/aaricantto/GraphFS/internal/generator"
	"github.com/aaricantto/GraphFS/internal/graphfs"
	"github.com/aaricantto/GraphFS/internal/listing"
	"github.com/aaricantto/GraphFS/internal/logging"
	"github.com/aaricantto/GraphFS/internal/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	logLevel   string
	treeDepth  int
	treeExcl   string
)

var genShape = generator.DefaultShape()

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file path (defaults apply when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level")

	treeCmd.Flags().IntVarP(&treeDepth, "depth", "d", 2, "How many levels to print")
	treeCmd.Flags().StringVarP(&treeExcl, "exclude", "e", "", "Comma-separated exclude patterns (default: configured excludes)")

	genCmd.Flags().Int64Var(&genShape.Seed, "seed", genShape.Seed, "Random seed")
	genCmd.Flags().IntVar(&genShape.MaxDepth, "depth", genShape.MaxDepth, "Maximum folder depth")
	genCmd.Flags().IntVar(&genShape.MinFolders, "min-folders", genShape.MinFolders, "Minimum subfolders per folder")
	genCmd.Flags().IntVar(&genShape.MaxFolders, "max-folders", genShape.MaxFolders, "Maximum subfolders per folder")
	genCmd.Flags().IntVar(&genShape.MinFiles, "min-files", genShape.MinFiles, "Minimum files per folder")
	genCmd.Flags().IntVar(&genShape.MaxFiles, "max-files", genShape.MaxFiles, "Maximum files per folder")
	genCmd.Flags().IntVar(&genShape.FileSize, "file-size", genShape.FileSize, "Bytes per generated file")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(serveCmd, treeCmd, genCmd, configCmd)
}

var rootCmd = &cobra.Command{
	Use:           "graphfs",
	Short:         "GraphFS - a live, watch-driven file tree backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GraphFS API server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		defer logging.Sync()

		log := logging.L()
		fs, err := graphfs.New(cfg, log.Named("graphfs"))
		if err != nil {
			return fmt.Errorf("failed to initialize GraphFS: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := api.NewServer(fs, &cfg.API, log)
		return server.Run(ctx)
	},
}

var treeCmd = &cobra.Command{
	Use:   "tree <path>",
	Short: "Print a directory the way the graph materializes it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		patterns := cfg.DefaultExcludes
		if cmd.Flags().Changed("exclude") {
			patterns = exclude.Parse(treeExcl)
		}

		roots := listing.NewRootSet()
		root, err := roots.Add(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), root)
		return printTree(cmd, listing.NewService(logging.Named("listing")), root, root, patterns, "", treeDepth)
	},
}

var genCmd = &cobra.Command{
	Use:   "gen <dir>",
	Short: "Write a seeded sample tree to browse",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := generator.Build(args[0], genShape)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d folders and %d files under %s\n", len(m.Folders), len(m.Files), m.Root)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write the default configuration to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("refusing to overwrite %s", args[0])
		}
		cfg := config.DefaultConfig()
		if err := config.SaveToFile(&cfg, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
		return nil
	},
}

// loadConfig reads the config, applies flags and sets up logging
func loadConfig() (*types.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if err := logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logging.L().Debug("configuration loaded",
		zap.String("config", configPath),
		zap.String("db", cfg.Store.DBPath),
	)
	return cfg, nil
}

func printTree(cmd *cobra.Command, svc *listing.Service, root, dir string, patterns []string, prefix string, depth int) error {
	if depth <= 0 {
		return nil
	}
	children, err := svc.ListUnder(root, dir, patterns)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%s└── [%s]\n", prefix, listing.Code(err))
		return nil
	}
	for i, c := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}
		name := c.Name
		if c.IsFolder() {
			name += string(os.PathSeparator)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s%s\n", prefix, branch, name)
		if c.IsFolder() {
			if err := printTree(cmd, svc, root, c.Path, patterns, prefix+next, depth-1); err != nil {
				return err
			}
		}
	}
	return nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
