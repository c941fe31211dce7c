package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"autodocs/internal/config"
	"autodocs/internal/docsite"
	"autodocs/internal/pipeline"
	"autodocs/internal/telemetry"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5FD787"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"})
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
)

var (
	rootCmd = &cobra.Command{
		Use:           "autodocs",
		Short:         "AI-powered documentation for JavaScript and TypeScript",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath string
	tracePath  string

	// set by startTracing; flushes spans before exit
	stopTracing = func() {}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	stopTracing()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("✗ "+err.Error()))
		os.Exit(1)
	}
}

func startTracing(cmd *cobra.Command, args []string) error {
	if tracePath == "" {
		return nil
	}
	f, err := os.Create(tracePath)
	if err != nil {
		return fmt.Errorf("creating trace file: %w", err)
	}
	shutdown, err := telemetry.Setup(f)
	if err != nil {
		f.Close()
		return err
	}
	stopTracing = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, hintStyle.Render("flushing traces: "+err.Error()))
		}
		f.Close()
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: search .autodocs.* and .docgenrc* in the working directory)")
	rootCmd.PersistentFlags().StringVar(&tracePath, "trace", "", "Write OpenTelemetry spans as JSON to this file")
	rootCmd.PersistentPreRunE = startTracing

	generateCmd.Flags().StringP("path", "p", ".", "File or directory to document")
	generateCmd.Flags().StringP("output", "o", "", "Output directory (default: output.directory from config)")
	generateCmd.Flags().String("report", "", "Write a JSON run report to this file")

	scanCmd.Flags().String("report", "", "Write a JSON run report to this file")

	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")

	serveCmd.Flags().StringP("dir", "d", "", "Documentation directory (default: output.directory from config)")
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")

	previewCmd.Flags().Int("width", docsite.DefaultWidth, "Word wrap width")

	cachePurgeCmd.Flags().Bool("all", false, "Remove generations for every model, not just the configured one")
	cacheCmd.AddCommand(cacheStatsCmd, cachePurgeCmd)

	rootCmd.AddCommand(generateCmd, scanCmd, initCmd, serveCmd, previewCmd, cacheCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate markdown documentation for a codebase",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		input, _ := cmd.Flags().GetString("path")
		output, _ := cmd.Flags().GetString("output")
		report, _ := cmd.Flags().GetString("report")

		p := pipeline.New(pipeline.Options{
			Input:      input,
			OutputDir:  output,
			Config:     cfg,
			Out:        cmd.OutOrStdout(),
			ReportPath: report,
		})
		if err := p.Run(cmd.Context()); err != nil {
			if errors.Is(err, pipeline.ErrMissingAPIKey) {
				fmt.Fprintln(cmd.ErrOrStderr(), hintStyle.Render("Run `autodocs init` and export your provider key before generating."))
			}
			return err
		}
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Print the extracted code structure as JSON without calling an AI service",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		input := "."
		if len(args) > 0 {
			input = args[0]
		}
		report, _ := cmd.Flags().GetString("report")

		p := pipeline.New(pipeline.Options{
			Input:      input,
			Config:     cfg,
			Out:        cmd.ErrOrStderr(),
			ReportPath: report,
		})
		structure, err := p.Scan(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(structure)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path, err := config.Init(".", force)
		if errors.Is(err, config.ErrConfigExists) {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, successStyle.Render("✨ autodocs initialized successfully!"))
		fmt.Fprintln(out, "\nNext steps:")
		fmt.Fprintln(out, "1. Review the configuration in", pathStyle.Render(path))
		fmt.Fprintln(out, "2. Export AUTODOCS_API_KEY (or OPENAI_API_KEY / GEMINI_API_KEY)")
		fmt.Fprintln(out, "3. Generate documentation using:", pathStyle.Render("autodocs generate"))
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve generated documentation as HTML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			dir = cfg.Output.Directory
		}
		if _, err := os.Stat(filepath.Join(dir, "README.md")); err != nil {
			return fmt.Errorf("no generated documentation in %s (run `autodocs generate` first)", dir)
		}
		addr, _ := cmd.Flags().GetString("addr")

		log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
		srv := &http.Server{
			Addr:              addr,
			Handler:           docsite.NewServer(dir, log),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "📚 Serving %s at %s\n", pathStyle.Render(dir), pathStyle.Render("http://"+addr))

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <file.md>",
	Short: "Render a generated markdown file in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		width, _ := cmd.Flags().GetInt("width")
		out, err := docsite.RenderFileTerminal(args[0], width)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the generation cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how many generations are cached",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		stats, err := pipeline.InspectCache(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "🗄️  Cache:", pathStyle.Render(stats.Path))
		if !cfg.Cache.Enabled {
			fmt.Fprintln(out, hintStyle.Render("(disabled; set cache.enabled to reuse generations)"))
		}
		fmt.Fprintf(out, "%d generations for %s, %d in total\n", stats.Entries, stats.Model, stats.Total)
		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete cached generations for the configured model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		all, _ := cmd.Flags().GetBool("all")

		n, err := pipeline.PurgeCache(cmd.Context(), cfg, all)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("🧹 Removed %d cached generations.", n)))
		return nil
	},
}
