package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuannvm/adosync/internal/ado"
	"github.com/tuannvm/adosync/internal/config"
	"github.com/tuannvm/adosync/internal/importer"
	"github.com/tuannvm/adosync/internal/logging"
	"github.com/tuannvm/adosync/internal/models"
	"github.com/tuannvm/adosync/internal/server"
	"github.com/tuannvm/adosync/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "adosync",
	Short:         "Sync Azure DevOps work items into the ticket database",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	importIncludeCompleted bool
	importSkip             []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewConfig()
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		imp := importer.New(cfg, ado.NewFetcher(cfg.Organization, cfg.PAT), st)
		srv := server.New(cfg, imp, st)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		defer logging.Sync()

		return srv.Start(ctx)
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Run one import and replace the stored tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewConfig()
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		sel := models.DefaultSelection()
		sel.IncludeCompleted = importIncludeCompleted
		for _, key := range importSkip {
			switch key {
			case config.KeyByteLOS:
				sel.ByteLOS = false
			case config.KeyByte:
				sel.Byte = false
			case config.KeyProductMasters:
				sel.ProductMasters = false
			default:
				return fmt.Errorf("unknown project key %q", key)
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RefreshTimeout)
		defer cancel()

		imp := importer.New(cfg, ado.NewFetcher(cfg.Organization, cfg.PAT), st)
		summary, err := imp.Run(ctx, sel)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the tickets table and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewConfig()
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Init(cmd.Context())
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print aggregate counts over the stored tickets",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.NewConfig()
		st, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	return store.Open(ctx, cfg.DatabaseURL)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	importCmd.Flags().BoolVar(&importIncludeCompleted, "include-completed", false, "Keep tickets in terminal states")
	importCmd.Flags().StringSliceVar(&importSkip, "skip", nil, "Project keys to leave out (byteLos, byte, productMasters)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}
