package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vadimbarashkov/shortlink/internal/app"
	"github.com/vadimbarashkov/shortlink/internal/config"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "url-shortener",
		Short:         "Shorten long URLs and redirect short codes back to them",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_PATH"),
		"path to the YAML config file (default $CONFIG_PATH)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newShortenCmd(opts),
		newStatsCmd(opts),
	)

	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the storage schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, app.NewLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "%s storage is up to date\n", cfg.Storage.Driver)
			return nil
		},
	}
}

func newShortenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shorten <url>",
		Short: "Create a short URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, app.NewLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close()

			url, err := a.URLs.ShortenURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cfg.ShortURL(url.ShortCode))
			return nil
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <code>",
		Short: "Show visit statistics of a short code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			a, err := app.New(cmd.Context(), cfg, app.NewLogger(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer a.Close()

			url, err := a.URLs.GetURLStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "short url:    %s\n", cfg.ShortURL(url.ShortCode))
			fmt.Fprintf(out, "original url: %s\n", url.OriginalURL)
			fmt.Fprintf(out, "visits:       %d\n", url.Visits)
			fmt.Fprintf(out, "created at:   %s\n", url.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	a, err := app.New(cmd.Context(), cfg, app.NewLogger(cfg, os.Stdout))
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(cmd.Context())
}
