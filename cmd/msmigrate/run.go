// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sinai-manuscripts/msmigrate/internal/config"
	"github.com/sinai-manuscripts/msmigrate/internal/dryrun"
	"github.com/sinai-manuscripts/msmigrate/internal/errs"
	"github.com/sinai-manuscripts/msmigrate/internal/migrate"
	"github.com/sinai-manuscripts/msmigrate/internal/persist"
	"github.com/sinai-manuscripts/msmigrate/internal/table"
	"github.com/sinai-manuscripts/msmigrate/internal/table/sources"
	"github.com/sinai-manuscripts/msmigrate/internal/validate"
)

const apiKeyEnv = "AIRTABLE_API_KEY"

type runOptions struct {
	*rootOptions
	configPath  string
	mode        string
	outputDir   string
	recordType  string
	cachePath   string
	dryRun      bool
	airtableKey string
	airtableURL string
	envFile     string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest the configured tables and write records of the selected types",
		Example: `  msmigrate run --config migration.yml --type manuscript_objects
  msmigrate run --config migration.yml --mode airtable --dry-run
  msmigrate run --config migration.yml --cache out/table_cache/table_cache_20240309-140507.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigration(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "config.yml", "path to the configuration document")
	f.StringVarP(&opts.mode, "mode", "m", "", "source mode, airtable or csv (overrides the configuration)")
	f.StringVarP(&opts.outputDir, "output", "o", "", "output directory (overrides the configuration)")
	f.StringVarP(&opts.recordType, "type", "t", config.SelectAll, "record type to migrate: manuscript_objects, layers, text_units or all")
	f.StringVar(&opts.cachePath, "cache", "", "reload tables from a cache snapshot instead of the sources")
	f.BoolVar(&opts.dryRun, "dry-run", false, "run without fetching schemas or writing files")
	f.StringVar(&opts.airtableKey, "airtable-key", "", "Airtable API key (default $"+apiKeyEnv+")")
	f.StringVar(&opts.airtableURL, "airtable-url", "", "Airtable API endpoint (default https://api.airtable.com/v0)")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file to read credentials from, if present")
	return cmd
}

func runMigration(cmd *cobra.Command, opts *runOptions) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

	if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", opts.envFile, err)
	}

	types, err := config.SelectRecordTypes(opts.recordType)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath, config.Overrides{Mode: opts.mode, OutputDir: opts.outputDir})
	if err != nil {
		return err
	}

	apiKey := opts.airtableKey
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv)
	}
	if cfg.Mode == config.ModeAirtable && opts.cachePath == "" && apiKey == "" {
		return fmt.Errorf("%w: airtable mode needs --airtable-key or $%s", errs.ErrConfiguration, apiKeyEnv)
	}

	var clientOpts []sources.AirtableOption
	if opts.airtableURL != "" {
		clientOpts = append(clientOpts, sources.WithBaseURL(opts.airtableURL))
	}
	client, err := sources.NewAirtableClient(apiKey, clientOpts...)
	if err != nil {
		return err
	}

	policy := dryrun.New(opts.dryRun, logger)
	ingester := table.NewIngester(logger,
		sources.NewFileSource(),
		sources.NewRemoteSource(client, cfg.AirtableBase, logger),
	)
	runner := migrate.NewRunner(cfg, ingester,
		validate.NewLoader(nil, policy, logger),
		persist.New(cfg.OutputDir, policy, logger),
		logger,
	)

	summary, err := runner.Run(cmd.Context(), migrate.Options{RecordTypes: types, CachePath: opts.cachePath})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
