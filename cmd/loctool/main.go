// Command loctool is the group translation pipeline for Confluence plugin
// UI strings.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
	"github.com/astrateam-net/confluence-localization-toolkit/cache"
	"github.com/astrateam-net/confluence-localization-toolkit/config"
	"github.com/astrateam-net/confluence-localization-toolkit/confluence"
	"github.com/astrateam-net/confluence-localization-toolkit/engine"
	"github.com/astrateam-net/confluence-localization-toolkit/exporter"
	"github.com/astrateam-net/confluence-localization-toolkit/importer"
	"github.com/astrateam-net/confluence-localization-toolkit/logging"
	"github.com/astrateam-net/confluence-localization-toolkit/provider"
	"github.com/astrateam-net/confluence-localization-toolkit/store"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "loctool",
		Short: loctool.Description,
		Long: `loctool is the group translation pipeline for Confluence plugin UI strings.

Fetches i18n snapshots from a Confluence instance, reconciles them into
per-group SQLite tables, machine-translates pending strings (DeepL, Google
Translate or OpenAI) and exports the result as Java properties bundles.

Typical workflow:
  loctool fetch --group linchpin-suite
  loctool import --group linchpin-suite raw_data/linchpin-suite.json
  loctool translate --group linchpin-suite
  loctool export --group linchpin-suite`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newFetchCmd(),
		newImportCmd(),
		newTranslateCmd(),
		newExportCmd(),
		newStatsCmd(),
		newGroupsCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads config, configures logging and opens the store.
func setup() (*config.Config, *store.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return cfg, st, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(loctool.FullVersion())
		},
	}
}

func newFetchCmd() *cobra.Command {
	var (
		groupKey   string
		groupsFile string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "fetch --group KEY",
		Short: "Fetch a group's i18n snapshot from Confluence",
		Long: `Fetch the i18n strings of all plugins in a group from Confluence and
save them as a JSON snapshot for import. The group's plugin list comes
from the groups file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)

			gf, err := config.LoadGroups(groupsFile)
			if err != nil {
				return err
			}
			group, ok := gf.Groups[groupKey]
			if !ok {
				return fmt.Errorf("group %q not defined in %s", groupKey, groupsFile)
			}

			client, err := confluence.NewClient(confluence.Config{
				BaseURL:     cfg.ConfluenceURL,
				BearerToken: cfg.ConfluenceBearerToken,
			})
			if err != nil {
				return err
			}

			keys, err := client.FetchKeys(cmd.Context(), group.Plugins)
			if err != nil {
				return err
			}

			if output == "" {
				output = filepath.Join("raw_data", groupKey+".json")
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}

			data, err := json.MarshalIndent(keys, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}

			fmt.Printf("Fetched %d keys for group %q to %s\n", len(keys), groupKey, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupKey, "group", "", "Group key (required)")
	cmd.Flags().StringVar(&groupsFile, "groups-file", "groups.yaml", "Group definitions file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Snapshot output path (default raw_data/<group>.json)")
	cmd.MarkFlagRequired("group")

	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		groupKey    string
		displayName string
		description string
	)

	cmd := &cobra.Command{
		Use:   "import --group KEY SNAPSHOT.json",
		Short: "Import a JSON snapshot into a group table",
		Long: `Merge a fetched snapshot into the group's translation table. New keys
become pending rows, untranslated rows follow source drift, and rows that
already carry a translation are never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			rec := importer.New(st)
			report, err := rec.ImportJSON(cmd.Context(), importer.Args{
				GroupKey:    groupKey,
				DisplayName: displayName,
				Description: description,
			}, data)
			if err != nil {
				return err
			}

			fmt.Printf("Imported into %q: %d inserted, %d updated, %d unchanged, %d protected, %d malformed\n",
				groupKey, report.Inserted, report.Updated, report.Unchanged, report.Protected, report.Malformed)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupKey, "group", "", "Group key (required)")
	cmd.Flags().StringVar(&displayName, "name", "", "Display name for a new group")
	cmd.Flags().StringVar(&description, "description", "", "Description for a new group")
	cmd.MarkFlagRequired("group")

	return cmd
}

func newTranslateCmd() *cobra.Command {
	var (
		groupKey  string
		service   string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "translate --group KEY",
		Short: "Translate pending rows of a group",
		Long: `Translate all pending and previously failed rows of a group using the
configured provider. The run is resumable: interrupting it loses at most
one batch, and the next invocation continues where it stopped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()

			if service == "" {
				service = cfg.TranslationService
			}
			prov, err := provider.FromOptions(provider.Options{
				Service:     service,
				DeepLKey:    cfg.DeepLAPIKey,
				GoogleKey:   cfg.GoogleAPIKey,
				OpenAIKey:   cfg.OpenAIAPIKey,
				OpenAIModel: cfg.OpenAIModel,
			})
			if err != nil {
				return err
			}
			prov = provider.NewRateLimited(prov, provider.RateLimitConfig{
				RequestsPerMinute: cfg.RequestsPerMinute,
			})

			var tc cache.TranslationCache
			if cfg.RedisURL != "" {
				rc, err := cache.NewRedisCache(cache.RedisConfig{URL: cfg.RedisURL, TTL: cfg.CacheTTL})
				if err != nil {
					return fmt.Errorf("redis cache: %w", err)
				}
				defer rc.Close()
				tc = rc
			} else {
				tc = cache.NewInMemoryCache(cfg.CacheTTL)
			}

			opts := []engine.Option{
				engine.WithLocales(cfg.SourceLocale, cfg.TargetLocale),
			}
			if batchSize > 0 {
				opts = append(opts, engine.WithBatchSize(batchSize))
			} else if cfg.BatchSize > 0 {
				opts = append(opts, engine.WithBatchSize(cfg.BatchSize))
			}

			eng := engine.New(engine.Deps{Store: st, Provider: prov, Cache: tc}, opts...)

			start := time.Now()
			report, err := eng.Run(cmd.Context(), groupKey)
			if err != nil {
				return err
			}

			fmt.Printf("Translated %d rows (%d from cache, %d failed) in %d batches, %s\n",
				report.Translated, report.Cached, report.Failed, report.Batches,
				time.Since(start).Round(time.Second))
			return nil
		},
	}

	cmd.Flags().StringVar(&groupKey, "group", "", "Group key (required)")
	cmd.Flags().StringVar(&service, "service", "", "Provider override: deepl, google, openai, mock")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per provider call")
	cmd.MarkFlagRequired("group")

	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		groupKey string
		output   string
		raw      bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "export --group KEY",
		Short: "Export a group's translations",
		Long: `Export the translated rows of a group as a Java properties file with
\uXXXX escapes (the Confluence language bundle format), or as flat JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, st, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()

			if output == "" {
				ext := ".properties"
				if asJSON {
					ext = ".json"
				}
				output = filepath.Join("output", groupKey, groupKey+"_"+cfg.TargetLocale+ext)
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			exp := exporter.New(st)
			var n int
			if asJSON {
				n, err = exp.WriteJSON(cmd.Context(), groupKey, f)
			} else {
				n, err = exp.WriteProperties(cmd.Context(), groupKey, f, exporter.PropertiesOptions{Raw: raw})
			}
			if err != nil {
				return err
			}

			fmt.Printf("Exported %d keys to %s\n", n, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&groupKey, "group", "", "Group key (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output path (default output/<group>/<group>_<locale>.properties)")
	cmd.Flags().BoolVar(&raw, "raw", false, "Write UTF-8 text instead of \\uXXXX escapes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write flat JSON instead of properties")
	cmd.MarkFlagRequired("group")

	return cmd
}

func newStatsCmd() *cobra.Command {
	var groupKey string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show translation progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()

			groups, err := st.ListGroups(cmd.Context())
			if err != nil {
				return err
			}

			for _, g := range groups {
				if groupKey != "" && g.GroupKey != groupKey {
					continue
				}
				stats, err := st.Statistics(cmd.Context(), g.TableName)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d/%d translated (%.1f%%), %d pending, %d errors\n",
					g.GroupKey, stats.Translated, stats.Total, stats.Percentage,
					stats.Pending, stats.Errors)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&groupKey, "group", "", "Limit to one group")

	return cmd
}

func newGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List registered groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := setup()
			if err != nil {
				return err
			}
			defer st.Close()

			groups, err := st.ListGroups(cmd.Context())
			if err != nil {
				return err
			}
			if len(groups) == 0 {
				fmt.Println("No groups registered yet. Run an import first.")
				return nil
			}

			for _, g := range groups {
				fmt.Printf("%-30s %s\n", g.GroupKey, g.DisplayName)
			}
			return nil
		},
	}
}
