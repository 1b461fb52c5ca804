// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-reader CLI. It serves the
// entity API and reader sessions, manages the local entity database, and
// runs headless reader sessions for finding entities and ranking highlights.
package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-reader/internal/logger"
	"github.com/pdiddy/paper-reader/internal/secrets"
	"github.com/pdiddy/paper-reader/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// log is the CLI logger, initialized once config is read.
var log = logger.Nop()

var rootCmd = &cobra.Command{
	Use:   "paper-reader",
	Short: "Annotation core for an interactive paper reader",
	Long: `paper-reader keeps the entities of a paper (symbols, terms, citations,
sentences) in sync with an entity API, drives selection and find over them,
and ranks faceted highlights for skimming.

Use serve to expose a local entity database and websocket reader sessions.
The entities, find, and highlights commands run the same operations from
the command line against the database or a remote API (--api-url).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.InitGlobal(logger.FromTypes(types.LogConfig{
			Level:  viper.GetString("log.level"),
			Pretty: viper.GetBool("log.pretty"),
		}))
		if used := viper.ConfigFileUsed(); used != "" {
			log.Debug().Str("file", used).Msg("using config file")
		}

		s, err := secrets.Load(secrets.DefaultDir, log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			log.Debug().Strs("keys", slices.Sorted(maps.Keys(s))).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paper-reader.yaml or ~/.config/paper-reader/paper-reader.yaml)")
	pf.String("db", "", "entity database path (default data/entities.db)")
	pf.String("api-url", "", "entity API base URL; when set, the API is used instead of the database")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("pretty", false, "human-readable log output")

	bindFlag("db.path", "db")
	bindFlag("backend.url", "api-url")
	bindFlag("log.level", "log-level")
	bindFlag("log.pretty", "pretty")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-reader")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-reader"))
		}
	}

	viper.SetEnvPrefix("PAPER_READER")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
}

func setDefaults() {
	reader := types.DefaultReaderConfig()
	hl := types.DefaultHighlightConfig()

	viper.SetDefault("backend.timeout", "30s")
	viper.SetDefault("backend.user_agent", "paper-reader/"+version)
	viper.SetDefault("backend.max_retries", 3)
	viper.SetDefault("db.path", "data/entities.db")
	viper.SetDefault("server.addr", ":8080")

	viper.SetDefault("reader.propagate_entity_edits", reader.PropagateEntityEdits)
	viper.SetDefault("reader.multiselect", reader.Multiselect)
	viper.SetDefault("reader.annotation_interaction", reader.AnnotationInteraction)
	viper.SetDefault("reader.annotations_showing", reader.AnnotationsShowing)
	viper.SetDefault("reader.entity_creation", reader.EntityCreation)
	viper.SetDefault("reader.entity_editing", reader.EntityEditing)
	viper.SetDefault("reader.copy_sentence_on_click", reader.CopySentenceOnClick)
	viper.SetDefault("reader.faceted_highlights", reader.FacetedHighlights)

	viper.SetDefault("highlights.quantity", hl.Quantity)
	viper.SetDefault("highlights.score_threshold", hl.ScoreThreshold)
	for facet, color := range hl.Colors {
		viper.SetDefault("highlights.colors."+string(facet), color)
	}

	viper.SetDefault("log.level", "info")
}

// bindFlag binds a persistent flag to a config key. Binding only fails for
// an unknown flag.
func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// bindCommandFlags binds a command's local flags to config keys. Commands
// bind at run time since several share a key.
func bindCommandFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// loadConfig decodes viper settings and applies secrets.
func loadConfig() (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	loadedSecrets.ApplyTo(&cfg.Backend)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
