package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/cuerecall/internal/profile"
	"github.com/hrygo/cuerecall/plugin/ai"
	"github.com/hrygo/cuerecall/plugin/ai/memory"
	"github.com/hrygo/cuerecall/plugin/ai/retrieval"
	"github.com/hrygo/cuerecall/store"
	"github.com/hrygo/cuerecall/store/db"
)

var (
	instanceProfile *profile.Profile

	rootCmd = &cobra.Command{
		Use:   "cuerecall",
		Short: "Personalization context retrieval over stored user cues",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if configFile := viper.GetString("config"); configFile != "" {
				viper.SetConfigFile(configFile)
				if err := viper.ReadInConfig(); err != nil {
					return errors.Wrapf(err, "failed to read config file %s", configFile)
				}
			}

			configureLogger(viper.GetString("log-level"))

			instanceProfile = &profile.Profile{
				Mode:    viper.GetString("mode"),
				Data:    viper.GetString("data"),
				Driver:  viper.GetString("driver"),
				DSN:     viper.GetString("dsn"),
				Version: version,
			}
			instanceProfile.FromEnv()
			if err := instanceProfile.Validate(); err != nil {
				return errors.Wrap(err, "invalid profile")
			}
			return nil
		},
		SilenceUsage: true,
	}
)

const version = "0.1.0"

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("log-level", "warn")

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("mode", "demo", `mode of the instance, "prod", "dev" or "demo"`)
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", `database driver, "sqlite" or "postgres"`)
	flags.String("dsn", "", "database source name")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringArray("boost-rule", nil, `extra category boost as factor:CEL expression, e.g. 1.25:category == "work"`)

	// boost-rule is read from the flag set directly; viper would split CEL expressions on commas.
	for _, name := range []string{"config", "mode", "data", "driver", "dsn", "log-level"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("cuerecall")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(newInitCmd(), newQueryCmd(), newAskCmd(), newReinforceCmd(), newVersionCmd())
}

func configureLogger(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

// openStore connects to the configured database and applies the schema.
func openStore(ctx context.Context) (*store.Store, error) {
	driver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, err
	}
	s := store.New(driver, instanceProfile)
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}
	return s, nil
}

// newRetrievalCore wires the store, the optional remote provider and boost rules.
func newRetrievalCore(s *store.Store) (*retrieval.Core, error) {
	cfg := ai.NewConfigFromProfile(instanceProfile)
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI config")
	}

	var embedder ai.EmbeddingService
	if instanceProfile.IsAIEnabled() {
		svc, err := ai.NewEmbeddingService(&cfg.Embedding)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create embedding service")
		}
		embedder = svc
	}

	rawRules, err := rootCmd.PersistentFlags().GetStringArray("boost-rule")
	if err != nil {
		return nil, err
	}
	rules := retrieval.DefaultBoostRules()
	for _, raw := range rawRules {
		rule, err := retrieval.ParseCELRule(raw)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return retrieval.NewCore(
		memory.NewCueStore(s),
		embedder,
		cfg.Retrieval,
		retrieval.WithRankerOptions(retrieval.WithBoostRules(rules...)),
	), nil
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the cue schema (and demo data in demo mode)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "database ready (driver=%s, mode=%s)\n", instanceProfile.Driver, instanceProfile.Mode)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Version needs no profile.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cuerecall %s\n", version)
		},
	}
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
