package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/wingman/internal/profile"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "wingman",
	Short: "Mock interview practice with AI interviewer and video analysis",
	Long: `wingman runs mock interview sessions: it records the candidate, holds an
AI-driven conversation, ships the recording to the analysis service and folds
the results into one report.

  wingman serve                                  # results API
  wingman practice --input answer.webm           # interactive session
  wingman aggregate --file segments.json         # render a stored report`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfigFile()
	},
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8081)

	rootCmd.PersistentFlags().String("config", "", "config file (yaml, toml or json)")
	rootCmd.PersistentFlags().String("mode", "dev", `mode of the instance, "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the results API")
	rootCmd.PersistentFlags().Int("port", 8081, "port of the results API")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")

	for _, name := range []string{"config", "mode", "addr", "port", "data", "driver", "dsn", "log-level"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("wingman")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(serveCmd, practiceCmd, aggregateCmd)
	rootCmd.Version = version
}

func loadConfigFile() error {
	file := viper.GetString("config")
	if file == "" {
		return nil
	}
	viper.SetConfigFile(file)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", file, err)
	}
	return nil
}

// loadProfile reads WINGMAN_* variables first, then lets flags and the config file
// override the instance settings.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{}
	p.FromEnv()
	p.Mode = viper.GetString("mode")
	p.Addr = viper.GetString("addr")
	p.Port = viper.GetInt("port")
	p.Data = viper.GetString("data")
	p.Driver = viper.GetString("driver")
	p.DSN = viper.GetString("dsn")
	p.Version = version
	for key, target := range map[string]*string{
		"storage-backend": &p.StorageBackend,
		"upload-url":      &p.UploadURL,
		"analysis-url":    &p.AnalysisURL,
		"results-url":     &p.ResultsURL,
		"speech-url":      &p.SpeechURL,
	} {
		if viper.IsSet(key) {
			*target = viper.GetString(key)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func setupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
