// internal/cli/root.go
package geoassist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/geoassist/internal/appconfig"
	"github.com/mwiater/geoassist/internal/logging"
)

var (
	cfgFile       string
	currentConfig *appconfig.Config
	appVersion    = "dev"
	appCommit     = "none"
	appDate       = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:          "geoassist",
	Short:        "geoassist — district suitability answers and documentation search",
	SilenceUsage: true,
}

// rootPersistentPreRunE loads and validates configuration before any command runs.
// It is attached to rootCmd in init to avoid an initialization cycle.
func rootPersistentPreRunE(cmd *cobra.Command, args []string) error {
	if err := ensureConfigLoaded(); err != nil {
		return err
	}

	if !cmd.Flags().Changed("debug") {
		_ = cmd.Flags().Set("debug", strconv.FormatBool(viper.GetBool("debug")))
	}

	cfg := appconfig.Default()
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ConfigPath = viper.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return err
	}
	currentConfig = &cfg

	if err := logging.Init(currentConfig.LogFilePath(), currentConfig.Debug); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", appVersion, appCommit, appDate)

	defer logging.Close()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = rootPersistentPreRunE
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", appconfig.DefaultConfigPath, "config file (e.g., config/config.json)")
	rootCmd.PersistentFlags().Bool("debug", false, "print debug detail with answers")
	rootCmd.PersistentFlags().String("logFile", "", "path to the log file")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("logFile", rootCmd.PersistentFlags().Lookup("logFile"))
}

// initConfig points viper at the config file and the GEOASSIST_* environment,
// after loading a .env file when one exists.
func initConfig() {
	_ = godotenv.Load()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
	for key, value := range appconfig.DefaultSettings() {
		viper.SetDefault(key, value)
	}
	viper.SetEnvPrefix("GEOASSIST")
	viper.AutomaticEnv()
	for _, key := range appconfig.Keys() {
		_ = viper.BindEnv(key)
	}
	_ = viper.BindEnv("geminiAPIKey", "GEOASSIST_GEMINIAPIKEY", "GEMINI_API_KEY")
}

// ensureConfigLoaded reads the config file. A missing file is only an error
// when it was named explicitly with --config.
func ensureConfigLoaded() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
			return nil
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// getConfig returns the loaded application configuration.
func getConfig() *appconfig.Config {
	return currentConfig
}

// DebugEnabled returns true if debug mode is enabled.
func DebugEnabled() bool { return viper.GetBool("debug") }

// SetVersionInfo allows the main package to inject build-time variables.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}
