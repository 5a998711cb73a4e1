// Package cli implements the pkgsweep command line interface.
package cli

import (
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pkgsweep",
	Short: "Retention manager for container-registry package versions",
	Long: `pkgsweep enumerates the stored versions of a container image package,
keeps a fixed-size buffer of the newest untagged versions, and permanently
deletes the rest through the registry API.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pkgsweep.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pkgsweep")
		viper.SetConfigType("toml")
		viper.AddConfigPath(".")
		if userConfigDir, err := os.UserConfigDir(); err == nil {
			viper.AddConfigPath(userConfigDir + "/pkgsweep")
		}
	}

	viper.SetEnvPrefix("PKGSWEEP")
	viper.AutomaticEnv()
	_ = viper.BindEnv("token", "PKGSWEEP_TOKEN", "GITHUB_TOKEN")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal().Err(err).Msg("failed to read config file")
		}
	}
}

func initLogger() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
