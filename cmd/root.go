package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/tender-analyzer/internal/server"
)

const (
	app       = "tender-analyzer"
	envPrefix = "TENDER"
)

type Config struct {
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Server   server.Config  `mapstructure:"server"`
	Remote   RemoteConfig   `mapstructure:"remote"`
}

type PipelineConfig struct {
	Workers      int   `mapstructure:"workers"`
	MaxFileSize  int64 `mapstructure:"max-file-size"`
	MaxPages     int   `mapstructure:"max-pages"`
	MaxLogLength int   `mapstructure:"max-log-length"`
}

type RemoteConfig struct {
	URL        string        `mapstructure:"url"`
	TokenFile  string        `mapstructure:"token-file"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max-retries"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "tender-analyzer compares laptop bid PDFs against tender requirements and picks the best bid",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is tender-analyzer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.workers", 1)
	v.SetDefault("pipeline.max-file-size", 32<<20)
	v.SetDefault("pipeline.max-pages", 0)
	v.SetDefault("pipeline.max-log-length", 200)

	v.SetDefault("server.listen", ":4000")
	v.SetDefault("server.allowed-origins", []string{"*"})
	v.SetDefault("server.max-upload-size", 64<<20)
	v.SetDefault("server.rate-limit", 5)
	v.SetDefault("server.rate-burst", 10)
	v.SetDefault("server.token-file", "")

	v.SetDefault("remote.url", "")
	v.SetDefault("remote.token-file", "")
	v.SetDefault("remote.timeout", 60*time.Second)
	v.SetDefault("remote.max-retries", 2)
}

func initConfig() {
	if err := readConfig(viper.GetViper(), cfgFile); err != nil {
		// We can't proceed if the config file parsed with error.
		log.Fatal(err)
	}
}

// readConfig applies defaults and environment overrides, then reads the
// config file. Only an explicitly requested file has to exist.
func readConfig(v *viper.Viper, file string) error {
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(app)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
