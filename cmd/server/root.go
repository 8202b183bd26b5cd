package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/williamzujkowski/obmc-manager/internal/api"
)

const envPrefix = "OBMC"

// Config keys. Each may also be set as OBMC_<KEY> with dots replaced by underscores.
const (
	configAddr          = "addr"
	configAPIKey        = "api_key"
	configLogLevel      = "log.level"
	configLogPretty     = "log.pretty"
	configHost          = "host"
	configHostID        = "host_id"
	configHostName      = "host_name"
	configUser          = "user"
	configPass          = "pass"
	configValidateCerts = "validate_certs"
	configHosts         = "hosts"
)

var (
	v          = viper.New()
	configFile string

	rootCmd = &cobra.Command{
		Use:           "obmc-manager",
		Short:         "Manage OpenBMC servers over Redfish",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(v, configFile); err != nil {
				return err
			}
			return setupLogging(v.GetString(configLogLevel), v.GetBool(configLogPretty))
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML config file with a hosts map")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error")
	flags.Bool("log-pretty", false, "human-readable console logs")
	flags.String("host", "", "BMC address, optionally prefixed with http:// or https://")
	flags.String("host-id", "default", "host identifier")
	flags.String("host-name", "", "display name for the host")
	flags.String("user", "root", "BMC username")
	flags.String("pass", "", "BMC password")
	flags.Bool("validate-certs", true, "verify the BMC's TLS certificate")

	for key, name := range map[string]string{
		configLogLevel:      "log-level",
		configLogPretty:     "log-pretty",
		configHost:          "host",
		configHostID:        "host-id",
		configHostName:      "host-name",
		configUser:          "user",
		configPass:          "pass",
		configValidateCerts: "validate-certs",
	} {
		_ = v.BindPFlag(key, flags.Lookup(name))
	}
}

// loadConfig reads the optional config file and wires environment overrides.
func loadConfig(v *viper.Viper, file string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault(configAddr, ":8080")
	v.SetDefault(configValidateCerts, true)

	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", file, err)
	}
	return nil
}

// hosts returns the configured hosts: the hosts map of the config file plus
// the single host given by --host, if any.
func hosts(v *viper.Viper) (map[string]*api.HostConfig, error) {
	out := map[string]*api.HostConfig{}
	if err := v.UnmarshalKey(configHosts, &out); err != nil {
		return nil, fmt.Errorf("decoding hosts: %w", err)
	}

	if host := v.GetString(configHost); host != "" {
		name := v.GetString(configHostName)
		if name == "" {
			name = host
		}
		out[v.GetString(configHostID)] = &api.HostConfig{
			Name:          name,
			Hostname:      host,
			Username:      v.GetString(configUser),
			Password:      v.GetString(configPass),
			ValidateCerts: lo.ToPtr(v.GetBool(configValidateCerts)),
		}
	}

	for id, h := range out {
		if h.Name == "" {
			h.Name = id
		}
	}
	return out, nil
}

func setupLogging(level string, pretty bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return nil
}
