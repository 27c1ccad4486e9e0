package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/hls-client/internal/constants"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
	"github.com/fivetwenty-io/hls-client/pkg/hlsclient"
)

// Config represents the CLI configuration.
type Config struct {
	BaseURL   string `json:"base_url"             yaml:"base_url"`
	UserID    string `json:"user_id"              yaml:"user_id"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`

	// TokenTTL is in seconds; timeouts are in milliseconds with -1 meaning unbounded.
	TokenTTL       int `json:"token_ttl"       yaml:"token_ttl"`
	ConnectTimeout int `json:"connect_timeout" yaml:"connect_timeout"`
	ReadTimeout    int `json:"read_timeout"    yaml:"read_timeout"`

	Output string `json:"output" yaml:"output"`
	Debug  bool   `json:"debug"  yaml:"debug"`

	Cache *hls.CacheConfig `json:"cache,omitempty" yaml:"cache,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage HLS CLI configuration including the historian address, credentials and timeouts",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	var showSecret bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the effective CLI configuration. The secret key is masked unless --show-secret is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if !showSecret && config.SecretKey != "" {
				config.SecretKey = maskSecret(config.SecretKey)
			}

			return render(cmd.OutOrStdout(), config, func(table *tablewriter.Table) error {
				table.Header("Property", "Value")

				return appendRows(table, configRows(config))
			})
		},
	}

	cmd.Flags().BoolVar(&showSecret, "show-secret", false, "show the secret key in clear text")

	return cmd
}

func newConfigSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + configKeysHelp(),
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]

			config := loadConfig()

			err := setConfigValue(config, key, value)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if key == "secret_key" {
				value = maskSecret(value)
			}

			return outputConfigUpdateResult(cmd, "Set", key, value)
		},
	}

	// Values such as -1 are arguments, not shorthand flags.
	cmd.Flags().SetInterspersed(false)

	return cmd
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Reset a configuration value to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			config := loadConfig()

			err := setConfigValue(config, key, "")
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return outputConfigUpdateResult(cmd, "Unset", key, "")
		},
	}
}

func loadConfig() *Config {
	config := &Config{
		BaseURL:        viper.GetString("base_url"),
		UserID:         viper.GetString("user_id"),
		SecretKey:      viper.GetString("secret_key"),
		TokenTTL:       viper.GetInt("token_ttl"),
		ConnectTimeout: viper.GetInt("connect_timeout"),
		ReadTimeout:    viper.GetInt("read_timeout"),
		Output:         viper.GetString("output"),
		Debug:          viper.GetBool("debug"),
	}

	if viper.IsSet("cache") {
		cache := &hls.CacheConfig{}

		err := viper.UnmarshalKey("cache", cache)
		if err == nil && cache.Type != "" {
			config.Cache = cache
		}
	}

	return config
}

func saveConfigStruct(config *Config) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}

		configDir := filepath.Join(home, ".hls")

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		configFile = filepath.Join(configDir, "config.yml")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Later commands in the same process read the saved values.
	viper.SetConfigFile(configFile)

	err = viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to reload config file: %w", err)
	}

	return nil
}

// configHandlers maps each settable key to its setter. An empty value resets the key.
func configHandlers() map[string]func(*Config, string) error {
	return map[string]func(*Config, string) error{
		"base_url":   func(c *Config, v string) error { c.BaseURL = hlsclient.NormalizeBaseURL(v); return nil },
		"user_id":    func(c *Config, v string) error { c.UserID = v; return nil },
		"secret_key": func(c *Config, v string) error { c.SecretKey = v; return nil },
		"output":     func(c *Config, v string) error { c.Output = v; return nil },
		"debug": func(c *Config, v string) error {
			c.Debug = v == constants.BooleanTrue || v == "1"

			return nil
		},
		"token_ttl":       intSetter(func(c *Config) *int { return &c.TokenTTL }),
		"connect_timeout": intSetter(func(c *Config) *int { return &c.ConnectTimeout }),
		"read_timeout":    intSetter(func(c *Config) *int { return &c.ReadTimeout }),
		"cache.type": func(c *Config, v string) error {
			ensureCache(c).Type = hls.CacheType(v)

			return nil
		},
		"cache.nats.url": func(c *Config, v string) error {
			ensureNATS(c).URL = v

			return nil
		},
		"cache.nats.bucket": func(c *Config, v string) error {
			ensureNATS(c).Bucket = v

			return nil
		},
	}
}

func intSetter(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		if v == "" {
			*field(c) = 0

			return nil
		}

		n, err := cast.ToIntE(v)
		if err != nil {
			return fmt.Errorf("invalid integer %q: %w", v, err)
		}

		*field(c) = n

		return nil
	}
}

func ensureCache(c *Config) *hls.CacheConfig {
	if c.Cache == nil {
		c.Cache = &hls.CacheConfig{Type: hls.CacheTypeMemory}
	}

	return c.Cache
}

func ensureNATS(c *Config) *hls.NATSKVConfig {
	cache := ensureCache(c)
	if cache.NATS == nil {
		cache.NATS = &hls.NATSKVConfig{}
	}

	return cache.NATS
}

func setConfigValue(config *Config, key, value string) error {
	handler, exists := configHandlers()[key]
	if !exists {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return handler(config, value)
}

func configKeysHelp() string {
	keys := make([]string, 0, len(configHandlers()))
	for k := range configHandlers() {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return strings.Join(keys, ", ")
}

func configRows(config *Config) [][]string {
	rows := [][]string{
		{"Base URL", formatConfigValue(config.BaseURL)},
		{"User ID", formatConfigValue(config.UserID)},
		{"Secret Key", formatConfigValue(config.SecretKey)},
		{"Token TTL (s)", strconv.Itoa(config.TokenTTL)},
		{"Connect Timeout (ms)", strconv.Itoa(config.ConnectTimeout)},
		{"Read Timeout (ms)", strconv.Itoa(config.ReadTimeout)},
		{"Output", formatConfigValue(config.Output)},
		{"Debug", strconv.FormatBool(config.Debug)},
	}

	if config.Cache != nil {
		rows = append(rows, []string{"Cache", string(config.Cache.Type)})
		if config.Cache.NATS != nil {
			rows = append(rows,
				[]string{"NATS URL", formatConfigValue(config.Cache.NATS.URL)},
				[]string{"NATS Bucket", formatConfigValue(config.Cache.NATS.Bucket)},
			)
		}
	}

	return rows
}

func formatConfigValue(value string) string {
	if value == "" {
		return "(not set)"
	}

	return value
}

func outputConfigUpdateResult(cmd *cobra.Command, action, key, value string) error {
	result := map[string]string{
		"action": action,
		"key":    key,
	}

	if value != "" {
		result["value"] = value
	}

	return render(cmd.OutOrStdout(), result, func(table *tablewriter.Table) error {
		table.Header("Property", "Value")

		rows := [][]string{{"Action", action}, {"Key", key}}
		if value != "" {
			rows = append(rows, []string{"Value", value})
		}

		return appendRows(table, rows)
	})
}

// clientConfig converts the CLI configuration to a library configuration.
func clientConfig(config *Config, logger hls.Logger) *hls.Config {
	return &hls.Config{
		BaseURL:        config.BaseURL,
		UserID:         config.UserID,
		SecretKey:      config.SecretKey,
		TokenTTL:       time.Duration(config.TokenTTL) * time.Second,
		ConnectTimeout: millis(config.ConnectTimeout),
		ReadTimeout:    millis(config.ReadTimeout),
		Cache:          config.Cache,
		Debug:          config.Debug || viper.GetBool("verbose"),
		Logger:         logger,
	}
}

// millis converts a millisecond setting. -1 (or any negative value) is unbounded.
func millis(ms int) time.Duration {
	if ms < 0 {
		return constants.Unbounded
	}

	return time.Duration(ms) * time.Millisecond
}

// CreateClient builds a historian client from the effective configuration.
func CreateClient(ctx context.Context) (hls.Client, error) {
	return createClientWithConfig(ctx, loadConfig())
}

func createClientWithConfig(ctx context.Context, config *Config) (hls.Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%w: use 'hls config set base_url URL' or --base-url", constants.ErrBaseURLRequired)
	}

	logger := NewLogger(viper.GetBool("verbose") || config.Debug)

	client, err := hlsclient.New(ctx, clientConfig(config, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create historian client: %w", err)
	}

	return client, nil
}
