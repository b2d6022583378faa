package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/distkv-io/partikv/client"
	"github.com/distkv-io/partikv/internal/logging"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the construction configuration options every
// subcommand that talks to a cluster needs.
func SetupClientFlags(cmd *cobra.Command) {
	key := "meta-servers"
	cmd.PersistentFlags().String(key, "localhost:34601", WrapString("Comma-separated list of meta server host:port endpoints"))

	key = "operation-timeout-ms"
	cmd.PersistentFlags().Int(key, 1000, WrapString("Default per-operation deadline, in milliseconds"))

	key = "connect-timeout-ms"
	cmd.PersistentFlags().Int(key, 500, WrapString("Per-dial timeout for new sessions, in milliseconds"))

	key = "enable-counter"
	cmd.PersistentFlags().Bool(key, false, WrapString("Push performance counters to a local metrics agent"))

	key = "perf-counter-tags"
	cmd.PersistentFlags().String(key, "", WrapString("Tag string attached to every pushed metric"))

	key = "push-interval-secs"
	cmd.PersistentFlags().Int(key, 10, WrapString("Metrics push interval, in seconds"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("Log level: debug, info, warning, error"))
}

// InitClientConfig loads .env files and wires viper to read matching
// PARTIKV_-prefixed environment variables.
func InitClientConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("partikv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper so environment
// variables and flags resolve through the same lookup.
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetClientConfig builds a client.Config from whatever viper currently
// has bound, flags and environment alike.
func GetClientConfig() client.Config {
	cfg := client.DefaultConfig()
	cfg.MetaServers = strings.Split(viper.GetString("meta-servers"), ",")
	cfg.OperationTimeout = time.Duration(viper.GetInt("operation-timeout-ms")) * time.Millisecond
	cfg.ConnectTimeout = time.Duration(viper.GetInt("connect-timeout-ms")) * time.Millisecond
	cfg.EnableCounter = viper.GetBool("enable-counter")
	cfg.PerfCounterTags = viper.GetString("perf-counter-tags")
	cfg.PushInterval = time.Duration(viper.GetInt("push-interval-secs")) * time.Second
	return cfg
}

// NewClient builds a client.Client from the currently bound
// configuration, failing with a wrapped error if any meta server is
// malformed.
func NewClient() (*client.Client, error) {
	logging.Install(viper.GetString("log-level"))

	c, err := client.New(GetClientConfig())
	if err != nil {
		return nil, fmt.Errorf("partikv: %w", err)
	}
	return c, nil
}
