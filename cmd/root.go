package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/distkv-io/partikv/cmd/kv"
)

const Version = "0.1.0"

var (
	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "partikv-cli",
		Short: "client for a partitioned, replicated key-value store",
		Long: fmt.Sprintf(`partikv-cli (v%s)

A command-line client for a partitioned, replicated key-value store,
routing requests directly to the owning replica via the cluster's meta
servers.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of partikv-cli",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("partikv-cli v%s\n", Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(kv.TableCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
