package kv

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/distkv-io/partikv/client"
	"github.com/distkv-io/partikv/cmd/util"
	"github.com/distkv-io/partikv/table"
)

var (
	c        *client.Client
	rpcTable *table.Table

	// TableCommands represents the table command group
	TableCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform table operations against a cluster",
		PersistentPreRunE: setupTableClient,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c != nil {
				c.Close()
			}
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize(util.InitClientConfig)

	util.SetupClientFlags(TableCommands)
	TableCommands.PersistentFlags().String("table", "", util.WrapString("Name of the table to operate on (required)"))

	TableCommands.AddCommand(setCmd)
	TableCommands.AddCommand(getCmd)
	TableCommands.AddCommand(delCmd)
	TableCommands.AddCommand(hasCmd)
	TableCommands.AddCommand(incrCmd)
	TableCommands.AddCommand(ttlCmd)
	TableCommands.AddCommand(perfTestCmd)
}

// setupTableClient builds the cluster client and opens the requested
// table before any table subcommand runs.
func setupTableClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	tableName, err := cmd.Flags().GetString("table")
	if err != nil {
		return err
	}
	if tableName == "" {
		return fmt.Errorf("--table is required")
	}

	c, err = util.NewClient()
	if err != nil {
		return err
	}

	rpcTable, err = c.Open(tableName)
	return err
}
