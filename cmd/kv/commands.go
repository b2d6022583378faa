package kv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/distkv-io/partikv/table"
)

var (
	setCmd = &cobra.Command{
		Use:   "set [hashKey] [sortKey] [value]",
		Short: "Sets the value for a (hashKey, sortKey) pair",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultCmdTimeout)
			defer cancel()
			if err := rpcTable.Set(ctx, []byte(args[0]), []byte(args[1]), []byte(args[2]), 0); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [hashKey] [sortKey]",
		Short: "Reads the value for a (hashKey, sortKey) pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultCmdTimeout)
			defer cancel()
			val, err := rpcTable.Get(ctx, []byte(args[0]), []byte(args[1]))
			if table.IsNotFound(err) {
				fmt.Printf("hashKey=%s sortKey=%s: not found\n", args[0], args[1])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("hashKey=%s sortKey=%s value=%s\n", args[0], args[1], val)
			return nil
		},
	}

	delCmd = &cobra.Command{
		Use:   "del [hashKey] [sortKey]",
		Short: "Deletes a (hashKey, sortKey) pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultCmdTimeout)
			defer cancel()
			if err := rpcTable.Remove(ctx, []byte(args[0]), []byte(args[1])); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}

	hasCmd = &cobra.Command{
		Use:   "has [hashKey] [sortKey]",
		Short: "Checks if a (hashKey, sortKey) pair exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultCmdTimeout)
			defer cancel()
			found, err := rpcTable.Exists(ctx, []byte(args[0]), []byte(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("hashKey=%s sortKey=%s found=%t\n", args[0], args[1], found)
			return nil
		},
	}

	incrCmd = &cobra.Command{
		Use:   "incr [hashKey] [sortKey] [delta]",
		Short: "Atomically adds delta to the integer value at (hashKey, sortKey)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return fmt.Errorf("delta must be an integer: %w", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), defaultCmdTimeout)
			defer cancel()
			newValue, err := rpcTable.Incr(ctx, []byte(args[0]), []byte(args[1]), delta)
			if err != nil {
				return err
			}
			fmt.Printf("new value: %d\n", newValue)
			return nil
		},
	}

	ttlCmd = &cobra.Command{
		Use:   "ttl [hashKey] [sortKey]",
		Short: "Reads the remaining time-to-live for (hashKey, sortKey)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultCmdTimeout)
			defer cancel()
			ttl, err := rpcTable.TTL(ctx, []byte(args[0]), []byte(args[1]))
			if err != nil {
				return err
			}
			if ttl < 0 {
				fmt.Println("no expiry")
				return nil
			}
			fmt.Printf("ttl: %s\n", ttl)
			return nil
		},
	}
)

const defaultCmdTimeout = 5 * time.Second
