package kv

import (
	"context"
	"fmt"
	"log"
	"math"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/distkv-io/partikv/cmd/util"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool against a cluster",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__partikv_perf"
	perfNumThreads = 10
	perfKeySpread  = 100
)

func init() {
	key := "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of goroutines to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many distinct hash keys to use for the tests"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	perfNumThreads = viper.GetInt("threads")
	perfKeySpread = viper.GetInt("keys")
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for partikv")
	fmt.Printf("Threads: %d, Keys: %d\n\n", perfNumThreads, perfKeySpread)

	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%d", perfKeyPrefix, i)
	}
	ctx := context.Background()

	setResult := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				k := keys[counter%len(keys)]
				if err := rpcTable.Set(ctx, []byte(k), []byte("sk"), []byte("value"), 0); err != nil {
					log.Printf("(set) error: %v", err)
				}
				counter++
			}
		})
	})
	printResult("set", setResult)

	getResult := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				k := keys[counter%len(keys)]
				if _, err := rpcTable.Get(ctx, []byte(k), []byte("sk")); err != nil {
					log.Printf("(get) error: %v", err)
				}
				counter++
			}
		})
	})
	printResult("get", getResult)

	delResult := testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				k := keys[counter%len(keys)]
				if err := rpcTable.Remove(ctx, []byte(k), []byte("sk")); err != nil {
					log.Printf("(del) error: %v", err)
				}
				counter++
			}
		})
	})
	printResult("del", delResult)

	return nil
}

func printResult(name string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-10sskipped\n", name)
		return
	}
	nsPerOp := math.Max(float64(result.NsPerOp()), 1)
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	fmt.Printf("%-10s%.0fns/op (%s/op)\t%.0f ops/sec\n", name, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}
