package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opal-lang/formeval/runtime/orchestrator"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the compiled-expression store and result cache",
	}
	cmd.AddCommand(newCacheStatsCommand())
	return cmd
}

func newCacheStatsCommand() *cobra.Command {
	var dataPath, ctxPath string

	cmd := &cobra.Command{
		Use:   "stats <schema.json>",
		Short: "Evaluate a schema once and report cache/store statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schemaDoc, err := loadValue(args[0])
			if err != nil {
				return err
			}
			data, err := loadValue(dataPath)
			if err != nil {
				return err
			}
			ctx, err := loadValue(ctxPath)
			if err != nil {
				return err
			}

			eng, err := orchestrator.New(schemaDoc, sharedStore, ctx, data, orchestrator.DefaultConfig())
			if err != nil {
				return err
			}
			if err := eng.Evaluate(data, ctx, nil); err != nil {
				return err
			}

			cacheLen, storeStats := eng.CacheStats()
			fmt.Printf("cache entries:        %d\n", cacheLen)
			fmt.Printf("store entries:        %d\n", storeStats.Entries)
			fmt.Printf("store compiles:       %d\n", storeStats.Compiles)
			fmt.Printf("store dedup hits:     %d\n", storeStats.DedupHits)
			fmt.Printf("store max shard size: %d\n", storeStats.MaxShardEntries)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "Path to the initial data JSON document")
	cmd.Flags().StringVar(&ctxPath, "context", "", "Path to the context JSON document")
	return cmd
}
