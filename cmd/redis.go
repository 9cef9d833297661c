package cmd

import (
	"fmt"

	"Playa/cache"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Check the redis playlist backend",
	Long:  `Connect to redis with the configured settings and run a write/read/delete round trip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Connecting to redis at %s:%s, db %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		client, err := cache.ConnectRedis(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := cache.TestRedis(cmd.Context(), client); err != nil {
			return fmt.Errorf("redis round trip: %w", err)
		}

		saved, err := client.HLen(cmd.Context(), cache.RegistryKey).Result()
		if err != nil {
			return fmt.Errorf("read %s: %w", cache.RegistryKey, err)
		}
		fmt.Fprintf(out, "Redis OK, %d playlists stored under %s\n", saved, cache.RegistryKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
}
