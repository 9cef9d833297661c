package cmd

import (
	"errors"
	"fmt"

	"Playa/storage"

	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "List the mirrored state objects",
	Long:  `Connect to the configured MinIO bucket and list the library index and playlist snapshots mirrored there.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.HasMinio() {
			return errors.New("minio is not configured, set MINIO_ENDPOINT and MINIO_BUCKET")
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Bucket %s at %s\n", cfg.MinioBucket, cfg.MinioEndpoint)

		client, err := storage.NewMinioClient(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return client.PrintObjects(cmd.Context(), out)
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
}
