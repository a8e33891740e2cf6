package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
)

func downloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <access-key> <target-file>",
		Short: "Download a public share to a local file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			accessKey, target := args[0], args[1]
			ctx := cmd.Context()

			share, err := client.GetPublicDownloadShare(ctx, accessKey)
			if err != nil {
				return err
			}
			logger.Info("downloading share",
				"file", share.FileName, "size", share.Size, "encrypted", share.Encrypted())

			var transferred int64
			cfg := &dracoontypes.PublicDownloadConfig{
				Password: password,
				Progress: func(bytes, total int64) {
					transferred += bytes
					logger.Debug("progress", "transferred", transferred, "total", total)
				},
			}

			if err := client.DownloadPublicShareToFile(ctx, accessKey, share, target, cfg); err != nil {
				return err
			}

			fmt.Printf("downloaded %s (%d bytes) to %s\n", share.FileName, share.Size, target)
			return nil
		},
	}
	return cmd
}
