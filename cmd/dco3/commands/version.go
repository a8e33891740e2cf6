package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print backend version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := client.GetSoftwareVersion(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("REST API: %s\nServer:   %s\nBuilt:    %s\n",
				version.RestAPIVersion, version.SDSServerVersion, version.BuildDate.Format("2006-01-02"))
			return nil
		},
	}
	return cmd
}
