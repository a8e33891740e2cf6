// Package commands implements the dco3 command line tool, a thin consumer
// of the DRACOON client library for public share transfers.
package commands

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	dracoon "github.com/unbekanntes-pferd/dco3-go"
	"github.com/unbekanntes-pferd/dco3-go/dracoontypes"
)

var (
	baseURL   string
	password  string
	chunkSize int64

	client *dracoon.Client
	logger *log.Logger
)

// Execute runs the dco3 root command.
func Execute() error {
	root := &cobra.Command{
		Use:   "dco3",
		Short: "DRACOON public share transfers",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})

			var err error
			client, err = dracoon.New(
				dracoon.WithBaseURL(baseURL),
				dracoon.WithChunkSize(chunkSize),
				dracoon.WithLogger(logger),
			)
			return err
		},
	}

	root.PersistentFlags().StringVar(&baseURL, "base-url", "", "DRACOON instance URL (e.g. https://dracoon.team)")
	root.PersistentFlags().StringVarP(&password, "password", "p", "", "share password")
	root.PersistentFlags().Int64Var(&chunkSize, "chunk-size", dracoontypes.DefaultChunkSize, "transfer chunk size in bytes")
	_ = root.MarkPersistentFlagRequired("base-url")

	root.AddCommand(downloadCmd(), versionCmd())
	return root.Execute()
}
