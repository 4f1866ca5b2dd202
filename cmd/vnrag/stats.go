package main

import (
	"fmt"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Load the knowledge file and print corpus statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			rc, err := newRetrievalContext(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if _, err := rc.Store().Load(ctx); err != nil {
				return err
			}

			data, err := gojson.MarshalIndent(rc.Stats(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}
}
