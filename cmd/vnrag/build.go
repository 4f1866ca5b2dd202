package main

import (
	"fmt"

	"github.com/hqta1110/vnrag/blobstore"
	"github.com/hqta1110/vnrag/knowledge"
	"github.com/spf13/cobra"
)

func buildCmd() *cobra.Command {
	var (
		chunks      string
		prefix      string
		name        string
		compression string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed a chunk directory and write the knowledge file",
		Long: `Build reads <chunks>/<topic>[-<topic>...]/<file>.txt, embeds every chunk
and writes the knowledge file to the configured knowledge location.
Any embedding failure aborts the build without writing a file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			if chunks == "" {
				return fmt.Errorf("--chunks is required")
			}
			if name == "" {
				name = cfg.Knowledge.Name
			}
			var comp *knowledge.Compression
			if compression != "" {
				c, err := knowledge.ParseCompression(compression)
				if err != nil {
					return err
				}
				comp = &c
			}

			items, err := knowledge.LoadChunks(ctx, blobstore.NewLocalStore(chunks), prefix)
			if err != nil {
				return err
			}
			logger.InfoContext(ctx, "chunks loaded", "dir", chunks, "chunks", len(items))

			dst, err := openStore(ctx, cfg, cfg.Knowledge.URI)
			if err != nil {
				return err
			}
			emb, err := newEmbedder(cfg, logger)
			if err != nil {
				return err
			}

			res, err := knowledge.Build(ctx, emb, items, dst, func(o *knowledge.BuildOptions) {
				o.Name = name
				o.Logger = componentLogger(logger, "build")
				o.Compression = comp
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d passages, dimension %d, %d bytes (%s) in %s\n",
				res.Name, res.Passages, res.Dimension, res.Bytes, res.Compression, res.Duration)
			return nil
		},
	}

	cmd.Flags().StringVar(&chunks, "chunks", "", "local chunk directory")
	cmd.Flags().StringVar(&prefix, "prefix", "", "sub-directory of the chunk directory to read")
	cmd.Flags().StringVarP(&name, "out", "o", "", "knowledge file name (default from config)")
	cmd.Flags().StringVar(&compression, "compression", "", "none, zstd or lz4 (default: by file extension)")
	return cmd
}
