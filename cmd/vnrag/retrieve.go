package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	gojson "github.com/goccy/go-json"
	"github.com/hqta1110/vnrag"
	"github.com/hqta1110/vnrag/codec"
	"github.com/hqta1110/vnrag/distance"
	"github.com/hqta1110/vnrag/embedding"
	"github.com/hqta1110/vnrag/indexcache"
	"github.com/hqta1110/vnrag/internal/config"
	"github.com/hqta1110/vnrag/knowledge"
	"github.com/spf13/cobra"
)

func newKnowledgeStore(ctx context.Context, cfg *config.Config, logger *vnrag.Logger) (*knowledge.Store, error) {
	blobs, err := openStore(ctx, cfg, cfg.Knowledge.URI)
	if err != nil {
		return nil, err
	}
	c, ok := codec.ByName(cfg.Knowledge.Codec)
	if !ok {
		return nil, fmt.Errorf("unknown knowledge codec %q", cfg.Knowledge.Codec)
	}
	return knowledge.NewStore(blobs, func(o *knowledge.Options) {
		o.Name = cfg.Knowledge.Name
		o.Codec = c
		o.Logger = componentLogger(logger, "knowledge")
	}), nil
}

func newRetrievalContext(ctx context.Context, cfg *config.Config, logger *vnrag.Logger) (*vnrag.RetrievalContext, error) {
	store, err := newKnowledgeStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return vnrag.NewRetrievalContext(store, func(o *indexcache.Options) {
		o.Capacity = cfg.Index.CacheCapacity
		o.Logger = componentLogger(logger, "indexcache")
	}), nil
}

func newEmbedder(cfg *config.Config, logger *vnrag.Logger) (*embedding.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return embedding.New(cfg.EmbeddingOptions(), func(o *embedding.Options) {
		o.Logger = componentLogger(logger, "embedding")
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func retrieveCmd() *cobra.Command {
	var (
		k        int
		topics   []string
		metric   string
		asJSON   bool
		toolArgs bool
	)

	cmd := &cobra.Command{
		Use:   "retrieve <query>",
		Short: "Retrieve the passages most similar to a query",
		Example: `  vnrag retrieve "Thủ đô của Pháp là gì?" --topics geography -k 3
  vnrag retrieve --tool '{"query": "Hiến pháp 2013", "fields": ["constitution"]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			m, err := distance.ParseMetric(metric)
			if err != nil {
				return err
			}
			rc, err := newRetrievalContext(ctx, cfg, logger)
			if err != nil {
				return err
			}
			emb, err := newEmbedder(cfg, logger)
			if err != nil {
				return err
			}
			r := vnrag.NewRetriever(rc, emb,
				vnrag.WithLogger(logger.WithComponent("retriever")),
				vnrag.WithDefaultMetric(m),
			)

			out := cmd.OutOrStdout()
			if toolArgs {
				_, err := fmt.Fprintln(out, vnrag.NewTool(r).WithToolK(k).Call(ctx, args[0]))
				return err
			}

			results, err := r.Retrieve(ctx, args[0], vnrag.WithK(k), vnrag.WithTopicNames(topics...))
			if err != nil {
				return err
			}
			if asJSON {
				data, err := gojson.MarshalIndent(results, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, string(data))
				return err
			}
			for i, res := range results {
				fmt.Fprintf(out, "%d. [%.4f] %s\n", i+1, res.Score, oneLine(res.Text))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "k", "k", vnrag.DefaultK, "maximum number of passages")
	cmd.Flags().StringSliceVarP(&topics, "topics", "t", nil, "restrict to passages tagged with any of these topics")
	cmd.Flags().StringVarP(&metric, "metric", "m", "cosine", "distance metric: cosine or euclidean")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().BoolVar(&toolArgs, "tool", false, "treat the argument as agent tool JSON and print the tool response")
	return cmd
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 160 {
		return string(r[:160]) + "..."
	}
	return s
}
