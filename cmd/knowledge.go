package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/knowledge"
	"github.com/spigell/interviewer/internal/logger"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the knowledge base used to ground interview questions",
}

var knowledgeImportCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import snippets from YAML files (a list of {source, content})",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withKnowledge(func(ctx context.Context, store *knowledge.Store, logger *zap.Logger) error {
			for _, name := range args {
				if err := importFile(ctx, store, name, logger); err != nil {
					return err
				}
			}
			total, err := store.Count(ctx)
			if err != nil {
				return err
			}
			logger.Info("knowledge base updated", zap.Int("documents", total))
			return nil
		})
	},
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Show the snippets retrieval would return for a query",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		withKnowledge(func(ctx context.Context, store *knowledge.Store, _ *zap.Logger) error {
			topK, _ := cmd.Flags().GetInt("top-k")
			threshold, _ := cmd.Flags().GetFloat64("threshold")

			docs, err := store.Retrieve(ctx, strings.Join(args, " "), topK, threshold)
			if err != nil {
				return err
			}
			for _, doc := range docs {
				fmt.Printf("#%d %s (%.2f)\n%s\n\n", doc.ID, doc.Source, doc.Score, doc.Content)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(knowledgeCmd)
	knowledgeCmd.AddCommand(knowledgeImportCmd, knowledgeSearchCmd)

	knowledgeSearchCmd.Flags().Int("top-k", knowledge.DefaultTopK, "maximum number of snippets")
	knowledgeSearchCmd.Flags().Float64("threshold", knowledge.DefaultThreshold, "minimum query coverage")
}

func withKnowledge(fn func(context.Context, *knowledge.Store, *zap.Logger) error) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config.Knowledge.Path == "" {
		logger.Fatal("knowledge base is not configured", zap.String("hint", "set knowledge.path in the configuration file"))
	}

	store, err := openKnowledge(ctx, config, logger)
	if err != nil {
		logger.Fatal("opening the knowledge base", zap.Error(err))
	}
	defer store.Close()

	if err := fn(ctx, store, logger); err != nil {
		logger.Fatal("knowledge base command failed", zap.Error(err))
	}
}

func importFile(ctx context.Context, store *knowledge.Store, name string, logger *zap.Logger) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	n, err := store.Import(ctx, f)
	if err != nil {
		return fmt.Errorf("import %s: %w", name, err)
	}
	logger.Info("imported snippets", zap.String("filename", name), zap.Int("count", n))
	return nil
}
