package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Prepare interview questions and print them without running the interview",
	Run: func(cmd *cobra.Command, _ []string) {
		plan(cmd)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	addInputFlags(planCmd)
}

type planOutput struct {
	RoleTitle   string   `yaml:"role_title"`
	FocusTopics []string `yaml:"focus_topics"`
	Context     string   `yaml:"retrieved_context"`
	Questions   []string `yaml:"questions"`
}

func plan(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	resume, jd, err := readInputs(cmd)
	if err != nil {
		logger.Fatal("reading inputs", zap.Error(err))
	}

	deps, cleanup, err := buildDeps(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing collaborators", zap.Error(err))
	}
	defer cleanup()

	p, err := interview.NewPlanner(config.Interview, deps.Generator, deps.Retriever, logger).Plan(ctx, resume, jd)
	if err != nil {
		logger.Fatal("planning the interview", zap.Error(err))
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	if err := enc.Encode(planOutput{
		RoleTitle:   p.RoleTitle,
		FocusTopics: p.FocusTopics,
		Context:     p.RetrievedContext,
		Questions:   p.Questions,
	}); err != nil {
		logger.Fatal("printing the plan", zap.Error(fmt.Errorf("encode plan: %w", err)))
	}
}
