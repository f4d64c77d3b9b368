package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/interview"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/report"
	"github.com/spigell/interviewer/internal/sessionstore"
)

const (
	PromptRetry = "Retry"
	PromptQuit  = "Quit without a report"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive mock interview",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addInputFlags(runCmd)
	runCmd.Flags().StringP("report", "o", "", "report file, .yaml or .json (default is <report-dir>/interview-<id>.yaml)")
}

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("resume", "r", "", "path to the candidate resume as plain text")
	cmd.Flags().String("job-description", "", "path to the job description as plain text")
	cmd.MarkFlagRequired("resume")
	cmd.MarkFlagRequired("job-description")
}

func readInputs(cmd *cobra.Command) (string, string, error) {
	resume, err := os.ReadFile(cmd.Flag("resume").Value.String())
	if err != nil {
		return "", "", fmt.Errorf("read resume: %w", err)
	}
	jd, err := os.ReadFile(cmd.Flag("job-description").Value.String())
	if err != nil {
		return "", "", fmt.Errorf("read job description: %w", err)
	}
	return string(resume), string(jd), nil
}

// run is the main command for the cli.
func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the interviewer", zap.String("version", version))

	resume, jd, err := readInputs(cmd)
	if err != nil {
		logger.Fatal("reading inputs", zap.Error(err))
	}

	deps, cleanup, err := buildDeps(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing collaborators", zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY_FILE environment variable or the 'gemini.api-key-file' key in the configuration file"),
		)
	}
	defer cleanup()

	r := &runner{
		engine:   interview.NewEngine(config.Interview, deps),
		sessions: sessionstore.NewMemory[*interview.Session](),
		logger:   logger,
	}

	s, err := r.engine.Start(ctx, resume, jd)
	if err != nil {
		logger.Fatal("starting the interview", zap.Error(err))
	}
	r.id = s.ID()
	r.sessions.Put(r.id, s)
	defer r.sessions.Remove(r.id)

	if err := r.interview(ctx); err != nil {
		if errors.Is(err, errExit) {
			logger.Info("exiting", zap.String("reason", "interview abandoned"))
			return
		}
		logger.Fatal("interview failed", zap.Error(err))
	}

	path := cmd.Flag("report").Value.String()
	if path == "" {
		path = filepath.Join(config.ReportDir, fmt.Sprintf("interview-%s.yaml", r.id))
	}
	if err := r.report(ctx, path); err != nil {
		logger.Fatal("writing the report", zap.Error(err))
	}
}

type runner struct {
	engine   *interview.Engine
	sessions *sessionstore.Memory[*interview.Session]
	id       string
	logger   *zap.Logger
}

func (r *runner) interview(ctx context.Context) error {
	var u interview.Utterance
	err := r.sessions.Do(r.id, func(s *interview.Session) error {
		var err error
		u, err = r.engine.Greeting(ctx, s)
		return err
	})
	if err != nil {
		return err
	}
	r.say(u)

	for {
		path, err := askAudioPath()
		if err != nil {
			return err
		}
		if path == "" {
			if err := r.confirmRetry("No recording given"); err != nil {
				return err
			}
			continue
		}

		err = r.sessions.Do(r.id, func(s *interview.Session) error {
			res, err := r.engine.Ingest(ctx, s, path)
			if err == nil {
				fmt.Printf("\n[You]: %s\n", res.Turn.Response)
			}
			return err
		})
		if err != nil {
			return err
		}

		u, err = r.nextTurn(ctx)
		if err != nil {
			return err
		}
		r.say(u)
		if u.Finished {
			return nil
		}
	}
}

// nextTurn keeps asking for the interviewer's turn while generation fails
// and the user wants to retry.
func (r *runner) nextTurn(ctx context.Context) (interview.Utterance, error) {
	for {
		var u interview.Utterance
		err := r.sessions.Do(r.id, func(s *interview.Session) error {
			var err error
			u, err = r.engine.NextTurn(ctx, s)
			return err
		})
		if err != nil || !u.Transient {
			return u, err
		}

		r.say(u)
		if err := r.confirmRetry("The interviewer could not respond"); err != nil {
			return u, err
		}
	}
}

// confirmRetry returns errExit when the user chooses to quit.
func (r *runner) confirmRetry(label string) error {
	choice := promptui.Select{
		Label: label,
		Items: []string{PromptRetry, PromptQuit},
	}
	_, action, err := choice.Run()
	if err != nil {
		return err
	}
	if action == PromptQuit {
		return errExit
	}
	return nil
}

func (r *runner) say(u interview.Utterance) {
	fmt.Printf("\n[%s]: %s\n\n", r.engine.Config().InterviewerName, u.Text)
}

func (r *runner) report(ctx context.Context, path string) error {
	return r.sessions.Do(r.id, func(s *interview.Session) error {
		if s.State() != interview.StateFinished && s.State() != interview.StateEvaluating {
			r.logger.Warn("interview ended early, skipping evaluation",
				zap.String("state", s.State().String()),
				zap.Int("answers", len(s.QnaRecords())),
			)
			return nil
		}

		summary, err := r.engine.Evaluate(ctx, s)
		if err != nil {
			return fmt.Errorf("evaluate: %w", err)
		}
		r.logger.Info("evaluation finished",
			zap.Int("evaluated", summary.Evaluated),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
		)

		rep, err := report.Build(s, reportIdentities(r.engine.Config()), time.Now())
		if err != nil {
			return err
		}
		if err := report.Write(path, rep); err != nil {
			return err
		}

		r.logger.Info("report written", zap.String("filename", path))
		return nil
	})
}

// reportIdentities takes names from the engine's resolved config so blank
// settings fall back to the same defaults the interview used.
func reportIdentities(cfg interview.Config) report.Identities {
	return report.Identities{
		CandidateName:   cfg.CandidateName,
		InterviewerName: cfg.InterviewerName,
		CompanyName:     cfg.CompanyName,
	}
}

func askAudioPath() (string, error) {
	p := promptui.Prompt{
		Label: "Path to your recorded answer",
		Validate: func(input string) error {
			input = strings.TrimSpace(input)
			if input == "" {
				return nil
			}
			info, err := os.Stat(input)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", input)
			}
			return nil
		},
	}

	path, err := p.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}
