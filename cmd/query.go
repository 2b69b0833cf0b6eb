package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/placement-readiness/internal/filtering"
	"github.com/spigell/placement-readiness/internal/pipeline"
	"github.com/spigell/placement-readiness/internal/student"
)

const (
	PromptAsk     = "Ask a question"
	PromptSearch  = "Search similar students"
	PromptLookup  = "Show one student"
	PromptSummary = "Cohort summary"
	PromptFilters = "Show filters"
	PromptDump    = "Dump evaluations to file"
	PromptExit    = "Exit"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptAsk, PromptSearch, PromptLookup, PromptSummary, PromptFilters, PromptDump, PromptExit},
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Ask questions about an evaluated cohort",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := query(cmd); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)

	addInputFlags(queryCmd)
	queryCmd.Flags().StringP("question", "q", "", "answer this question and exit instead of starting the interactive loop")
	queryCmd.Flags().StringSlice("criteria", nil, "score ranges as field=min:max, e.g. overall=70:, academic=:90")
	queryCmd.Flags().Bool("no-query-filter", false, "answer over the whole cohort instead of the students the question names")
	for _, field := range []string{filtering.FieldOverall, filtering.FieldAcademic, filtering.FieldCommunication} {
		queryCmd.Flags().Float64("min-"+field, 0, "keep students with "+field+" score at or above this value")
		queryCmd.Flags().Float64("max-"+field, 100, "keep students with "+field+" score at or below this value")
	}
}

func query(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := newSession(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	evaluated, err := s.loadAndEvaluate(ctx, cmd.Flag("input").Value.String())
	if err != nil {
		s.logger.Error("evaluating students", zap.Error(err))
		return err
	}

	if question := strings.TrimSpace(cmd.Flag("question").Value.String()); question != "" {
		fmt.Fprintln(cmd.OutOrStdout(), answer(ctx, s, evaluated, question))
		return nil
	}

	for {
		_, action, err := prompt.Run()
		if err == nil {
			err = handleAction(ctx, cmd, s, evaluated, action)
		}
		if err == nil {
			continue
		}
		if leavesLoop(err) {
			return nil
		}
		return err
	}
}

// leavesLoop reports whether err ends the interactive loop without failing.
func leavesLoop(err error) bool {
	return errors.Is(err, errExit) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}

func handleAction(ctx context.Context, cmd *cobra.Command, s *session, evaluated []*student.Evaluation, action string) error {
	out := cmd.OutOrStdout()

	switch action {
	case PromptAsk:
		question, err := ask("Question")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, answer(ctx, s, evaluated, question))
		return nil
	case PromptSearch:
		text, err := ask("Describe the students")
		if err != nil {
			return err
		}
		found, err := s.pipeline.Search(ctx, text, 0)
		if err != nil {
			return err
		}
		logRanking(s.logger, found)
		return nil
	case PromptLookup:
		name, err := ask("Student name")
		if err != nil {
			return err
		}
		e, err := s.pipeline.Lookup(ctx, name)
		if errors.Is(err, pipeline.ErrStudentNotFound) {
			s.logger.Info("no such student", zap.String("student", name))
			return nil
		}
		if err != nil {
			return err
		}
		return yaml.NewEncoder(out).Encode(e)
	case PromptSummary:
		logSummary(s.logger, pipeline.Summarize(evaluated))
		return nil
	case PromptFilters:
		for _, status := range filtering.Describe(s.pipeline.Filters("")) {
			s.logger.Info("filter",
				zap.String("name", status.Name),
				zap.Bool("enabled", status.Enabled),
				zap.String("reason", status.Reason),
				zap.Any("details", status.Details),
			)
		}
		return nil
	case PromptDump:
		filename, err := dumpToTmpFile(evaluated)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		s.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func answer(ctx context.Context, s *session, evaluated []*student.Evaluation, question string) string {
	subset := s.pipeline.FilterByQuery(ctx, question, evaluated)
	s.logger.Info("answering", zap.String("question", question), zap.Strings("students", student.Names(subset)))
	return s.pipeline.AnswerQuery(ctx, subset, question)
}

func ask(label string) (string, error) {
	p := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("must not be empty")
			}
			return nil
		},
	}
	text, err := p.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func dumpToTmpFile(evaluated []*student.Evaluation) (string, error) {
	f, err := os.CreateTemp("", app+"-*.yaml")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := yaml.NewEncoder(f).Encode(evaluated); err != nil {
		return "", err
	}
	return f.Name(), nil
}
