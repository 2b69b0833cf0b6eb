package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/placement-readiness/internal/pipeline"
	"github.com/spigell/placement-readiness/internal/student"
)

// Report is what evaluate exports.
type Report struct {
	RunID    string                `json:"run_id" yaml:"run_id"`
	Summary  pipeline.Summary      `json:"summary" yaml:"summary"`
	Students []*student.Evaluation `json:"students" yaml:"students"`
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate every student in the input and rank them",
	Run: func(cmd *cobra.Command, _ []string) {
		if err := evaluate(cmd); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	addInputFlags(evaluateCmd)
	evaluateCmd.Flags().StringP("output", "o", "", "write the ranked report to this file, - for stdout")
	evaluateCmd.Flags().StringP("format", "f", "yaml", "report format: yaml or json")
}

// addInputFlags registers the flags every command that evaluates a cohort shares.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "students file (.csv, .yaml, .yml or .json)")
	cmd.Flags().IntP("workers", "w", 1, "students evaluated concurrently")
	cmd.Flags().String("store", "memory", "index backend: memory or sqlite")
	cmd.Flags().String("db", app+".db", "sqlite database path")
	_ = cmd.MarkFlagRequired("input")

	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		viper.BindPFlag("pipeline.workers", cmd.Flags().Lookup("workers"))
		viper.BindPFlag("store.backend", cmd.Flags().Lookup("store"))
		viper.BindPFlag("store.path", cmd.Flags().Lookup("db"))
	}
}

func evaluate(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	format := strings.ToLower(cmd.Flag("format").Value.String())
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unsupported format: %s", format)
	}

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

	logRanking(s.logger, evaluated)
	summary := pipeline.Summarize(evaluated)
	logSummary(s.logger, summary)

	output := strings.TrimSpace(cmd.Flag("output").Value.String())
	if output == "" {
		return nil
	}

	report := Report{RunID: s.pipeline.RunID(), Summary: summary, Students: evaluated}
	if output == "-" {
		return writeReport(cmd.OutOrStdout(), format, report)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if err := writeReport(f, format, report); err != nil {
		return err
	}
	s.logger.Info("report written", zap.String("filename", output), zap.String("format", format))
	return nil
}

func writeReport(w io.Writer, format string, report Report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return enc.Close()
	}
}

func logRanking(logger *zap.Logger, evaluated []*student.Evaluation) {
	for i, e := range evaluated {
		logger.Info("ranked student",
			zap.Int("rank", i+1),
			zap.String("student", e.Name),
			zap.Int("overall", e.OverallScore),
			zap.Float64("academic", e.AcademicScore),
			zap.Float64("communication", e.CommunicationScore),
			zap.String("tier", string(e.Tier)),
			zap.Strings("fallbacks", e.Fallbacks),
		)
	}
}

func logSummary(logger *zap.Logger, s pipeline.Summary) {
	logger.Info("cohort summary",
		zap.Int("students", s.Students),
		zap.Float64("average_overall", s.AverageOverall),
		zap.Float64("average_academic", s.AverageAcademic),
		zap.Float64("average_communication", s.AverageCommunication),
		zap.Int("excellent", s.Tiers[student.TierExcellent]),
		zap.Int("good", s.Tiers[student.TierGood]),
		zap.Int("needs_improvement", s.Tiers[student.TierNeedsImprovement]),
		zap.Int("degraded", s.Degraded),
	)
}
