package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/volatiletech/null/v8"

	"github.com/fausterrex/gradegoal/internal/domain/completion"
	"github.com/fausterrex/gradegoal/internal/domain/model"
	"github.com/fausterrex/gradegoal/internal/domain/probability"
	"github.com/fausterrex/gradegoal/internal/domain/progression"
	"github.com/fausterrex/gradegoal/internal/domain/types"
)

var errNoInput = errors.New("no input")

func newCalcCmd() *cobra.Command {
	calc := &cobra.Command{
		Use:   "calc",
		Short: "Run the analytics engine offline and print JSON",
	}
	calc.AddCommand(newCalcGPACmd())
	calc.AddCommand(newCalcProbabilityCmd())
	calc.AddCommand(newCalcSeriesCmd())
	calc.AddCommand(newCalcCompletionCmd())
	return calc
}

func newCalcGPACmd() *cobra.Command {
	var percent float64
	cmd := &cobra.Command{
		Use:   "gpa",
		Short: "Convert a percentage to the 4.0 scale",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), types.NewGPA(percent))
		},
	}
	cmd.Flags().Float64Var(&percent, "percent", 0, "percentage score (0-100)")
	_ = cmd.MarkFlagRequired("percent")
	return cmd
}

func newCalcProbabilityCmd() *cobra.Command {
	var (
		current, target, completionPct float64
		goalType, targetDate           string
	)
	cmd := &cobra.Command{
		Use:   "probability",
		Short: "Estimate the chance of reaching a target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := probability.Input{Current: current, Target: target, GoalType: model.GoalType(goalType)}
			if gt, err := model.ParseGoalType(goalType); err == nil {
				in.GoalType = gt
			}
			if targetDate != "" {
				t, ok := model.ParseTimestamp(targetDate, time.UTC)
				if !ok {
					return fmt.Errorf("invalid --target-date %q", targetDate)
				}
				in.TargetDate = null.TimeFrom(t)
			}
			if cmd.Flags().Changed("completion") {
				in.CourseCompletion = null.Float64From(completionPct)
			}
			return printJSON(cmd.OutOrStdout(), types.Probability{Probability: probability.Achievement(in, time.Now())})
		},
	}
	cmd.Flags().Float64Var(&current, "current", 0, "current value (GPA scale)")
	cmd.Flags().Float64Var(&target, "target", 0, "target value (GPA scale)")
	cmd.Flags().StringVar(&goalType, "type", string(model.GoalCourseGrade), "goal type: COURSE_GRADE, SEMESTER_GPA or CUMMULATIVE_GPA")
	cmd.Flags().StringVar(&targetDate, "target-date", "", "target date (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().Float64Var(&completionPct, "completion", 0, "course completion percentage")
	_ = cmd.MarkFlagRequired("current")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newCalcSeriesCmd() *cobra.Command {
	var (
		input, timezone string
		current         float64
	)
	cmd := &cobra.Command{
		Use:   "series",
		Short: "Bucket grade snapshots into weekly points",
		Long:  "Reads a JSON array of grade snapshots (current_grade, percentage_score, due_date, created_at, calculated_at).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("invalid --timezone: %w", err)
			}
			var samples []model.ScoreSample
			if err := readJSON(cmd, input, &samples); err != nil {
				return err
			}
			agg := progression.NewAggregator(progression.WithLocation(loc))
			if !cmd.Flags().Changed("current") {
				current, _ = agg.Latest(samples)
			}
			state, _ := agg.Tick(progression.State{}, samples, current)
			return printJSON(cmd.OutOrStdout(), types.Progression{
				Fingerprint: state.Hex(),
				Current:     current,
				Weeks:       state.Series,
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", "JSON file to read, - for stdin")
	cmd.Flags().Float64Var(&current, "current", 0, "live course grade for the last week (default: latest sample)")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "IANA zone for week boundaries")
	return cmd
}

func newCalcCompletionCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "completion",
		Short: "Compute the graded share of a course",
		Long:  "Reads a JSON array of categories, each with an assessments array of {id, score}.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var categories []model.Category
			if err := readJSON(cmd, input, &categories); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), types.Completion{
				Percent:    completion.Course(categories),
				Categories: completion.ByCategory(categories),
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "-", "JSON file to read, - for stdin")
	return cmd
}

func readJSON(cmd *cobra.Command, path string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", errNoInput)
		}
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
