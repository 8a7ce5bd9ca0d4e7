package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/report"
)

type console struct {
	out io.Writer
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) banner(title string, cfg models.SessionConfig) {
	types := make([]string, len(cfg.QuestionTypes))
	for i, t := range cfg.QuestionTypes {
		types[i] = string(t)
	}
	fmt.Fprintf(c.out, "%s %s\n", color.CyanString("Mock interview:"), title)
	fmt.Fprintf(c.out, "  %d questions, %s difficulty, %s\n", cfg.QuestionCount, cfg.Difficulty, strings.Join(types, "/"))
	fmt.Fprintln(c.out, color.HiBlackString("  /skip /pause /resume /end"))
	fmt.Fprintln(c.out)
}

func (c *console) interviewer(persona, text string) {
	label := "Interviewer"
	if persona != "" && persona != models.DefaultPersona {
		label = fmt.Sprintf("Interviewer (%s)", persona)
	}
	fmt.Fprintf(c.out, "%s %s\n", color.CyanString(label+":"), text)
}

func (c *console) evaluation(e models.Evaluation) {
	if e.Skipped {
		fmt.Fprintln(c.out, color.HiBlackString("  skipped"))
		return
	}
	line := fmt.Sprintf("  score %s/10", formatScore(e.Score))
	if e.Feedback != "" {
		line += ": " + e.Feedback
	}
	if e.Fallback {
		line += " (automatic)"
	}
	fmt.Fprintln(c.out, color.HiBlackString(line))
}

func (c *console) phase(snap models.Snapshot) {
	switch snap.Phase {
	case models.PhaseAsking:
		fmt.Fprint(c.out, color.GreenString("> "))
	case models.PhasePaused:
		c.info("Paused. Type /resume to continue.")
	case models.PhaseError:
		c.warn(fmt.Sprintf("Could not prepare questions: %s. Type /retry or /end.", snap.Error))
	}
}

func (c *console) info(msg string) {
	fmt.Fprintln(c.out, color.HiBlackString(msg))
}

func (c *console) warn(msg string) {
	fmt.Fprintln(c.out, color.RedString(msg))
}

func (c *console) report(session models.InterviewSession) {
	r := report.Build(session)

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, color.CyanString("Report"))
	if r.OverallScore != nil {
		fmt.Fprintf(c.out, "  Overall:   %s/10 (%d%%)\n", color.GreenString(formatScore(*r.OverallScore)), *r.Percentage)
	} else {
		fmt.Fprintln(c.out, "  Overall:   not scored")
	}
	fmt.Fprintf(c.out, "  Answered:  %d of %d, %d skipped\n", r.QuestionsAnswered, r.QuestionsTotal, r.QuestionsSkipped)
	if r.FinalDifficulty != "" && r.FinalDifficulty != r.Difficulty {
		fmt.Fprintf(c.out, "  Difficulty: %s -> %s\n", r.Difficulty, r.FinalDifficulty)
	}
	if r.Duration != "" {
		fmt.Fprintf(c.out, "  Duration:  %s\n", r.Duration)
	}
	if r.EndedEarly {
		fmt.Fprintln(c.out, color.YellowString("  Ended early"))
	}

	for i, q := range r.Questions {
		score := color.HiBlackString("-")
		if q.Score != nil {
			score = formatScore(*q.Score)
		}
		fmt.Fprintf(c.out, "\n  %d. %s [%s]\n", i+1, q.Text, score)
		if q.Feedback != "" {
			fmt.Fprintf(c.out, "     %s\n", q.Feedback)
		}
	}

	if len(r.Topics) > 0 {
		fmt.Fprintln(c.out)
		fmt.Fprintln(c.out, color.CyanString("Topics"))
		for _, t := range r.Topics {
			fmt.Fprintf(c.out, "  %-20s %s\n", t.Topic, formatScore(t.Average))
		}
	}
	c.list("Strengths", r.Strengths, color.GreenString)
	c.list("To work on", r.Gaps, color.RedString)
}

func (c *console) list(title string, items []string, paint func(string, ...interface{}) string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, color.CyanString(title))
	for _, item := range items {
		fmt.Fprintf(c.out, "  %s %s\n", paint("*"), item)
	}
}

func formatScore(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}
