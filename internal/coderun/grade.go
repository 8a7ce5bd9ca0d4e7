package coderun

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"peerprep/interview/internal/models"
	"peerprep/interview/internal/utils"
)

const maxOutputChars = 200

type CaseResult struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
	// Error is set for crashes, compile failures and timeouts.
	Error string `json:"error,omitempty"`
}

// Summary is the outcome of running a solution against a question's test cases.
type Summary struct {
	Language string       `json:"language"`
	Code     string       `json:"code"`
	Passed   int          `json:"passed"`
	Total    int          `json:"total"`
	Cases    []CaseResult `json:"cases"`
}

// Grade runs code once per test case. Without test cases the program runs
// once with empty input and its output is reported ungraded.
func Grade(ctx context.Context, runner Runner, language, code string, testCases []models.TestCase) (Summary, error) {
	summary := Summary{Language: language, Code: code, Total: len(testCases)}
	if len(testCases) == 0 {
		out, err := runner.Run(ctx, Program{Language: language, Code: code})
		if err != nil {
			return summary, err
		}
		summary.Cases = append(summary.Cases, CaseResult{Actual: strings.TrimSpace(out.Stdout), Error: failure(out)})
		return summary, nil
	}

	for _, tc := range testCases {
		out, err := runner.Run(ctx, Program{Language: language, Code: code, Stdin: tc.Input})
		if err != nil {
			if errors.Is(err, ErrSandboxUnavailable) || errors.Is(err, ErrUnsupportedLanguage) || ctx.Err() != nil {
				return summary, err
			}
			summary.Cases = append(summary.Cases, CaseResult{Input: tc.Input, Expected: tc.ExpectedOutput, Error: err.Error()})
			continue
		}
		result := CaseResult{
			Input:    tc.Input,
			Expected: tc.ExpectedOutput,
			Actual:   strings.TrimSpace(out.Stdout),
			Error:    failure(out),
		}
		result.Passed = result.Error == "" && sameOutput(result.Actual, tc.ExpectedOutput)
		if result.Passed {
			summary.Passed++
		}
		summary.Cases = append(summary.Cases, result)
	}
	return summary, nil
}

func failure(out Output) string {
	switch {
	case out.TimedOut:
		return "timed out"
	case out.ExitCode != 0:
		msg := fmt.Sprintf("exit code %d", out.ExitCode)
		if stderr := strings.TrimSpace(out.Stderr); stderr != "" {
			msg += ": " + utils.Truncate(stderr, maxOutputChars)
		}
		return msg
	}
	return ""
}

// sameOutput compares line by line ignoring trailing whitespace.
func sameOutput(actual, expected string) bool {
	a := strings.Split(strings.TrimSpace(actual), "\n")
	e := strings.Split(strings.TrimSpace(expected), "\n")
	if len(a) != len(e) {
		return false
	}
	for i := range a {
		if strings.TrimRight(a[i], " \t\r") != strings.TrimRight(e[i], " \t\r") {
			return false
		}
	}
	return true
}

// AnswerText renders the summary as the answer the evaluator grades.
func (s Summary) AnswerText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Submitted %s solution:\n```%s\n%s\n```\n", s.Language, s.Language, strings.TrimSpace(s.Code))
	if s.Total == 0 {
		b.WriteString("No test cases were provided.")
		if len(s.Cases) == 1 {
			c := s.Cases[0]
			if c.Error != "" {
				fmt.Fprintf(&b, " The program failed: %s.", c.Error)
			} else {
				fmt.Fprintf(&b, " Program output: %q.", utils.Truncate(c.Actual, maxOutputChars))
			}
		}
		return b.String()
	}
	fmt.Fprintf(&b, "Test results: %d/%d passed.", s.Passed, s.Total)
	for i, c := range s.Cases {
		switch {
		case c.Passed:
			fmt.Fprintf(&b, "\nCase %d: passed", i+1)
		case c.Error != "":
			fmt.Fprintf(&b, "\nCase %d: failed (%s)", i+1, c.Error)
		default:
			fmt.Fprintf(&b, "\nCase %d: failed (expected %q, got %q)", i+1,
				utils.Truncate(c.Expected, maxOutputChars), utils.Truncate(c.Actual, maxOutputChars))
		}
	}
	return b.String()
}
