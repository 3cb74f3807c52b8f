package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// CLIAnalyzer drives the claude command-line tool in print mode. Each call
// runs one subprocess under a deadline; an expired deadline kills the
// process and surfaces as a timeout outcome.
type CLIAnalyzer struct {
	Bin     string
	Model   string
	Timeout time.Duration
}

func NewCLIAnalyzer(cfg Config) *CLIAnalyzer {
	model := cfg.AnalyzerModel
	if model == "" {
		model = "sonnet"
	}
	return &CLIAnalyzer{
		Bin:     cfg.ClaudeBin,
		Model:   model,
		Timeout: time.Duration(cfg.AnalyzeTimeout) * time.Second,
	}
}

func (a *CLIAnalyzer) Analyze(ctx context.Context, issue Issue) Outcome {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, a.Bin, "--print", "--model", a.Model, buildPrompt(issue))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		log.Printf("analyze timeout issue=#%d after=%s", issue.Number, a.Timeout)
		return Outcome{Kind: OutcomeTimeout}
	}
	if err != nil {
		msg := stderr.String()
		if msg == "" {
			msg = err.Error()
		}
		log.Printf("analyze tool error issue=#%d err=%v", issue.Number, err)
		return Outcome{Kind: OutcomeToolError, Err: msg}
	}

	return finishAnalysis(stdout.String())
}

// CLIDeepAnalyzer runs the claude CLI with the issue-debugging skill against
// a local source checkout. The skill writes result.json (and optional
// artifacts) into the issue directory; success is defined by that file
// existing afterwards.
type CLIDeepAnalyzer struct {
	Bin       string
	SourceDir string
	Timeout   time.Duration
}

func NewCLIDeepAnalyzer(cfg Config, timeout time.Duration) *CLIDeepAnalyzer {
	return &CLIDeepAnalyzer{Bin: cfg.ClaudeBin, SourceDir: cfg.SourceDir, Timeout: timeout}
}

// Debug analyzes one issue in place. A timeout is reported as an error so
// the driver can record a failed result and move on; the run itself
// continues.
func (a *CLIDeepAnalyzer) Debug(ctx context.Context, ctxPath, issueDir string) error {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	args := []string{"-p", fmt.Sprintf("/debug-export-issue %s %s/", ctxPath, issueDir)}
	if a.SourceDir != "" {
		args = append(args, "--add-dir", a.SourceDir)
	}
	cmd := exec.CommandContext(ctx, a.Bin, args...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	log.Printf("deep analyze start dir=%s", filepath.Base(issueDir))
	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return errors.New("analyzer timeout")
	}
	if err != nil {
		// The skill may still have produced a usable result; the result
		// file check below decides.
		log.Printf("deep analyze exit dir=%s err=%v", filepath.Base(issueDir), err)
	}

	if _, statErr := os.Stat(filepath.Join(issueDir, triageResultFile)); statErr != nil {
		return errors.New("no result produced")
	}
	return nil
}
