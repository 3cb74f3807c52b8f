package main

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Analyzer categorizes one issue via an external natural-language analysis
// tool. Implementations bound the call with a timeout and report every
// failure mode through the Outcome variant; they never error past the driver.
type Analyzer interface {
	Analyze(ctx context.Context, issue Issue) Outcome
}

type OutcomeKind int

const (
	// OutcomeParsed carries a verdict extracted from the tool output.
	OutcomeParsed OutcomeKind = iota
	// OutcomeMalformed means the tool replied but no verdict could be
	// recovered from the text.
	OutcomeMalformed
	// OutcomeTimeout means the bounded call expired.
	OutcomeTimeout
	// OutcomeToolError covers non-zero exits and transport failures.
	OutcomeToolError
)

// Outcome is the tagged result of one analysis call.
type Outcome struct {
	Kind    OutcomeKind
	Verdict Verdict // set when Kind == OutcomeParsed
	Raw     string  // set when Kind == OutcomeMalformed
	Err     string  // set when Kind == OutcomeToolError
}

// Verdict is the structured fragment the tool is instructed to emit.
type Verdict struct {
	IsUserError *bool  `json:"is_user_error"`
	Confidence  string `json:"confidence"`
	Reasoning   string `json:"reasoning"`
}

const promptBodyLimit = 4000

// buildPrompt renders the categorization prompt for one issue, including the
// explicit output-format instructions the parser depends on.
func buildPrompt(issue Issue) string {
	body := issue.Body
	if body == "" {
		body = "(empty)"
	}
	if len(body) > promptBodyLimit {
		body = body[:promptBodyLimit]
	}

	comments := "(no comments)"
	if len(issue.Comments) > 0 {
		comments = strings.Join(issue.Comments, "\n\n---\n\n")
		if len(comments) > promptBodyLimit {
			comments = comments[:promptBodyLimit]
		}
	}

	labels := "none"
	if len(issue.Labels) > 0 {
		labels = strings.Join(issue.Labels, ", ")
	}

	return fmt.Sprintf(`Analyze this GitHub issue and determine if it's a "user error".

A USER ERROR is an issue where:
- No code change in the project is needed to resolve it
- The user needs to change their own code or usage of the project's APIs
- Examples: misunderstanding API behavior, incorrect usage, environment/setup issues on the user's side, questions about how to use the project

NOT a user error:
- Bugs in the project that require code fixes
- Missing features that should be added
- Documentation bugs in the project
- Performance issues caused by the project's internals

ISSUE #%d: %s
State: %s
Labels: %s

ISSUE BODY:
%s

COMMENTS:
%s

Respond with a JSON object ONLY, no other text:
{"is_user_error": true/false, "confidence": "high"/"medium"/"low", "reasoning": "Brief explanation"}`,
		issue.Number, issue.Title, issue.State, labels, body, comments)
}

var embeddedVerdictRe = regexp.MustCompile(`\{[^{}]*"is_user_error"[^{}]*\}`)

// parseVerdict recovers a Verdict from raw tool output. It strips markdown
// code fences, tries a direct decode, then scans for an embedded JSON
// fragment before giving up.
func parseVerdict(raw string) (Verdict, bool) {
	text := stripCodeFences(raw)

	var v Verdict
	if err := json.Unmarshal([]byte(text), &v); err == nil {
		return v, true
	}

	if match := embeddedVerdictRe.FindString(text); match != "" {
		if err := json.Unmarshal([]byte(match), &v); err == nil {
			return v, true
		}
	}
	return Verdict{}, false
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		rest := s[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return s
}

// finishAnalysis converts a raw tool reply into an Outcome, applying the
// defensive parse fallbacks.
func finishAnalysis(raw string) Outcome {
	if v, ok := parseVerdict(raw); ok {
		return Outcome{Kind: OutcomeParsed, Verdict: v}
	}
	return Outcome{Kind: OutcomeMalformed, Raw: raw}
}

// outcomeToResult builds the issue's Result from an analysis outcome. Every
// non-parsed kind degrades to an indeterminate result carrying a diagnostic,
// so a single failed item never aborts the batch.
func outcomeToResult(issue Issue, o Outcome) Result {
	result := Result{
		IssueNumber: issue.Number,
		Title:       issue.Title,
		URL:         issue.URL,
		State:       issue.State,
		Labels:      issue.Labels,
	}

	switch o.Kind {
	case OutcomeParsed:
		result.IsUserError = o.Verdict.IsUserError
		result.Confidence = o.Verdict.Confidence
		result.Reasoning = o.Verdict.Reasoning
	case OutcomeMalformed:
		result.Confidence = "low"
		result.Reasoning = "Failed to parse response: " + truncate(o.Raw, 200)
	case OutcomeTimeout:
		result.Confidence = "low"
		result.Reasoning = "Analyzer timeout"
	case OutcomeToolError:
		result.Confidence = "low"
		result.Reasoning = "Analyzer error: " + truncate(o.Err, 200)
	}
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
