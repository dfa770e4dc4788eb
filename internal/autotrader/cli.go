package autotrader

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const defaultAdvisorTimeout = 2 * time.Minute

// CLIAdvisor shells out to an external command (an LLM CLI, a strategy
// script) with the prompt as its final argument and parses a JSON Decision
// from stdout. The command may wrap the JSON in prose; the first '{' through
// the last '}' is taken as the payload.
type CLIAdvisor struct {
	command []string
	timeout time.Duration
}

// NewCLIAdvisor creates an advisor that runs command. The prompt is appended
// as the last argument on every call.
func NewCLIAdvisor(command []string, timeout time.Duration) (*CLIAdvisor, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("advisor command is empty")
	}
	if timeout <= 0 {
		timeout = defaultAdvisorTimeout
	}
	return &CLIAdvisor{command: command, timeout: timeout}, nil
}

// Advise runs the command and parses its decision.
func (a *CLIAdvisor) Advise(ctx context.Context, prompt string) (*Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	args := append(append([]string(nil), a.command[1:]...), prompt)
	cmd := exec.CommandContext(ctx, a.command[0], args...)

	out, err := cmd.Output()
	if err != nil {
		var stderr string
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(ee.Stderr))
		}
		return nil, fmt.Errorf("advisor command failed: %w (%s)", err, stderr)
	}

	return ParseDecision(string(out))
}

// ParseDecision extracts and unmarshals the JSON decision embedded in raw.
func ParseDecision(raw string) (*Decision, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON object in advisor output")
	}

	var d Decision
	if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
		return nil, fmt.Errorf("parse advisor decision: %w", err)
	}
	return &d, nil
}
