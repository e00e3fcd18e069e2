// Package elicit provides the CLI and server fallback implementations of
// the elicit hook family, mirroring pkg/confirmhooks's CLI/server split
// for tool.confirm. Grounded on
// gptme/hooks/elicitation.py (request/response shape) and
// gptme/hooks/server_elicit.py (pending-registry rendezvous).
package elicit

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/fatih/color"
)

// CLIElicitor prompts for structured input over a terminal. Choice and
// multi_choice render as a numbered list; secret input is read through
// ReadSecret when it is set, and as a plain line from In otherwise.
type CLIElicitor struct {
	In  io.Reader
	Out io.Writer

	// ReadSecret, when set, reads a line without echoing it (e.g. backed
	// by golang.org/x/term.ReadPassword). Falls back to a plain prompt
	// when nil.
	ReadSecret func() (string, error)

	rd *bufio.Reader
}

// reader returns the buffered reader wrapping In, creating it once so
// look-ahead bytes read for one line aren't dropped before the next.
func (c *CLIElicitor) reader() *bufio.Reader {
	if c.rd == nil {
		c.rd = bufio.NewReader(c.In)
	}
	return c.rd
}

// Hook implements a hooks-package-compatible elicit function. Returning
// nil, nil falls through to the next registered elicit hook.
func (c *CLIElicitor) Hook(ctx context.Context, req hooks.ElicitationRequest) (*hooks.ElicitationResponse, error) {
	req = req.Resolved()

	prompt := color.New(color.FgYellow, color.Bold).Sprint(req.Prompt)
	fmt.Fprintln(c.Out, prompt)

	switch req.Type {
	case hooks.ElicitChoice:
		return c.choice(ctx, req, false)
	case hooks.ElicitMultiChoice:
		return c.choice(ctx, req, true)
	case hooks.ElicitConfirmation:
		return c.confirmation(ctx)
	case hooks.ElicitForm:
		return c.form(ctx, req)
	case hooks.ElicitSecret:
		return c.secret(ctx)
	default:
		return c.text(ctx)
	}
}

func (c *CLIElicitor) readLine(ctx context.Context) (string, error) {
	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := c.reader().ReadString('\n')
		if err != nil {
			errs <- err
			return
		}
		lines <- line
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errs:
		return "", err
	case line := <-lines:
		return strings.TrimRight(line, "\r\n"), nil
	}
}

func (c *CLIElicitor) text(ctx context.Context) (*hooks.ElicitationResponse, error) {
	fmt.Fprint(c.Out, "> ")
	line, err := c.readLine(ctx)
	if err != nil {
		return &hooks.ElicitationResponse{Action: hooks.ElicitationCancelled}, nil
	}
	return &hooks.ElicitationResponse{Action: hooks.ElicitationAccepted, Value: line}, nil
}

func (c *CLIElicitor) secret(ctx context.Context) (*hooks.ElicitationResponse, error) {
	if c.ReadSecret != nil {
		val, err := c.ReadSecret()
		if err != nil {
			return &hooks.ElicitationResponse{Action: hooks.ElicitationCancelled}, nil
		}
		return &hooks.ElicitationResponse{Action: hooks.ElicitationAccepted, Value: val}, nil
	}
	return c.text(ctx)
}

func (c *CLIElicitor) confirmation(ctx context.Context) (*hooks.ElicitationResponse, error) {
	fmt.Fprint(c.Out, "[y/N] ")
	line, err := c.readLine(ctx)
	if err != nil {
		return &hooks.ElicitationResponse{Action: hooks.ElicitationCancelled}, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "y" || answer == "yes" {
		return &hooks.ElicitationResponse{Action: hooks.ElicitationAccepted, Value: "true"}, nil
	}
	return &hooks.ElicitationResponse{Action: hooks.ElicitationDeclined, Value: "false"}, nil
}

func (c *CLIElicitor) choice(ctx context.Context, req hooks.ElicitationRequest, multi bool) (*hooks.ElicitationResponse, error) {
	for i, opt := range req.Choices {
		fmt.Fprintf(c.Out, "  %d) %s\n", i+1, opt)
	}
	if multi {
		fmt.Fprint(c.Out, "select (comma-separated numbers): ")
	} else {
		fmt.Fprint(c.Out, "select: ")
	}

	line, err := c.readLine(ctx)
	if err != nil {
		return &hooks.ElicitationResponse{Action: hooks.ElicitationCancelled}, nil
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return &hooks.ElicitationResponse{Action: hooks.ElicitationCancelled}, nil
	}

	if !multi {
		idx, err := strconv.Atoi(line)
		if err != nil || idx < 1 || idx > len(req.Choices) {
			return &hooks.ElicitationResponse{Action: hooks.ElicitationCancelled}, nil
		}
		return &hooks.ElicitationResponse{Action: hooks.ElicitationAccepted, Value: req.Choices[idx-1]}, nil
	}

	var selected []string
	for _, tok := range strings.Split(line, ",") {
		idx, err := strconv.Atoi(strings.TrimSpace(tok))
		if err != nil || idx < 1 || idx > len(req.Choices) {
			continue
		}
		selected = append(selected, req.Choices[idx-1])
	}
	if len(selected) == 0 {
		return &hooks.ElicitationResponse{Action: hooks.ElicitationCancelled}, nil
	}
	return &hooks.ElicitationResponse{Action: hooks.ElicitationAccepted, Values: selected}, nil
}

func (c *CLIElicitor) form(ctx context.Context, req hooks.ElicitationRequest) (*hooks.ElicitationResponse, error) {
	values := make([]string, 0, len(req.Fields))
	for _, field := range req.Fields {
		label := field.Label
		if field.Default != "" {
			label += fmt.Sprintf(" [%s]", field.Default)
		}
		fmt.Fprintf(c.Out, "%s: ", label)

		line, err := c.readLine(ctx)
		if err != nil {
			return &hooks.ElicitationResponse{Action: hooks.ElicitationCancelled}, nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			if field.Required && field.Default == "" {
				return &hooks.ElicitationResponse{Action: hooks.ElicitationCancelled}, nil
			}
			line = field.Default
		}
		values = append(values, fmt.Sprintf("%s=%s", field.Name, line))
	}
	return &hooks.ElicitationResponse{Action: hooks.ElicitationAccepted, Values: values}, nil
}

// Register installs Hook on r at priority 0.
func (c *CLIElicitor) Register(r *hooks.Registry) {
	r.RegisterElicit("cli_elicit", c.Hook, 0)
}
