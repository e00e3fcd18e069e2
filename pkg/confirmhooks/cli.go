package confirmhooks

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/docker/cagentcore/pkg/chat"
	"github.com/docker/cagentcore/pkg/hooks"
	"github.com/fatih/color"
)

// CLIConfirmer renders tool-execution previews and collects the user's
// y/n/c/e/auto[N] response over a terminal.
type CLIConfirmer struct {
	In  io.Reader
	Out io.Writer

	// Copy is called when the user presses "c"; returning false means the
	// clipboard copy failed (no clipboard library is wired, matching the
	// ambient-CLI-chrome scope decision — see DESIGN.md).
	Copy func(content string) bool

	// Edit opens content in the user's editor and returns the edited
	// text, or content unchanged if the user made no edit.
	Edit func(content, ext string) (string, error)

	rd *bufio.Reader
}

// reader returns the buffered reader wrapping In, created once so
// look-ahead bytes read for one prompt aren't dropped before the next —
// a single tool.confirm hook typically fields many prompts over the
// conversation's lifetime.
func (c *CLIConfirmer) reader() *bufio.Reader {
	if c.rd == nil {
		c.rd = bufio.NewReader(c.In)
	}
	return c.rd
}

// readLine reads one line, cancellable via ctx.
func (c *CLIConfirmer) readLine(ctx context.Context) (string, error) {
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
		return line, nil
	}
}

var reAuto = regexp.MustCompile(`^a(?:uto)?(?:\s+(\d+))?$`)

// Hook implements hooks.ToolConfirmFunc.
func (c *CLIConfirmer) Hook(ctx hooks.Context, tu chat.ToolUse, preview string, defaultConfirm bool) (*hooks.ConfirmationResult, error) {
	content := preview
	if content == "" {
		content = tu.Content
	}
	editable := content != ""
	copiable := content != "" && c.Copy != nil

	if content != "" {
		c.printPreview(content, langForTool(tu.Tool))
	}

	if shouldAuto, msg := CheckAutoConfirm(); shouldAuto {
		if msg != "" {
			fmt.Fprintln(c.Out, msg)
		}
		return hooks.Accept(), nil
	}

	c.ringBell()

	choices := "[Y/n"
	if copiable {
		choices += "/c"
	}
	if editable {
		choices += "/e"
	}
	choices += "/a/?]"

	fmt.Fprintf(c.Out, "Execute %s? %s ", tu.Tool, choices)
	line, err := c.readLine(ctx)
	if err != nil {
		return hooks.Skip(fmt.Sprintf("failed to read confirmation: %v", err)), nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))

	return c.handleResponse(answer, content, editable, copiable, tu), nil
}

func (c *CLIConfirmer) handleResponse(answer, content string, editable, copiable bool, tu chat.ToolUse) *hooks.ConfirmationResult {
	if copiable && answer == "c" {
		if c.Copy(content) {
			fmt.Fprintln(c.Out, "Copied to clipboard.")
		}
		return hooks.Skip("Copied to clipboard, execution skipped")
	}

	if editable && answer == "e" && content != "" && c.Edit != nil {
		edited, err := c.Edit(content, extForTool(tu))
		if err != nil {
			return hooks.Skip(fmt.Sprintf("edit failed: %v", err))
		}
		if edited != content {
			fmt.Fprintln(c.Out, "Content updated.")
			return hooks.Edit(edited)
		}
		return hooks.Skip("No changes made, execution skipped")
	}

	if m := reAuto.FindStringSubmatch(answer); m != nil {
		if m[1] != "" {
			n, _ := strconv.Atoi(m[1])
			SetAutoConfirm(&n)
		} else {
			SetAutoConfirm(nil)
		}
		return hooks.Accept()
	}

	if answer == "help" || answer == "h" || answer == "?" {
		c.printHelp(copiable, editable)
		return hooks.Skip("Help shown, please re-run")
	}

	switch answer {
	case "y", "yes", "":
		return hooks.Accept()
	case "n", "no":
		return hooks.Skip("Declined by user")
	default:
		return hooks.Skip("Unknown response: " + answer)
	}
}

func (c *CLIConfirmer) printPreview(content, lang string) {
	header := color.New(color.FgCyan, color.Bold).Sprintf("--- preview (%s) ---", lang)
	fmt.Fprintln(c.Out, header)
	fmt.Fprintln(c.Out, content)
	fmt.Fprintln(c.Out, color.New(color.FgCyan).Sprint("---"))
}

func (c *CLIConfirmer) printHelp(copiable, editable bool) {
	fmt.Fprintln(c.Out, "y/yes/<enter>: execute")
	fmt.Fprintln(c.Out, "n/no: skip")
	if copiable {
		fmt.Fprintln(c.Out, "c: copy to clipboard, skip execution")
	}
	if editable {
		fmt.Fprintln(c.Out, "e: edit content before executing")
	}
	fmt.Fprintln(c.Out, "a / auto [N]: auto-confirm all (or next N) tool executions")
}

func (c *CLIConfirmer) ringBell() {
	fmt.Fprint(c.Out, "\a")
}

func langForTool(tool string) string {
	switch tool {
	case "python", "ipython":
		return "python"
	case "shell":
		return "bash"
	case "patch":
		return "diff"
	case "save", "append":
		return "text"
	default:
		return "text"
	}
}

func extForTool(tu chat.ToolUse) string {
	switch tu.Tool {
	case "save", "append", "patch":
		if len(tu.Args) > 0 {
			if idx := strings.LastIndex(tu.Args[0], "."); idx != -1 {
				return tu.Args[0][idx+1:]
			}
		}
		return ""
	case "python", "ipython":
		return "py"
	case "shell":
		return "sh"
	default:
		return ""
	}
}

// Register installs hook at priority 0 on r.
func (c *CLIConfirmer) Register(r *hooks.Registry) {
	r.RegisterToolConfirm("cli_confirm", c.Hook, 0)
}
