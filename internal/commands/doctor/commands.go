package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/hay-kot/labstack/internal/core/config"
)

// CommandsCheck verifies the programs named by hook commands are on PATH.
type CommandsCheck struct {
	hooks    map[string][]string
	lookPath func(string) (string, error)
}

// NewCommandsCheck creates a check over the configured hook commands.
func NewCommandsCheck(cmds config.Commands) *CommandsCheck {
	return &CommandsCheck{
		hooks: map[string][]string{
			"on_ready": cmds.OnReady,
			"on_copy":  cmds.OnCopy,
		},
		lookPath: exec.LookPath,
	}
}

func (c *CommandsCheck) Name() string {
	return "Hook Commands"
}

func (c *CommandsCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	for _, hook := range []string{"on_ready", "on_copy"} {
		for i, cmd := range c.hooks[hook] {
			label := fmt.Sprintf("commands.%s[%d]", hook, i)
			for _, prog := range programs(cmd) {
				if _, err := c.lookPath(prog); err != nil {
					result.Items = append(result.Items, CheckItem{
						Label:  label,
						Status: StatusWarn,
						Detail: prog + " not found on PATH",
					})
					continue
				}
				result.Items = append(result.Items, CheckItem{
					Label:  label,
					Status: StatusPass,
					Detail: prog,
				})
			}
		}
	}

	if len(result.Items) == 0 {
		result.Items = append(result.Items, CheckItem{
			Label:  "No hooks",
			Status: StatusPass,
			Detail: "no hook commands configured",
		})
	}
	return result
}

var actionPattern = regexp.MustCompile(`\{\{.*?\}\}`)

// programs returns the program of each pipeline stage in a command
// template, skipping leading variable assignments. Stages that start with a
// template action are skipped.
func programs(cmd string) []string {
	cmd = actionPattern.ReplaceAllString(cmd, "{{}}")

	var out []string
	for _, stage := range strings.FieldsFunc(cmd, func(r rune) bool { return r == '|' || r == ';' || r == '&' }) {
		fields := strings.Fields(stage)
		for len(fields) > 0 && strings.Contains(fields[0], "=") {
			fields = fields[1:]
		}
		if len(fields) == 0 || strings.HasPrefix(fields[0], "{{") {
			continue
		}
		out = append(out, fields[0])
	}
	return out
}
