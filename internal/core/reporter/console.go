package reporter

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm" // 引入 pterm 库用于控制台输出
)

// ConsoleReporter 控制台输出
type ConsoleReporter struct {
	// Raw 为 true 时原样输出 markdown
	Raw bool
	out io.Writer
}

func NewConsoleReporter(raw bool) *ConsoleReporter {
	return &ConsoleReporter{Raw: raw, out: os.Stdout}
}

// WithWriter 替换输出目标
func (r *ConsoleReporter) WithWriter(w io.Writer) *ConsoleReporter {
	r.out = w
	return r
}

func (r *ConsoleReporter) Report(ctx context.Context, label, report string) error {
	if r.Raw {
		_, err := io.WriteString(r.out, report)
		return err
	}

	for _, line := range strings.Split(report, "\n") {
		r.renderLine(line)
	}
	return nil
}

// renderLine 按行渲染 markdown
func (r *ConsoleReporter) renderLine(line string) {
	switch {
	case strings.HasPrefix(line, "# "):
		pterm.Fprintln(r.out, pterm.DefaultHeader.WithFullWidth().Sprint(strings.TrimPrefix(line, "# ")))
	case strings.HasPrefix(line, "**") && strings.HasSuffix(line, ":**"):
		pterm.Fprintln(r.out, pterm.DefaultSection.Sprint(strings.TrimSuffix(strings.TrimPrefix(line, "**"), ":**")))
	case strings.HasPrefix(line, "- Malicious: ") && line != "- Malicious: 0":
		pterm.Fprintln(r.out, pterm.FgRed.Sprint(line))
	case strings.HasPrefix(line, "- Suspicious: ") && line != "- Suspicious: 0":
		pterm.Fprintln(r.out, pterm.FgYellow.Sprint(line))
	case strings.HasPrefix(line, "  - "):
		pterm.Fprintln(r.out, pterm.FgGray.Sprint(line))
	case line == "":
	default:
		pterm.Fprintln(r.out, line)
	}
}
