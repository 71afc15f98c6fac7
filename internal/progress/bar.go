package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// clearLine returns to the start of the line and erases it
const clearLine = "\r\033[K"

// Bar is a single-line progress bar. It is a no-op unless its output is a
// terminal, and safe for concurrent use.
type Bar struct {
	mu              sync.Mutex
	out             io.Writer
	enabled         bool
	total           int
	current         int
	lastRenderWidth int
	label           string
	bar             progress.Model
}

// New returns a bar on stderr for total steps
func New(total int) *Bar {
	return NewWithWriter(os.Stderr, total, isTerminal(os.Stderr))
}

// NewWithWriter returns a bar that renders to out when enabled is true
func NewWithWriter(out io.Writer, total int, enabled bool) *Bar {
	if total <= 0 {
		total = 1
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 36

	if cols, err := strconv.Atoi(strings.TrimSpace(os.Getenv("COLUMNS"))); err == nil && cols > 0 {
		width := cols - 40
		if width < 16 {
			width = 16
		}
		if width > 64 {
			width = 64
		}
		bar.Width = width
	}

	return &Bar{
		out:     out,
		enabled: enabled,
		total:   total,
		bar:     bar,
	}
}

// Grow adds n steps to the total
func (p *Bar) Grow(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total += n
}

// Advance moves one step forward and shows label
func (p *Bar) Advance(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.current++
	if p.current > p.total {
		p.current = p.total
	}
	p.label = label
	p.render()
}

// Finish fills the bar and ends the line
func (p *Bar) Finish(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	p.current = p.total
	p.label = label
	p.lastRenderWidth = 0
	fmt.Fprint(p.out, clearLine)
	p.render()
	fmt.Fprint(p.out, "\n")
	p.lastRenderWidth = 0
}

// Close ends a partially drawn line
func (p *Bar) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	if p.lastRenderWidth > 0 {
		fmt.Fprint(p.out, "\n")
		p.lastRenderWidth = 0
	}
}

func (p *Bar) render() {
	percent := float64(p.current) / float64(p.total)
	if percent < 0 {
		percent = 0
	}
	if percent > 1 {
		percent = 1
	}
	line := fmt.Sprintf("%s %3.0f%% %d/%d %s", p.bar.ViewAs(percent), percent*100, p.current, p.total, strings.TrimSpace(p.label))
	pad := ""
	if p.lastRenderWidth > len(line) {
		pad = strings.Repeat(" ", p.lastRenderWidth-len(line))
	}
	fmt.Fprintf(p.out, "\r%s%s", line, pad)
	p.lastRenderWidth = len(line)
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("TERM")), "dumb") {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
