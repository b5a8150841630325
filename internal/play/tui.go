package play

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/okian/bethegolf/internal/domain/assessment"
	"github.com/okian/bethegolf/internal/domain/model"
)

// ErrAborted is returned when the user quits before the assessment completes.
var ErrAborted = errors.New("assessment aborted")

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1F6F43"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E0A526"))
	mostStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E9E5B"))
	leastStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0392B"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C0392B")).Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// settledMsg carries the outcome of an Advance or Retry.
type settledMsg struct{ err error }

// Model is the bubbletea view over one controller.
type Model struct {
	ctx    context.Context
	ctrl   *assessment.Controller
	cursor int
	busy   bool
	err    error
	quit   bool
}

// NewModel wraps a loaded controller.
func NewModel(ctx context.Context, ctrl *assessment.Controller) Model {
	return Model{ctx: ctx, ctrl: ctrl}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case settledMsg:
		m.busy = false
		m.err = msg.err
		if m.ctrl.Snapshot().State == assessment.StateCompleted {
			return m, tea.Quit
		}
		if msg.err == nil {
			m.cursor = 0
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quit = true
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	snap := m.ctrl.Snapshot()
	switch key {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if snap.Frame != nil && m.cursor < len(snap.Frame.Options)-1 {
			m.cursor++
		}
	case " ", "x":
		if snap.Frame == nil || m.cursor >= len(snap.Frame.Options) {
			return m, nil
		}
		m.err = m.ctrl.Select(snap.Frame.Options[m.cursor].Key)
	case "enter", "n":
		if !snap.CanAdvance {
			return m, nil
		}
		m.busy = true
		m.err = nil
		return m, m.settle(m.ctrl.Advance)
	case "r":
		if snap.State != assessment.StateSubmitError {
			return m, nil
		}
		m.busy = true
		m.err = nil
		return m, m.settle(m.ctrl.Retry)
	}
	return m, nil
}

func (m Model) settle(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return settledMsg{err: fn(ctx)} }
}

func (m Model) View() string {
	snap := m.ctrl.Snapshot()

	var b strings.Builder
	switch {
	case snap.State == assessment.StateCompleted:
		b.WriteString(titleStyle.Render("Done. Building your card..."))
		return b.String() + "\n"
	case m.busy && snap.State == assessment.StateSubmitting:
		b.WriteString(titleStyle.Render("Scoring your answers..."))
		return b.String() + "\n"
	case snap.Frame == nil:
		b.WriteString(errStyle.Render(fmt.Sprint(snap.Err)))
		return b.String() + "\n"
	}

	fmt.Fprintf(&b, "%s %s\n\n",
		titleStyle.Render("Which is MOST like you, and which is LEAST?"),
		mutedStyle.Render(fmt.Sprintf("%d/%d", snap.FrameIndex+1, snap.FrameCount)))

	var opts strings.Builder
	for i, o := range snap.Frame.Options {
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		fmt.Fprintf(&opts, "%s%s %s\n", pointer, marker(snap.Selection, o.Key), o.Text)
	}
	b.WriteString(boxStyle.Render(strings.TrimRight(opts.String(), "\n")))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	help := "up/down move  space pick  q quit"
	switch {
	case snap.State == assessment.StateSubmitError:
		help = "r retry  " + help
	case snap.CanAdvance && snap.FrameIndex == snap.FrameCount-1:
		help = "enter finish  " + help
	case snap.CanAdvance:
		help = "enter next  " + help
	}
	b.WriteString(mutedStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}

func marker(sel model.Selection, key string) string {
	switch key {
	case sel.Most:
		return mostStyle.Render("[MOST ]")
	case sel.Least:
		return leastStyle.Render("[LEAST]")
	default:
		return mutedStyle.Render("[     ]")
	}
}

// Run drives ctrl through the terminal until it completes or the user quits.
func Run(ctx context.Context, ctrl *assessment.Controller, in io.Reader, out io.Writer) (model.CompletionResult, error) {
	p := tea.NewProgram(NewModel(ctx, ctrl), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return model.CompletionResult{}, err
	}
	res, ok := ctrl.Result()
	if !ok {
		return model.CompletionResult{}, ErrAborted
	}
	return res, nil
}
