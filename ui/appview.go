package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	appmodel "lunatui/model"
)

// AppView is the main chat screen.
type AppView struct {
	// Reference to core data model
	dataModel *appmodel.Model

	// UI Components
	viewport       viewport.Model
	textarea       textarea.Model
	loadingSpinner spinner.Model

	// Window state
	width  int
	height int
	ready  bool

	// System prompt input mode: the textarea edits the session system
	// prompt instead of the next chat message
	promptMode bool

	// Rendered markdown cache keyed by message id. Only terminal messages
	// are cached; a streaming message shows plain text.
	rendered map[string]string

	// Transient status line (export result, connectivity)
	status string
}

func NewAppView(m *appmodel.Model) AppView {
	ta := textarea.New()
	ta.Placeholder = "Your message..."
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))

	return AppView{
		dataModel:      m,
		textarea:       ta,
		loadingSpinner: sp,
		rendered:       make(map[string]string),
	}
}

func (a AppView) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, a.dataModel.PingServer())
}

func (a AppView) View() string {
	if !a.ready {
		return "Initializing..."
	}

	var b strings.Builder

	b.WriteString(a.headerView())
	b.WriteString("\n")

	if a.dataModel.LastError != "" {
		b.WriteString(ErrorStyle.Render("Error: " + a.dataModel.LastError))
		b.WriteString("\n")
	}

	b.WriteString(a.viewport.View())
	b.WriteString("\n")
	b.WriteString(a.inputView())
	b.WriteString("\n")
	b.WriteString(a.footerView())

	return b.String()
}

func (a AppView) headerView() string {
	titleText := "🌔 Hi, I'm Luna."
	if a.promptMode {
		titleText = "🌔 System prompt"
	}

	model := DimStyle.Render("offline")
	if a.dataModel.Client != nil {
		model = DimStyle.Render(a.dataModel.Client.GetModel())
	}

	// Manual spacing with runewidth so the emoji doesn't skew the layout
	pad := a.width - runewidth.StringWidth(titleText) - lipgloss.Width(model)
	if pad < 1 {
		pad = 1
	}

	return TitleStyle.Render(titleText) + strings.Repeat(" ", pad) + model
}

func (a AppView) inputView() string {
	if a.promptMode {
		label := TimingStyle.Render("system prompt (Enter saves, Esc cancels)")
		return fmt.Sprintf("%s\n%s", label, a.textarea.View())
	}
	return a.textarea.View()
}

func (a AppView) footerView() string {
	if a.status != "" {
		return StatusStyle.Render(a.status)
	}

	help := FormatFooter(
		"Enter", "Send",
		"Alt+Enter", "Newline",
		"Ctrl+P", "System prompt",
		"Ctrl+E", "Export",
		"Ctrl+L", "Clear",
		"Ctrl+C", "Quit",
	)
	return HelpStyle.Render(help)
}
