package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	termmd "github.com/MichaelMure/go-term-markdown"
	gmd "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"lunatui/storage"
)

type markdownRenderedMsg struct {
	id     string
	output string
}

func newChatViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.SetContent("")
	return vp
}

// refreshViewport rebuilds the chat transcript. When follow is true the
// viewport is pinned to the bottom so incoming tokens stay visible.
func (a *AppView) refreshViewport(follow bool) {
	if !a.ready {
		return
	}
	a.viewport.SetContent(a.renderMessages())
	if follow {
		a.viewport.GotoBottom()
	}
}

func (a *AppView) renderMessages() string {
	messages := a.dataModel.History.All()
	if len(messages) == 0 {
		return DimStyle.Render("No messages yet. Say hi!")
	}

	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch m.Role {
		case storage.RoleUser:
			b.WriteString(UserStyle.Render(a.dataModel.Config.ExportUsername + ":"))
			b.WriteString("\n")
			b.WriteString(m.Content)
			b.WriteString("\n")
		case storage.RoleAssistant:
			b.WriteString(AssistantStyle.Render("luna:"))
			b.WriteString("\n")
			b.WriteString(a.renderAssistant(m))
		}
	}
	return b.String()
}

func (a *AppView) renderAssistant(m storage.Message) string {
	switch m.Status {
	case storage.StatusPending:
		if m.Content == "" {
			return a.loadingSpinner.View() + "\n"
		}
		// Stream in progress: plain text, markdown waits for the full reply
		return m.Content + "\n"

	case storage.StatusError:
		var b strings.Builder
		if m.Content != "" {
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
		b.WriteString(ErrorStyle.Render("Failed to get response."))
		b.WriteString("\n")
		return b.String()

	default:
		var b strings.Builder
		if out, ok := a.rendered[m.ID]; ok {
			b.WriteString(out)
		} else {
			b.WriteString(m.Content)
			b.WriteString("\n")
		}
		if m.TimingSeconds > 0 {
			b.WriteString(TimingStyle.Render(fmt.Sprintf("Processed in %.1f seconds", m.TimingSeconds)))
			b.WriteString("\n")
		}
		return b.String()
	}
}

// renderMarkdownCmd renders a completed reply to terminal markdown off the
// update loop. Rendering long replies is slow enough to drop keystrokes.
func (a AppView) renderMarkdownCmd(id, content string) tea.Cmd {
	width := a.width - 4
	if width < 20 {
		width = 20
	}
	return func() tea.Msg {
		// Autolink mangles bare URLs in terminal output
		p := parser.NewWithExtensions(parser.CommonExtensions &^ parser.Autolink)
		doc := p.Parse([]byte(content))
		out := gmd.Render(doc, termmd.NewRenderer(width, 0))
		return markdownRenderedMsg{id: id, output: string(out)}
	}
}
