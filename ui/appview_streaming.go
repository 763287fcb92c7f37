package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"lunatui/storage"

	appmodel "lunatui/model"
)

// updateStreaming handles messages produced by the data model's commands.
// The bool return reports whether the message was consumed here.
func (a AppView) updateStreaming(msg tea.Msg) (tea.Model, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case appmodel.StreamProgressMsg:
		a.refreshViewport(true)
		// Keep draining the event channel until the stream closes it
		return a, a.dataModel.WaitForStream(), true

	case appmodel.StreamDoneMsg:
		a.dataModel.FinishSend(nil)
		a.refreshViewport(true)
		return a, a.renderCompletedCmd(), true

	case appmodel.StreamErrorMsg:
		a.dataModel.FinishSend(msg.Err)
		a.layout()
		a.refreshViewport(true)
		return a, nil, true

	case appmodel.PingResultMsg:
		if msg.Err != nil {
			a.status = "Ollama server unreachable. Messages will fail until it is back."
		}
		return a, nil, true

	case appmodel.ExportDoneMsg:
		a.status = fmt.Sprintf("Exported to %s", msg.Path)
		return a, nil, true

	case appmodel.ExportErrorMsg:
		a.status = "Export failed: " + msg.Err.Error()
		return a, nil, true

	case markdownRenderedMsg:
		a.rendered[msg.id] = msg.output
		a.refreshViewport(false)
		return a, nil, true

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
		if a.dataModel.InFlight() {
			a.refreshViewport(false)
			return a, cmd, true
		}
		return a, nil, true
	}

	return a, nil, false
}

// renderCompletedCmd kicks off markdown rendering for any terminal
// assistant message that has not been rendered yet.
func (a AppView) renderCompletedCmd() tea.Cmd {
	var cmds []tea.Cmd
	for _, m := range a.dataModel.History.All() {
		if m.Role != storage.RoleAssistant || m.Status != storage.StatusComplete {
			continue
		}
		if _, ok := a.rendered[m.ID]; ok {
			continue
		}
		cmds = append(cmds, a.renderMarkdownCmd(m.ID, m.Content))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}
