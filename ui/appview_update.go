package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		if !a.ready {
			a.ready = true
			a.refreshViewport(true)
		} else {
			a.refreshViewport(false)
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	if m, cmd, handled := a.updateStreaming(msg); handled {
		return m, cmd
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	cmds = append(cmds, cmd)
	a.textarea, cmd = a.textarea.Update(msg)
	cmds = append(cmds, cmd)
	a.loadingSpinner, cmd = a.loadingSpinner.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

func (a *AppView) layout() {
	// header + error line + input + footer
	chrome := 6
	if a.dataModel.LastError != "" {
		chrome++
	}
	vh := a.height - chrome
	if vh < 1 {
		vh = 1
	}
	if !a.ready {
		a.viewport = newChatViewport(a.width, vh)
	} else {
		a.viewport.Width = a.width
		a.viewport.Height = vh
	}
	a.textarea.SetWidth(a.width)
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return a, tea.Quit

	case tea.KeyEsc:
		if a.promptMode {
			a.promptMode = false
			a.textarea.Reset()
			a.textarea.Placeholder = "Your message..."
		}
		return a, nil

	case tea.KeyCtrlP:
		a.promptMode = !a.promptMode
		a.textarea.Reset()
		if a.promptMode {
			a.textarea.SetValue(a.dataModel.SystemPrompt)
			a.textarea.Placeholder = "You are a helpful assistant..."
		} else {
			a.textarea.Placeholder = "Your message..."
		}
		return a, nil

	case tea.KeyCtrlL:
		if a.dataModel.InFlight() {
			return a, nil
		}
		a.dataModel.ClearConversation()
		a.rendered = make(map[string]string)
		a.status = ""
		a.refreshViewport(true)
		return a, nil

	case tea.KeyCtrlE:
		if a.dataModel.InFlight() {
			return a, nil
		}
		cmd := a.dataModel.ExportConversation()
		if cmd == nil {
			a.status = "Nothing to export."
			return a, nil
		}
		a.status = "Exporting..."
		return a, cmd

	case tea.KeyEnter:
		// Alt+Enter inserts a newline, handled by the textarea below
		if msg.Alt {
			msg.Alt = false
			break
		}

		if a.promptMode {
			a.dataModel.SystemPrompt = a.textarea.Value()
			a.promptMode = false
			a.textarea.Reset()
			a.textarea.Placeholder = "Your message..."
			a.status = "System prompt updated."
			return a, nil
		}

		if a.dataModel.InFlight() {
			return a, nil
		}

		input := a.textarea.Value()
		cmd := a.dataModel.StartSend(input)
		if cmd == nil {
			a.refreshViewport(false)
			return a, nil
		}

		a.textarea.Reset()
		a.status = ""
		a.refreshViewport(true)
		return a, tea.Batch(cmd, a.loadingSpinner.Tick)
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}
