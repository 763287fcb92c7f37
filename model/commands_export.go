package model

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ollama/ollama/api"

	"lunatui/config"
	"lunatui/storage"
)

// ExportDoneMsg carries the path of a written export file.
type ExportDoneMsg struct {
	Path string
}

// ExportErrorMsg signals a failed export.
type ExportErrorMsg struct {
	Err error
}

const titleTimeout = 30 * time.Second

// ExportConversation snapshots the conversation, asks the model for a title,
// and writes one export file. Title failure is absorbed - the export proceeds
// untitled rather than aborting.
func (m *Model) ExportConversation() tea.Cmd {
	if m.Exporter == nil || m.History.Len() == 0 {
		return nil
	}

	client := m.Client
	exporter := m.Exporter
	index := m.Index
	snapshot := m.History.All()

	return func() tea.Msg {
		var title string
		if client != nil {
			ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
			defer cancel()

			history := make([]api.Message, 0, len(snapshot))
			for _, msg := range snapshot {
				if msg.Status != storage.StatusComplete {
					continue
				}
				history = append(history, api.Message{
					Role:    msg.Role,
					Content: msg.Content,
				})
			}

			var err error
			title, err = client.GenerateTitle(ctx, history)
			if err != nil {
				title = ""
				if config.DebugLog != nil {
					config.DebugLog.Printf("[Model] title generation failed, exporting untitled: %v", err)
				}
			}
		}

		path, err := exporter.Export(snapshot, title)
		if err != nil {
			return ExportErrorMsg{Err: err}
		}

		if index != nil {
			if meta, err := storage.RecordMetaFromFile(path); err == nil {
				if err := index.Add(meta); err != nil && config.DebugLog != nil {
					config.DebugLog.Printf("[Model] failed to index export: %v", err)
				}
			}
		}

		return ExportDoneMsg{Path: path}
	}
}
