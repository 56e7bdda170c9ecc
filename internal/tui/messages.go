package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/simroster/internal/core"
)

/* ----------------------------------------
	MESSAGES
---------------------------------------- */

// StatusMsg is a one-line status shown under the table.
type StatusMsg string

// ErrMsg carries a failed command back to the model.
type ErrMsg struct{ Err error }

// LoadedMsg reports a committed load.
type LoadedMsg struct{ Summary *core.LoadSummary }

/* ----------------------------------------
	COMMANDS
---------------------------------------- */

// LoadFile reads the save at path into the session.
func LoadFile(s Session, path string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), core.DefaultLoadTimeout)
		defer cancel()

		f, err := os.Open(path)
		if err != nil {
			return ErrMsg{Err: fmt.Errorf("open save: %w", err)}
		}
		defer f.Close()

		var size int64
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}

		summary, err := s.Load(ctx, filepath.Base(path), f, size)
		if err != nil {
			return ErrMsg{Err: err}
		}
		return LoadedMsg{Summary: summary}
	}
}
