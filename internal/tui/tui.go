package tui

import (
	"context"
	"errors"
	"log/slog"

	"OpenCodeWeb/internal/chat"
	"OpenCodeWeb/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the terminal chat over orch and blocks until the user quits
// or ctx is cancelled.
func Run(ctx context.Context, orch *chat.Orchestrator, title string, logger *slog.Logger) error {
	m := New(ctx, orch, title, logger)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	orch.OnChange(func(state session.State) {
		p.Send(StateMsg(state))
	})

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
