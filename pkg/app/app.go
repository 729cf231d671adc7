package app

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kerbaras/mangaread/pkg/app/screens"
	"github.com/kerbaras/mangaread/pkg/services"
)

type App struct {
	controller *services.MangaController
	log        *slog.Logger
}

func NewApp(controller *services.MangaController, log *slog.Logger) *App {
	return &App{controller: controller, log: log}
}

// Run blocks until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	model := screens.NewRootScreen(ctx, a.controller)
	defer model.Shutdown()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		a.log.Info("tui stopped", "reason", ctx.Err())
		return nil
	}
	return err
}
