package cli

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-sync-keeper/internal/client"
	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/spf13/cobra"
)

// session is one started client runtime bound to a command invocation.
type session struct {
	app    *client.App
	out    *OutputFormatter
	logger *logger.Logger
}

// openSession loads the client config, opens the runtime and starts it.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	cfg, err := config.GetClientConfig(opts.overrides())
	if err != nil {
		return nil, fmt.Errorf("error getting configs: %w", err)
	}

	log := logger.NewClientLogger("sync-keeper-client", cfg.App.LogFile).WithLevel(cfg.App.LogLevel)

	app, err := client.NewApp(cmd.Context(), cfg, log)
	if err != nil {
		return nil, err
	}
	if err = app.Start(cmd.Context()); err != nil {
		_ = app.Close()
		return nil, err
	}

	return &session{
		app:    app,
		out:    &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
		logger: log,
	}, nil
}

// close replays what is still queued when the backend is reachable, then
// releases the runtime.
func (s *session) close(ctx context.Context) {
	if s.app.Online() && s.app.Status().Pending > 0 {
		if _, err := s.app.Sync(ctx); err != nil {
			s.logger.Warn().Err(err).Str("func", "session.close").Msg("queue not drained")
		}
	}
	if err := s.app.Close(); err != nil {
		s.logger.Err(err).Str("func", "session.close").Msg("failed to close client runtime")
	}
}

// withSession runs fn against an open session and closes it afterwards.
func withSession(cmd *cobra.Command, opts *RootOptions, fn func(s *session) error) error {
	s, err := openSession(cmd, opts)
	if err != nil {
		return err
	}
	defer s.close(cmd.Context())

	return fn(s)
}
