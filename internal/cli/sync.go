package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-sync-keeper/internal/client"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/spf13/cobra"
)

// reportOutput is the printable form of a drain report.
type reportOutput struct {
	Succeeded int             `json:"succeeded" yaml:"succeeded"`
	Failed    int             `json:"failed" yaml:"failed"`
	Deferred  int             `json:"deferred" yaml:"deferred"`
	Pending   int             `json:"pending" yaml:"pending"`
	Failures  []failureOutput `json:"failures,omitempty" yaml:"failures,omitempty"`
}

type failureOutput struct {
	Operation  string `json:"operation" yaml:"operation"`
	Collection string `json:"collection" yaml:"collection"`
	RecordID   string `json:"recordId" yaml:"recordId"`
	Error      string `json:"error" yaml:"error"`
	Dropped    bool   `json:"dropped" yaml:"dropped"`
}

func newReportOutput(report models.DrainReport, pending int) reportOutput {
	out := reportOutput{
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		Deferred:  report.Deferred,
		Pending:   pending,
	}
	for _, f := range report.Failures {
		fo := failureOutput{
			Operation:  string(f.Operation.Kind),
			Collection: f.Operation.Collection.String(),
			RecordID:   f.Operation.TargetID(),
			Dropped:    f.Dropped,
		}
		if f.Err != nil {
			fo.Error = f.Err.Error()
		}
		out.Failures = append(out.Failures, fo)
	}
	return out
}

func (o reportOutput) text(w io.Writer) error {
	fmt.Fprintf(w, "succeeded: %d\nfailed: %d\ndeferred: %d\npending: %d\n",
		o.Succeeded, o.Failed, o.Deferred, o.Pending)
	for _, f := range o.Failures {
		state := "kept"
		if f.Dropped {
			state = "dropped"
		}
		if _, err := fmt.Fprintf(w, "  %s %s %s (%s): %s\n", f.Operation, f.Collection, f.RecordID, state, f.Error); err != nil {
			return err
		}
	}
	return nil
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "sync",
		Aliases: []string{"drain"},
		Short:   "Replay queued changes now",
		Long: `Replay queued changes now.

Changes are sent in the order they were made. Changes the backend rejects
for good are dropped and listed; the rest stay queued for the next attempt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session) error {
				report, err := s.app.Sync(cmd.Context())
				if err != nil {
					return err
				}
				out := newReportOutput(report, s.app.Status().Pending)
				return s.out.Print(out, out.text)
			})
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and the number of queued changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, opts, func(s *session) error {
				st := s.app.Status()
				return s.out.Print(st, func(w io.Writer) error {
					return writeStatus(w, st)
				})
			})
		},
	}
}

func writeStatus(w io.Writer, st client.Status) error {
	conn := "offline"
	if st.Online {
		conn = "online"
	}
	_, err := fmt.Fprintf(w, "user: %s\nbackend: %s\npending: %d\n", st.UserID, conn, st.Pending)
	if err != nil {
		return err
	}
	if st.Degraded.Queue || st.Degraded.Cache {
		_, err = fmt.Fprintf(w, "local store degraded: queue=%t cache=%t\n", st.Degraded.Queue, st.Degraded.Cache)
	}
	return err
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <collection>",
		Short: "Print a collection every time it changes",
		Long: `Print a collection every time it changes, until interrupted.

Keeps probing the backend, replays queued changes when it comes back and
applies changes pushed by other devices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := collectionArg(args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withSession(cmd, opts, func(s *session) error {
				return watch(ctx, s, col)
			})
		},
	}
}

func watch(ctx context.Context, s *session, col models.Collection) error {
	snapshots, stopObserving, err := s.app.Coordinator().Observe(col)
	if err != nil {
		return err
	}
	defer stopObserving()

	runErr := make(chan error, 1)
	go func() { runErr <- s.app.Run(ctx) }()

	for {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return <-runErr
			}
			if snap.Loading {
				continue
			}
			view := snap.View()
			if err := s.out.Print(view.Data, func(w io.Writer) error {
				if view.Err != nil {
					fmt.Fprintf(w, "# %v\n", view.Err)
				}
				return writeRecords(w, view.Data)
			}); err != nil {
				return err
			}
		case err := <-runErr:
			return err
		}
	}
}
