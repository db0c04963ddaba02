package cli

import (
	"fmt"
	"io"

	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/spf13/cobra"
)

// writeOutput is what insert, update and remove print.
type writeOutput struct {
	Record models.Record `json:"record,omitempty" yaml:"record,omitempty"`
	Queued bool          `json:"queued" yaml:"queued"`
}

func (o writeOutput) text(w io.Writer) error {
	state := "saved"
	if o.Queued {
		state = "queued until the backend is reachable"
	}
	if o.Record == nil {
		_, err := fmt.Fprintln(w, state)
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s\n", o.Record.ID(), state)
	return err
}

func collectionArg(arg string) (models.Collection, error) {
	col, err := models.ParseCollection(arg)
	if err != nil {
		return "", fmt.Errorf("%w (known: %v)", err, models.Collections())
	}
	return col, nil
}

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection>",
		Short: "Print the records of a collection",
		Long: `Print the records of a collection.

The collection is fetched from the backend. When it cannot be reached the
last locally stored snapshot is printed, with queued changes applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := collectionArg(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(s *session) error {
				view := s.app.Load(cmd.Context(), col)
				if view.Err != nil {
					if len(view.Data) == 0 {
						return view.Err
					}
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: showing local data: %v\n", view.Err)
				}
				records := view.Data
				if records == nil {
					records = []models.Record{}
				}
				return s.out.Print(records, func(w io.Writer) error {
					return writeRecords(w, records)
				})
			})
		},
	}
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insert <collection> <json>",
		Short: "Create a record",
		Example: `  sync-keeper insert accounts '{"name":"Cash","currency":"EUR"}'
  sync-keeper insert transactions '{"accountId":"temp_1718000000000_ab12cd34","amount":12.5}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := collectionArg(args[0])
			if err != nil {
				return err
			}
			payload, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(s *session) error {
				res := s.app.Coordinator().Insert(cmd.Context(), col, payload)
				if res.Err != nil {
					return res.Err
				}
				out := writeOutput{Record: res.Data, Queued: res.Queued}
				return s.out.Print(out, out.text)
			})
		},
	}
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "update <collection> <id> <json>",
		Short:   "Merge fields into a record",
		Example: `  sync-keeper update budgets b-1 '{"limit":150}'`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := collectionArg(args[0])
			if err != nil {
				return err
			}
			patch, err := parseRecord(args[2])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(s *session) error {
				// printed result carries the fields the patch does not touch
				s.app.Load(cmd.Context(), col)

				res := s.app.Coordinator().Update(cmd.Context(), col, args[1], patch)
				if res.Err != nil {
					return res.Err
				}
				out := writeOutput{Record: res.Data, Queued: res.Queued}
				return s.out.Print(out, out.text)
			})
		},
	}
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <collection> <id>",
		Aliases: []string{"rm", "delete"},
		Short:   "Delete a record",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := collectionArg(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, opts, func(s *session) error {
				s.app.Load(cmd.Context(), col)

				res := s.app.Coordinator().Remove(cmd.Context(), col, args[1])
				if res.Err != nil {
					return res.Err
				}
				out := writeOutput{Queued: res.Queued}
				return s.out.Print(out, out.text)
			})
		},
	}
}
