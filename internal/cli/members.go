package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"MemberSync/internal/domain"
)

// NewNameChangeCommand groups the name change workflow.
func NewNameChangeCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "name-change",
		Short: "Request, accept or decline a member's base name change",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "request <member-id> <name...>",
		Short: "Store a pending name change",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			req, err := application.Members().RequestNameChange(commandContext(cmd), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Request %d stored. New name would be %q.\n", req.Change.ID, req.Preview)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "accept <request-id>",
		Short: "Apply a pending name change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			application, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			name, err := application.Members().AcceptNameChange(commandContext(cmd), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Request %d accepted. Nickname set to %q.\n", id, name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "decline <request-id>",
		Short: "Drop a pending name change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRequestID(args[0])
			if err != nil {
				return err
			}
			application, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			name, err := application.Members().DeclineNameChange(commandContext(cmd), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Request %d declined (%q).\n", id, name)
			return nil
		},
	})

	return cmd
}

// NewDeleteMemberCommand creates the delete-member command.
func NewDeleteMemberCommand(opts *RootOptions) *cobra.Command {
	var filter domain.Filter

	cmd := &cobra.Command{
		Use:   "delete-member",
		Short: "Remove a member record by member id or student number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if filter.Empty() {
				return errors.New("one of --id or --student-number is required")
			}
			application, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			rec, err := application.Members().DeleteMember(commandContext(cmd), filter)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted member %s (student number %s).\n", rec.MemberID, rec.StudentNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.MemberID, "id", "", "directory member id")
	cmd.Flags().StringVar(&filter.StudentNumber, "student-number", "", "student number")
	cmd.MarkFlagsMutuallyExclusive("id", "student-number")
	return cmd
}

func parseRequestID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid request id %q: %w", raw, domain.ErrInvalidInput)
	}
	return id, nil
}
