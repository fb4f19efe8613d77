package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"contactrelay/internal/contact"
)

type validateOptions struct {
	field string
	value string
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check one field value against the contact-form rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := contact.ValidateField(contact.Role(opts.field), opts.value)
			if msg != "" {
				return fmt.Errorf("%s: %s", opts.field, msg)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", opts.field)
			if contact.Role(opts.field) == contact.RoleMessage {
				counter := contact.CountCharacters(opts.value)
				fmt.Fprintf(cmd.OutOrStdout(), "%d/%d characters\n", counter.Length, counter.Max)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.field, "field", "", "Field role: name, email, subject or message")
	cmd.Flags().StringVar(&opts.value, "value", "", "Value to validate")
	_ = cmd.MarkFlagRequired("field")

	return cmd
}
