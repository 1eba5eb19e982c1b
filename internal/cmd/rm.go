package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/session"
)

// rmOptions implements genericclioptions.CmdOptions for `arcactl rm`.
type rmOptions struct {
	*genericclioptions.IOStreams

	key      string
	password string
}

func newRmCmd() *cobra.Command {
	o := &rmOptions{IOStreams: defaultIOStreams()}

	return &cobra.Command{
		Use:   "rm <key>",
		Short: "Delete a secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			o.key = args[0]
			return run(o)
		},
	}
}

func (o *rmOptions) Complete() error {
	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	o.password = string(pass)

	return nil
}

func (*rmOptions) Validate() error {
	return nil
}

func (o *rmOptions) Run(_ context.Context) error {
	err := withUnlockedController(o.password, func(c *session.Controller) error {
		return c.DeleteSecret(o.key)
	})
	if err != nil {
		return err
	}

	o.Printf("Removed %q.\n", o.key)

	return nil
}
