package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/session"
)

// revokeKeyOptions implements genericclioptions.CmdOptions for
// `arcactl revoke-key`.
type revokeKeyOptions struct {
	*genericclioptions.IOStreams

	name     string
	password string
}

func newRevokeKeyCmd() *cobra.Command {
	o := &revokeKeyOptions{IOStreams: defaultIOStreams()}

	return &cobra.Command{
		Use:   "revoke-key <name>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			o.name = args[0]
			return run(o)
		},
	}
}

func (o *revokeKeyOptions) Complete() error {
	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	o.password = string(pass)

	return nil
}

func (*revokeKeyOptions) Validate() error {
	return nil
}

func (o *revokeKeyOptions) Run(_ context.Context) error {
	err := withUnlockedController(o.password, func(c *session.Controller) error {
		return c.RevokeApiKey(o.name)
	})
	if err != nil {
		return err
	}

	o.Printf("Revoked %q.\n", o.name)

	return nil
}
