package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/session"
)

// unlockOptions implements genericclioptions.CmdOptions for `arcactl unlock`.
//
// Since arcactl has no background process of its own, this subcommand
// only proves the master password is correct; the unlocked state does
// not survive process exit. Use `serve` to keep the vault unlocked for
// API-key clients.
type unlockOptions struct {
	*genericclioptions.IOStreams

	password string
}

func newUnlockCmd() *cobra.Command {
	o := &unlockOptions{IOStreams: defaultIOStreams()}

	return &cobra.Command{
		Use:   "unlock",
		Short: "Verify the master password against the vault",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(o)
		},
	}
}

func (o *unlockOptions) Complete() error {
	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	o.password = string(pass)

	return nil
}

func (*unlockOptions) Validate() error {
	return nil
}

func (o *unlockOptions) Run(_ context.Context) error {
	if err := withUnlockedController(o.password, func(_ *session.Controller) error {
		return nil
	}); err != nil {
		return err
	}

	o.Printf("Password verified; vault unlocks successfully.\n")

	return nil
}
