package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/session"
)

// exportOptions implements genericclioptions.CmdOptions for `arcactl export`.
type exportOptions struct {
	*genericclioptions.IOStreams

	path string

	vaultPassword   string
	archivePassword string
}

func newExportCmd() *cobra.Command {
	o := &exportOptions{IOStreams: defaultIOStreams()}

	return &cobra.Command{
		Use:   "export <path>",
		Short: "Export an encrypted backup archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			o.path = args[0]
			return run(o)
		},
	}
}

func (o *exportOptions) Complete() error {
	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	o.vaultPassword = string(pass)

	archivePass, err := input.PromptNewPassword(o.Out, 0, minPasswordLen)
	if err != nil {
		return fmt.Errorf("read archive password: %w", err)
	}

	o.archivePassword = string(archivePass)

	return nil
}

func (*exportOptions) Validate() error {
	return nil
}

func (o *exportOptions) Run(_ context.Context) error {
	hostname, _ := os.Hostname()

	err := withUnlockedController(o.vaultPassword, func(c *session.Controller) error {
		return c.Export(o.path, o.archivePassword, hostname)
	})
	if err != nil {
		return err
	}

	o.Printf("Exported backup to %s.\n", o.path)

	return nil
}
