package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/session"
)

// importOptions implements genericclioptions.CmdOptions for `arcactl import`.
type importOptions struct {
	*genericclioptions.IOStreams

	path      string
	overwrite bool

	vaultPassword   string
	archivePassword string
	result          string
}

func newImportCmd() *cobra.Command {
	o := &importOptions{IOStreams: defaultIOStreams()}

	c := &cobra.Command{
		Use:   "import <path>",
		Short: "Import an encrypted backup archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			o.path = args[0]
			return run(o)
		},
	}

	c.Flags().BoolVar(&o.overwrite, "overwrite", false, "Overwrite existing secrets on key collision")

	return c
}

func (o *importOptions) Complete() error {
	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	o.vaultPassword = string(pass)

	archivePass, err := input.PromptReadSecure(o.Out, 0, "Enter archive password: ")
	if err != nil {
		return fmt.Errorf("read archive password: %w", err)
	}

	o.archivePassword = string(archivePass)

	return nil
}

func (*importOptions) Validate() error {
	return nil
}

func (o *importOptions) Run(_ context.Context) error {
	err := withUnlockedController(o.vaultPassword, func(c *session.Controller) error {
		result, err := c.Import(o.path, o.archivePassword, session.ImportOptions{OverwriteExisting: o.overwrite})
		if err != nil {
			return err
		}

		o.result = fmt.Sprintf(
			"secrets: %d imported, %d overwritten, %d skipped; keys: %d imported, %d skipped",
			result.SecretsImported, result.SecretsOverwritten, result.SecretsSkipped,
			result.KeysImported, result.KeysSkipped,
		)

		return nil
	})
	if err != nil {
		return err
	}

	o.Printf("%s\n", o.result)

	return nil
}
