package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/session"
	"github.com/arca-vault/arca/vaultmodel"
)

// listOptions implements genericclioptions.CmdOptions for `arcactl list`.
type listOptions struct {
	*genericclioptions.IOStreams
	genericclioptions.SecretFilterOptions

	password string
	secrets  []vaultmodel.SecretEntry
}

func newListCmd() *cobra.Command {
	o := &listOptions{IOStreams: defaultIOStreams()}

	c := &cobra.Command{
		Use:   "list",
		Short: "List secret keys",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(o)
		},
	}

	c.Flags().StringVarP(&o.Filter, "filter", "f", "", o.Usage(genericclioptions.FILTER))

	return c
}

func (o *listOptions) Complete() error {
	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	o.password = string(pass)

	return nil
}

func (*listOptions) Validate() error {
	return nil
}

func (o *listOptions) Run(_ context.Context) error {
	err := withUnlockedController(o.password, func(c *session.Controller) error {
		o.secrets = c.ListSecrets(o.Filter)
		return nil
	})
	if err != nil {
		return err
	}

	if len(o.secrets) == 0 {
		o.Printf("No secrets.\n")
		return nil
	}

	for _, s := range o.secrets {
		o.Printf("%s\t%s\n", s.Key, s.Description)
	}

	return nil
}
