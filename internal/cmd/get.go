package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/clipboard"
	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/session"
	"github.com/arca-vault/arca/vaulterrors"
)

// getOptions implements genericclioptions.CmdOptions for `arcactl get`.
type getOptions struct {
	*genericclioptions.IOStreams

	key         string
	toClipboard bool

	password string
	value    string
	found    bool
}

func newGetCmd() *cobra.Command {
	o := &getOptions{IOStreams: defaultIOStreams()}

	c := &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a secret value",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			o.key = args[0]
			return run(o)
		},
	}

	c.Flags().BoolVarP(&o.toClipboard, "clipboard", "c", false, "Copy the value to the clipboard instead of printing it")

	return c
}

func (o *getOptions) Complete() error {
	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	o.password = string(pass)

	return nil
}

func (*getOptions) Validate() error {
	return nil
}

func (o *getOptions) Run(_ context.Context) error {
	err := withUnlockedController(o.password, func(c *session.Controller) error {
		entry, ok := c.GetSecret(o.key)
		if !ok {
			return nil
		}

		o.found = true
		o.value = entry.Value

		return nil
	})
	if err != nil {
		return err
	}

	if !o.found {
		return vaulterrors.Newf(vaulterrors.KindNotFound, "secret %q not found", o.key)
	}

	if o.toClipboard {
		if err := clipboard.Copy(o.value); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}

		o.Printf("Copied %q to clipboard.\n", o.key)

		return nil
	}

	o.Printf("%s\n", o.value)

	return nil
}
