package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
)

const minPasswordLen = 8

// createOptions implements genericclioptions.CmdOptions for `arcactl create`.
type createOptions struct {
	genericclioptions.StdioOptions

	password string
}

func newCreateCmd() *cobra.Command {
	o := &createOptions{StdioOptions: genericclioptions.StdioOptions{IOStreams: defaultIOStreams()}}

	c := &cobra.Command{
		Use:   "create",
		Short: "Initialize a new vault",
		Long:  "Create a new vault at the configured path, prompting for a master password.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(o)
		},
	}

	c.Flags().BoolVarP(&o.NonInteractive, "stdin", "i", false, "Read the master password from stdin instead of prompting")
	genericclioptions.MarkFlagsHidden(c, "stdin")

	return c
}

func (o *createOptions) Complete() error {
	if err := o.StdioOptions.Complete(); err != nil {
		return err
	}

	if o.NonInteractive {
		raw, err := io.ReadAll(o.In)
		if err != nil {
			return fmt.Errorf("read password from stdin: %w", err)
		}

		o.password = strings.TrimSpace(string(raw))

		return nil
	}

	pass, err := input.PromptNewPassword(o.Out, 0, minPasswordLen)
	if err != nil {
		return fmt.Errorf("read new password: %w", err)
	}

	o.password = string(pass)

	return nil
}

func (o *createOptions) Validate() error {
	return o.StdioOptions.Validate()
}

func (o *createOptions) Run(_ context.Context) error {
	c, err := newController()
	if err != nil {
		return err
	}

	if err := c.Create(o.password); err != nil {
		return err
	}

	o.Printf("Vault created.\n")

	return nil
}
