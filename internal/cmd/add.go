package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/randstring"
	"github.com/arca-vault/arca/session"
	"github.com/arca-vault/arca/vaulterrors"
)

const generatedSecretLength = 24

// addOptions implements genericclioptions.CmdOptions for `arcactl add`.
type addOptions struct {
	genericclioptions.StdioOptions

	key         string
	description string
	generate    bool

	password string
	value    string
}

func newAddCmd() *cobra.Command {
	o := &addOptions{StdioOptions: genericclioptions.StdioOptions{IOStreams: defaultIOStreams()}}

	c := &cobra.Command{
		Use:   "add <key>",
		Short: "Add a new secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			o.key = args[0]
			return run(o)
		},
	}

	c.Flags().StringVarP(&o.description, "description", "d", "", "Optional description")
	c.Flags().BoolVarP(&o.generate, "generate", "g", false, "Generate a random secret value instead of prompting")
	c.Flags().BoolVarP(&o.NonInteractive, "stdin", "i", false, "Read the secret value from stdin instead of prompting")
	genericclioptions.MarkFlagsHidden(c, "stdin")

	return c
}

func (o *addOptions) Complete() error {
	if o.key == "" {
		return vaulterrors.ErrEmptySecretKey
	}

	if err := o.StdioOptions.Complete(); err != nil {
		return err
	}

	switch {
	case o.generate:
		v, err := randstring.New(generatedSecretLength)
		if err != nil {
			return fmt.Errorf("generate secret value: %w", err)
		}

		o.value = v
	case o.NonInteractive:
		raw, err := io.ReadAll(o.In)
		if err != nil {
			return fmt.Errorf("read secret value from stdin: %w", err)
		}

		o.value = strings.TrimSpace(string(raw))
	default:
		v, err := input.PromptReadSecure(o.Out, 0, "Enter value for %q: ", o.key)
		if err != nil {
			return fmt.Errorf("read secret value: %w", err)
		}

		o.value = string(v)
	}

	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	o.password = string(pass)

	return nil
}

func (o *addOptions) Validate() error {
	if o.generate {
		return nil
	}

	return o.StdioOptions.Validate()
}

func (o *addOptions) Run(_ context.Context) error {
	err := withUnlockedController(o.password, func(c *session.Controller) error {
		return c.AddSecret(o.key, o.value, o.description)
	})
	if err != nil {
		return err
	}

	if o.generate {
		o.Printf("Added %q with a generated value: %s\n", o.key, o.value)
	} else {
		o.Printf("Added %q.\n", o.key)
	}

	return nil
}
