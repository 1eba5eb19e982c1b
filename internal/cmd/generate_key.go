package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/session"
	"github.com/arca-vault/arca/util"
	"github.com/arca-vault/arca/vaultmodel"
)

// generateKeyOptions implements genericclioptions.CmdOptions for
// `arcactl generate-key`.
type generateKeyOptions struct {
	*genericclioptions.IOStreams

	name            string
	description     string
	fullAccess      bool
	allowedSecrets  string
	allowedPrefixes string
	canList         bool

	password string
	raw      string
	entry    vaultmodel.ApiKeyEntry
}

func newGenerateKeyCmd() *cobra.Command {
	o := &generateKeyOptions{IOStreams: defaultIOStreams()}

	c := &cobra.Command{
		Use:   "generate-key <name>",
		Short: "Generate a new API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			o.name = args[0]
			return run(o)
		},
	}

	c.Flags().StringVarP(&o.description, "description", "d", "", "Optional description")
	c.Flags().BoolVar(&o.fullAccess, "full", false, "Grant unconditional access to every secret")
	c.Flags().StringVar(&o.allowedSecrets, "allow-secret", "", "Comma-separated secret keys the key may access (Restricted only)")
	c.Flags().StringVar(&o.allowedPrefixes, "allow-prefix", "", "Comma-separated key prefixes the key may access (Restricted only)")
	c.Flags().BoolVar(&o.canList, "can-list", false, "Allow the key to list the secret keys it can see")

	return c
}

func (o *generateKeyOptions) Complete() error {
	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	o.password = string(pass)

	return nil
}

func (*generateKeyOptions) Validate() error {
	return nil
}

func (o *generateKeyOptions) Run(_ context.Context) error {
	perms := vaultmodel.ApiKeyPermissions{
		Level:           vaultmodel.Restricted,
		AllowedSecrets:  util.ParseCommaSeparated(o.allowedSecrets),
		AllowedPrefixes: util.ParseCommaSeparated(o.allowedPrefixes),
		CanList:         o.canList,
	}

	if o.fullAccess {
		perms.Level = vaultmodel.Full
	}

	err := withUnlockedController(o.password, func(c *session.Controller) error {
		raw, entry, err := c.GenerateApiKey(o.name, o.description, perms)
		if err != nil {
			return err
		}

		o.raw = raw
		o.entry = entry

		return nil
	})
	if err != nil {
		return err
	}

	o.Printf("Generated API key %q (%s level).\n", o.entry.Name, o.entry.Permissions.Level)
	o.Printf("%s\n", o.raw)
	o.Printf("This value is shown only once; store it securely.\n")

	return nil
}
