package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/session"
)

// serveOptions implements genericclioptions.CmdOptions for `arcactl serve`.
//
// serve unlocks the vault and blocks, running the IPC server in the
// foreground until interrupted. This is how an operator exercises the
// whole pipeline - API-key authenticated clients - without a GUI host.
type serveOptions struct {
	*genericclioptions.IOStreams

	password string
}

func newServeCmd() *cobra.Command {
	o := &serveOptions{IOStreams: defaultIOStreams()}

	return &cobra.Command{
		Use:   "serve",
		Short: "Unlock the vault and serve IPC clients until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(o)
		},
	}
}

func (o *serveOptions) Complete() error {
	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	o.password = string(pass)

	return nil
}

func (*serveOptions) Validate() error {
	return nil
}

func (o *serveOptions) Run(ctx context.Context) error {
	c, err := newController()
	if err != nil {
		return err
	}

	if err := c.Unlock(o.password); err != nil {
		return err
	}
	defer c.Lock()

	o.Printf("Vault unlocked; serving IPC clients. Press Ctrl-C to lock and exit.\n")

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	<-ctx.Done()

	o.Printf("Shutting down.\n")

	return nil
}
