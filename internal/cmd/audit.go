package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arca-vault/arca/audit"
	"github.com/arca-vault/arca/genericclioptions"
	"github.com/arca-vault/arca/input"
	"github.com/arca-vault/arca/session"
	"github.com/arca-vault/arca/vaultmodel"
)

const defaultAuditLimit = 20

// auditOptions implements genericclioptions.CmdOptions for `arcactl audit`.
type auditOptions struct {
	*genericclioptions.IOStreams

	limit int
	stats bool

	password string
	entries  []vaultmodel.AuditLogEntry
	summary  audit.Statistics
}

func newAuditCmd() *cobra.Command {
	o := &auditOptions{IOStreams: defaultIOStreams()}

	c := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit log entries or summary statistics",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(o)
		},
	}

	c.Flags().IntVarP(&o.limit, "limit", "n", defaultAuditLimit, "Number of recent entries to show")
	c.Flags().BoolVar(&o.stats, "stats", false, "Show summary statistics instead of recent entries")

	return c
}

func (o *auditOptions) Complete() error {
	pass, err := input.PromptPassword(o.Out, 0)
	if err != nil {
		return fmt.Errorf("read master password: %w", err)
	}

	o.password = string(pass)

	return nil
}

func (*auditOptions) Validate() error {
	return nil
}

func (o *auditOptions) Run(_ context.Context) error {
	return withUnlockedController(o.password, func(c *session.Controller) error {
		if o.stats {
			o.summary = c.AuditStatistics()
			o.printStatistics()

			return nil
		}

		o.entries = c.AuditRecent(o.limit)
		o.printEntries()

		return nil
	})
}

func (o *auditOptions) printEntries() {
	if len(o.entries) == 0 {
		o.Printf("No audit entries.\n")
		return
	}

	for _, e := range o.entries {
		status := "OK"
		if !e.Success {
			status = "FAIL"
		}

		o.Printf("%s\t%s\t%s\t%s\t%s\n", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.ApiKeyName, e.Action, e.SecretKey, status)
	}
}

func (o *auditOptions) printStatistics() {
	s := o.summary

	o.Printf("total=%d successes=%d failures=%d unique_keys=%d unique_secrets=%d\n",
		s.Total, s.Successes, s.Failures, s.UniqueKeys, s.UniqueSecrets)

	for _, top := range s.TopSecrets {
		o.Printf("top secret: %s (%d)\n", top.Key, top.Count)
	}
}
