package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/RevCBH/guardian/internal/contacts"
)

// NewContactsCmd creates the contacts command group
func NewContactsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Manage trusted contacts",
	}
	cmd.AddCommand(newContactsImportCmd(app), newContactsListCmd(app))
	return cmd
}

func newContactsImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import trusted contacts from a YAML file",
		Long: `Import reads a YAML document with a user_id and a list of contacts and
saves each one. Contacts with an id replace the stored record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunContactsImport(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}
}

func newContactsListCmd(app *App) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's trusted contacts by tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.RunContactsList(cmd.Context(), user, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID (overrides user.id)")
	return cmd
}

// RunContactsImport loads path and saves every contact in it.
func (a *App) RunContactsImport(ctx context.Context, path string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	list, err := contacts.LoadFile(path)
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, c := range list {
		if err := store.Save(ctx, c); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "Imported %d contact(s)\n", len(list))
	return nil
}

// RunContactsList prints the user's contacts as a table.
func (a *App) RunContactsList(ctx context.Context, user string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	if user == "" {
		user = cfg.User.ID
	}
	if user == "" {
		return fmt.Errorf("no user configured: set user.id, GUARDIAN_USER_ID or --user")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := store.ListByUser(ctx, user)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No trusted contacts configured")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tNAME\tEMAIL\tPHONE\tHIGH THREAT")
	for _, c := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.Tier, c.Name, dash(c.Email), dash(c.Phone), yesNo(c.NotifyOnHighThreat))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
