package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/motzkin-store/cart"
	"github.com/jrsteele09/motzkin-store/catalog"
	apperrors "github.com/jrsteele09/motzkin-store/internal/errors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (c *cli) loginCommand() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the store backend",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("--username and --password are required")
			}
			if err := c.app.Login(cmd.Context(), username, password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", c.app.Session.Current().DisplayName())
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func (c *cli) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			c.app.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		}),
	}
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			s := c.app.Session.Current()
			out := cmd.OutOrStdout()
			if !s.Authenticated() {
				fmt.Fprintf(out, "state: %s\n", s.State)
				return nil
			}
			fmt.Fprintf(out, "state: %s (%s)\nuser: %s\nid: %s\ncart entries: %d\n",
				s.State, s.Source, s.DisplayName(), s.UserID(), c.app.Cart.Len())
			return nil
		}),
	}
}

func (c *cli) schoolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schools",
		Short: "List schools",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			if err := c.requireSession(); err != nil {
				return err
			}
			printItems(cmd.OutOrStdout(), c.app.Cascade.View().Schools)
			return nil
		}),
	}
}

func (c *cli) gradesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "grades <school-id>",
		Short: "List the grades of a school",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			if err := c.selectPath(cmd, args[0], ""); err != nil {
				return err
			}
			printItems(cmd.OutOrStdout(), c.app.Cascade.View().Grades)
			return nil
		}),
	}
}

func (c *cli) equipmentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "equipment <school-id> <grade-id>",
		Short: "Show the equipment list for a grade",
		Args:  cobra.ExactArgs(2),
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			if err := c.selectPath(cmd, args[0], args[1]); err != nil {
				return err
			}
			v := c.app.Cascade.View()
			if v.Equipment == nil {
				return apperrors.ErrNoEquipment
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tITEM\tQTY")
			for _, l := range v.Equipment.Lines() {
				fmt.Fprintf(w, "%d\t%s\t%d\n", l.ID, l.Name, l.Quantity)
			}
			return w.Flush()
		}),
	}
}

func (c *cli) cartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Manage the cart of this browsing session",
	}
	cmd.AddCommand(c.cartAddCommand(), c.cartListCommand(), c.cartRemoveCommand(), c.cartClearCommand(), c.cartRemoteCommand())
	return cmd
}

func (c *cli) cartAddCommand() *cobra.Command {
	var skip []int
	var quantities []string
	cmd := &cobra.Command{
		Use:   "add <school-id> <grade-id>",
		Short: "Add a grade's equipment list to the cart",
		Long: "Add a grade's equipment list to the cart. Every item starts selected with its listed quantity;\n" +
			"use --skip to leave items out and --qty id=n to change quantities.",
		Args: cobra.ExactArgs(2),
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			if err := c.selectPath(cmd, args[0], args[1]); err != nil {
				return err
			}
			for _, id := range skip {
				if err := c.app.Cascade.Toggle(id); err != nil {
					return errors.Wrapf(err, "skip %d", id)
				}
			}
			for _, q := range quantities {
				id, n, err := parseQuantity(q)
				if err != nil {
					return err
				}
				if err := c.app.Cascade.SetQuantity(id, n); err != nil {
					return errors.Wrapf(err, "quantity for %d", id)
				}
			}
			e, err := c.app.Cascade.Commit(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%d items)\n", e.ID, e.TotalQuantity())
			return nil
		}),
	}
	cmd.Flags().IntSliceVar(&skip, "skip", nil, "item ids to leave out")
	cmd.Flags().StringArrayVar(&quantities, "qty", nil, "quantity override as id=n (repeatable)")
	return cmd
}

func (c *cli) cartListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cart entries",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			printEntries(cmd.OutOrStdout(), c.app.Cart.Entries())
			return nil
		}),
	}
}

func (c *cli) cartRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <entry-id>",
		Short: "Remove a cart entry",
		Args:  cobra.ExactArgs(1),
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			return c.app.Cart.Remove(cmd.Context(), args[0])
		}),
	}
}

func (c *cli) cartClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			return c.app.Cart.Clear(cmd.Context())
		}),
	}
}

func (c *cli) cartRemoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remote",
		Short: "List the server-side cart",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			entries, err := c.app.Backend.Cart(cmd.Context())
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), entries)
			return nil
		}),
	}
}

func (c *cli) sessionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the browsing session",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "end",
		Short: "End the browsing session and discard its cart",
		Args:  cobra.NoArgs,
		RunE: c.withApp(func(cmd *cobra.Command, args []string) error {
			if err := c.app.EndBrowsingSession(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Browsing session %q ended\n", c.cfg.GetBrowsingSessionID())
			return nil
		}),
	})
	return cmd
}

func (c *cli) requireSession() error {
	if !c.app.Session.IsAuthenticated() {
		return errors.Wrap(apperrors.ErrNotAuthenticated, "run motzkin login first")
	}
	return nil
}

// selectPath drives the cascade down to the given school and, when gradeArg
// is set, grade.
func (c *cli) selectPath(cmd *cobra.Command, schoolArg, gradeArg string) error {
	if err := c.requireSession(); err != nil {
		return err
	}
	ctx := cmd.Context()

	school, err := findItem(c.app.Cascade.View().Schools, schoolArg, "school")
	if err != nil {
		return err
	}
	if err := c.app.Cascade.SelectSchool(ctx, school); err != nil {
		return err
	}
	if gradeArg == "" {
		return nil
	}
	grade, err := findItem(c.app.Cascade.View().Grades, gradeArg, "grade")
	if err != nil {
		return err
	}
	return c.app.Cascade.SelectGrade(ctx, grade)
}

func findItem(items []catalog.SelectItem, arg, kind string) (catalog.SelectItem, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return catalog.SelectItem{}, fmt.Errorf("%s id %q is not a number", kind, arg)
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return catalog.SelectItem{}, fmt.Errorf("%s %d not found", kind, id)
}

func parseQuantity(s string) (int, int, error) {
	idText, nText, ok := strings.Cut(s, "=")
	if !ok {
		return 0, 0, fmt.Errorf("quantity %q must look like id=n", s)
	}
	id, err := strconv.Atoi(strings.TrimSpace(idText))
	if err != nil {
		return 0, 0, fmt.Errorf("quantity %q: bad item id", s)
	}
	n, err := strconv.Atoi(strings.TrimSpace(nText))
	if err != nil {
		return 0, 0, fmt.Errorf("quantity %q: bad amount", s)
	}
	return id, n, nil
}

func printItems(out io.Writer, items []catalog.SelectItem) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, it := range items {
		fmt.Fprintf(w, "%d\t%s\n", it.ID, it.Name)
	}
	_ = w.Flush()
}

func printEntries(out io.Writer, entries []cart.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "Cart is empty")
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tADDED\tSCHOOL\tGRADE\tITEMS")
	for _, e := range entries {
		added := time.UnixMilli(e.Timestamp).Format(time.DateTime)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", e.ID, added, e.School.Name, e.Grade.Name, e.TotalQuantity())
	}
	_ = w.Flush()
}
