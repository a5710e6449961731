package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chrisedwards/slack-stealth/internal/slack"
)

var usersFlags struct {
	bots     bool
	maxPages int
}

var usersCmd = &cobra.Command{
	Use:   "users [filter]",
	Short: "List workspace members",
	Long: `List the members of a workspace, sorted by display name. An optional
filter keeps members whose ID, handle or name contains it (case-insensitive).
Bots are hidden unless --bots is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		client, err := a.client()
		if err != nil {
			return err
		}

		users, err := client.ListUsers(cmd.Context(), usersFlags.maxPages)
		if err != nil {
			return err
		}
		filter := ""
		if len(args) == 1 {
			filter = args[0]
		}
		users = selectUsers(users, filter, usersFlags.bots)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), users)
		}
		renderUsers(cmd.OutOrStdout(), users)
		return nil
	},
}

// selectUsers drops bots (unless wanted) and members not matching filter,
// then sorts by display name.
func selectUsers(users []*slack.User, filter string, bots bool) []*slack.User {
	filter = strings.ToLower(filter)
	out := make([]*slack.User, 0, len(users))
	for _, u := range users {
		if u.IsBot && !bots {
			continue
		}
		if filter != "" && !strings.Contains(strings.ToLower(u.ID+" "+u.Name+" "+u.RealName+" "+u.DisplayName), filter) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Display()) < strings.ToLower(out[j].Display())
	})
	return out
}

func renderUsers(w io.Writer, users []*slack.User) {
	for _, u := range users {
		fmt.Fprintf(w, "%-12s %s", u.ID, nameColor.Sprint(u.Display()))
		if u.Name != "" && u.Name != u.Display() {
			dimColor.Fprintf(w, " @%s", u.Name)
		}
		if u.IsBot {
			dimColor.Fprint(w, " [bot]")
		}
		fmt.Fprintln(w)
	}
	dimColor.Fprintf(w, "%d member(s)\n", len(users))
}

func init() {
	f := usersCmd.Flags()
	f.BoolVar(&usersFlags.bots, "bots", false, "include bot users")
	f.IntVar(&usersFlags.maxPages, "max-pages", 0, "stop after this many pages (0 = all)")
	rootCmd.AddCommand(usersCmd)
}
