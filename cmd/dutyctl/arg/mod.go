package arg

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SoarinFerret/DutyWarden/internal/ipc"
)

var modCmd = &cobra.Command{
	Use:   "mod",
	Short: "Manage users authorized to go on duty (admin)",
}

var modAddCmd = &cobra.Command{
	Use:   "add <user>",
	Short: "Authorize a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := call("AddAuthorized", args[0])
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	},
}

var modRemoveCmd = &cobra.Command{
	Use:   "remove <user>",
	Short: "Revoke a user's authorization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := call("RemoveAuthorized", args[0])
		if err != nil {
			return err
		}
		fmt.Println(result)
		return nil
	},
}

var modListCmd = &cobra.Command{
	Use:   "list",
	Short: "List authorized users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var users []string
		ok, err := callJSON("ListAuthorized", &users)
		if err != nil || !ok {
			return err
		}
		if len(users) == 0 {
			fmt.Println("No authorized users.")
			return nil
		}
		for _, u := range users {
			fmt.Println(u)
		}
		return nil
	},
}

var dutiesCmd = &cobra.Command{
	Use:   "duties",
	Short: "List everyone currently on duty (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var duties []ipc.DutyStatus
		ok, err := callJSON("ListDuties", &duties)
		if err != nil || !ok {
			return err
		}
		if len(duties) == 0 {
			fmt.Println("Nobody is on duty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "USER\tSINCE\tELAPSED\tCONTINUES")
		for _, d := range duties {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", d.UserID,
				d.StartTime.Local().Format(timeLayout), d.ElapsedDuration(), d.ContinueCount)
		}
		return w.Flush()
	},
}

func init() {
	modCmd.AddCommand(modAddCmd, modRemoveCmd, modListCmd)
	rootCmd.AddCommand(modCmd, dutiesCmd)
}
