package arg

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SoarinFerret/DutyWarden/internal/ipc"
)

const timeLayout = "Mon 02 Jan 15:04 MST"

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Go on duty",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var status ipc.DutyStatus
		ok, err := callJSON("StartDuty", &status)
		if err != nil || !ok {
			return err
		}
		fmt.Printf("On duty since %s. Answer reminders with `dutyctl continue`.\n",
			status.StartTime.Local().Format(timeLayout))
		return nil
	},
}

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "Go off duty",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var status ipc.DutyStatus
		ok, err := callJSON("EndDuty", &status)
		if err != nil || !ok {
			return err
		}
		fmt.Printf("Duty ended after %s, %d reminders answered.\n",
			status.ElapsedDuration(), status.ContinueCount)
		return nil
	},
}

var continueCmd = &cobra.Command{
	Use:   "continue [challenge-id]",
	Short: "Confirm you are still on duty",
	Long: `Answer the pending duty reminder. Without a challenge id the reminder
currently waiting for you is answered.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		challengeID := ""
		if len(args) == 1 {
			challengeID = args[0]
		}
		var status ipc.DutyStatus
		ok, err := callJSON("ContinueDuty", &status, challengeID)
		if err != nil || !ok {
			return err
		}
		fmt.Printf("Duty continued (%d so far, on duty for %s).\n",
			status.ContinueCount, status.ElapsedDuration())
		return nil
	},
}

var reminderCmd = &cobra.Command{
	Use:   "reminder",
	Short: "Show the reminder waiting for an answer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var r ipc.Reminder
		ok, err := callJSON("PendingReminder", &r)
		if err != nil || !ok {
			return err
		}
		fmt.Printf("Reminder #%d (%s), %s left to answer.\n",
			r.Ordinal, r.ID, time.Duration(r.Remaining)*time.Second)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd, endCmd, continueCmd, reminderCmd)
}
