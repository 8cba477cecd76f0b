package arg

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check if DutyWarden is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := call("GetStatus")
		if err != nil {
			return err
		}
		fmt.Println("DutyWarden Status:", result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
