package arg

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"github.com/SoarinFerret/DutyWarden/internal/ipc"
)

var rawOutput bool

var rootCmd = &cobra.Command{
	Use:   "dutyctl",
	Short: "dutyctl is the command line tool for DutyWarden",
	Long: `dutyctl allows you to interact with the DutyWarden service via D-Bus.
You can use it to go on and off duty, answer duty reminders and, as an
administrator, manage who may go on duty.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rawOutput, "json", false, "print the raw JSON reply")
}

// call invokes method on the DutyWarden service and returns its string reply.
// D-Bus errors carry the service's user-facing message.
func call(method string, args ...interface{}) (string, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return "", fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer conn.Close()

	obj := conn.Object(ipc.ServiceName, dbus.ObjectPath(ipc.ObjectPath))

	var result string
	if err := obj.Call(ipc.InterfaceName+"."+method, 0, args...).Store(&result); err != nil {
		return "", err
	}
	return result, nil
}

// callJSON invokes method and decodes its JSON reply into v. With --json the
// reply is printed as is and false is returned.
func callJSON(method string, v any, args ...interface{}) (bool, error) {
	reply, err := call(method, args...)
	if err != nil {
		return false, err
	}
	if rawOutput {
		fmt.Println(reply)
		return false, nil
	}
	if err := json.Unmarshal([]byte(reply), v); err != nil {
		return false, fmt.Errorf("unexpected reply from %s: %w", method, err)
	}
	return true, nil
}
