package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/godbus/dbus/v5"

	"github.com/SoarinFerret/DutyWarden/internal/config"
	"github.com/SoarinFerret/DutyWarden/internal/engine"
	"github.com/SoarinFerret/DutyWarden/internal/eval"
	"github.com/SoarinFerret/DutyWarden/internal/ipc"
	"github.com/SoarinFerret/DutyWarden/internal/notify"
	"github.com/SoarinFerret/DutyWarden/internal/state"
)

func main() {
	// check for argument to determine config location
	argPath := "/etc/dutywarden/config.toml"
	if len(os.Args) > 1 {
		argPath = os.Args[1]
	}
	log.Println("Using config file at:", argPath)
	cfg, err := config.LoadConfigFromFile(argPath)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := newLogger(os.Stderr, cfg.Log)
	if err != nil {
		log.Fatal("Invalid log settings:", err)
	}
	slog.SetDefault(logger)

	allow, err := state.NewAllowlist(cfg.Auth.Allowlist)
	if err != nil {
		log.Fatal("Failed to load authorized users:", err)
	}
	log.Printf("Loaded %d authorized users from %s", allow.Len(), cfg.Auth.Allowlist)

	audit, err := notify.OpenAudit(cfg.Log.Audit)
	if err != nil {
		log.Println("Failed to open audit log, writing audit entries to stdout:", err)
		audit = notify.NewAudit(os.Stdout)
	}
	defer audit.Close()

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		log.Fatal("Failed to connect to system bus:", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	desktop := notify.NewDesktop(conn).WithLogger(logger.With("component", "desktop"))
	notifier := notify.Port{Direct: desktop, Log: audit}
	dutyEngine := engine.NewEngine(state.NewRegistry(), allow, notifier, cfg.Duty,
		engine.WithLogger(logger.With("component", "engine")))

	var wg sync.WaitGroup

	// Start the duty engine (reminder loops)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := dutyEngine.Run(ctx); err != nil {
			log.Println("duty engine error:", err)
		}
	}()

	// Start the DutyWarden D-Bus service
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Println("Opening system D-Bus service...")
		dm := ipc.NewDutyManager(dutyEngine, allow, eval.NewRoles(cfg.Auth), ipc.NewBusIdentifier(conn),
			cfg.Auth, logger.With("component", "ipc"))
		if err := serveDutyWarden(ctx, conn, dm); err != nil {
			log.Println("dutywarden service error:", err)
			cancel()
		}
	}()

	wg.Wait()
	fmt.Println("Shutdown complete")
}

// newLogger builds the operational logger at the configured level.
func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func serveDutyWarden(ctx context.Context, conn *dbus.Conn, dm *ipc.DutyManager) error {
	reply, err := conn.RequestName(ipc.ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("failed to request name: %s already taken", ipc.ServiceName)
	}

	err = conn.Export(dm, dbus.ObjectPath(ipc.ObjectPath), ipc.InterfaceName)
	if err != nil {
		return fmt.Errorf("failed to export interface: %w", err)
	}

	<-ctx.Done()
	return nil
}
