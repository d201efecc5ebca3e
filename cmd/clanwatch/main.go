package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"clanwatch/internal/app"
)

const (
	stopTimeout  = 30 * time.Second
	exitFlushCap = 5 * time.Second
)

func main() {
	var (
		cfgPath string
		runNow  string
	)
	flag.StringVar(&cfgPath, "config", "./clanwatch.yaml", "path to config file (yaml or json)")
	flag.StringVar(&runNow, "run-now", "", "task to run immediately after startup, e.g. members:#TAG")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}

	// Whatever path we leave by, give queued Discord messages a bounded
	// chance to go out.
	defer a.ForcedFlush(exitFlushCap)

	if err := a.Start(ctx); err != nil {
		fmt.Println("fatal start:", err)
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	if runNow != "" {
		if err := a.RunNow(runNow); err != nil {
			fmt.Println("run-now:", err)
		}
	}

	<-ctx.Done()
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer stopCancel()
	if err := a.Stop(stopCtx); err != nil {
		fmt.Println("shutdown:", err)
	}
}
