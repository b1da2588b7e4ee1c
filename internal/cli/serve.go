package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/newsletter/internal/digest"
	"github.com/lazypower/newsletter/internal/server"
	"github.com/lazypower/newsletter/internal/status"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the tracking server and the daily digest schedule",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st := status.New(a.cfg.Status.FailureThreshold)
	srv := server.New(a.engine, st, a.log, VersionString())

	sched := digest.NewScheduler(time.Local, st, a.log)
	if a.cfg.Digest.SpoolFile != "" {
		runner := &digest.Runner{
			Selector:  newSelector(a),
			SpoolFile: a.cfg.Digest.SpoolFile,
			OutputDir: a.cfg.Digest.OutputDir,
		}
		if err := sched.Schedule(a.cfg.Digest.Schedule, runner.Run); err != nil {
			return err
		}
		srv.SetNextRun(sched.Next)
		sched.Start()
	} else {
		a.log.WarnObj("no digest spool configured, scheduler disabled", "scheduler_disabled", nil)
	}

	addr := a.cfg.ListenAddr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errc := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.ErrOrStderr(), "newsletter serving on %s\n", addr)
		fmt.Fprintf(cmd.ErrOrStderr(), "  db: %s (%s)\n", a.dbPath, a.cfg.Database.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-done:
		fmt.Fprintln(cmd.ErrOrStderr(), "\nshutting down...")
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sched.Stop(ctx)
	return httpServer.Shutdown(ctx)
}

func newSelector(a *app) *digest.Selector {
	return &digest.Selector{
		Engine:    a.engine,
		Limit:     a.cfg.Digest.Limit,
		PublicURL: a.cfg.Server.PublicURL,
		Log:       a.log,
	}
}
