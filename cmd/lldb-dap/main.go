// Command lldb-dap bridges a DAP front-end, connected over stdio, to an
// LLDB-backed debug session.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	lldbdap "github.com/lldb-tools/lldb-dap/dap"
	"github.com/lldb-tools/lldb-dap/internal/lldbapi"
	"github.com/lldb-tools/lldb-dap/internal/session"
)

const pollInterval = 50 * time.Millisecond

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	logLevel string
	logFile  string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:          "lldb-dap",
		Short:        "Debug Adapter Protocol server backed by LLDB",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", "write logs to this file instead of stderr")
	return cmd
}

func runStdio(ctx context.Context, opts rootOptions) error {
	log, err := newLogger(opts)
	if err != nil {
		return err
	}

	conn := lldbdap.NewConn(os.Stdin, os.Stdout)
	defer conn.Close()

	sess := session.New(log, newRealDebugger)
	srv := lldbdap.NewServer(sess.Handler())

	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go runEventPump(pumpCtx, sess, srv)

	return srv.Serve(ctx, conn)
}

func newLogger(opts rootOptions) (*logrus.Entry, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(level)

	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		logger.SetOutput(f)
	} else {
		logger.SetOutput(os.Stderr)
	}

	return logrus.NewEntry(logger), nil
}

// runEventPump bridges the target's broadcaster onto the server's own
// goroutine pool, translating engine events into outbound DAP messages as
// they arrive. It waits for a target to exist (launch/attach completes
// asynchronously relative to process startup) before installing a
// listener.
func runEventPump(ctx context.Context, sess *session.DebugSession, srv *lldbdap.Server) {
	var listener lldbapi.Listener
	for listener == nil {
		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
		target := sess.Target()
		debugger := sess.Debugger()
		if target == nil || debugger == nil {
			continue
		}
		listener = debugger.Listener()
		target.Broadcaster().AddListener(listener, lldbapi.BreakpointChangedMask|lldbapi.ModulesLoadedMask|lldbapi.ProcessStateMask)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-listener.Events():
			if !ok {
				return
			}
			srv.Go(func(c lldbdap.Context) {
				dispatchEngineEvent(sess, c, ev)
			})
		}
	}
}

func dispatchEngineEvent(sess *session.DebugSession, c lldbdap.Context, ev lldbapi.Event) {
	switch ev := ev.(type) {
	case lldbapi.ProcessStateEvent:
		if proc := sess.Process(); proc != nil {
			sess.Events().ProcessStateChanged(c.C(), proc, ev)
		}
	case lldbapi.ModuleEvent:
		sess.Events().ModuleLoaded(ev)
	case lldbapi.BreakpointChangedEvent:
		if ev.Removed() {
			if reg := sess.Breakpoints(); reg != nil {
				reg.Release(ev.BreakpointID())
			}
		}
	}
}
