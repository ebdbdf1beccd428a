// Package watch implements the `watch` command: a live session view fed by
// the manager's push channel.
package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lancache-tools/lancachectl/internal/application/guestcfg"
	sessionsApp "github.com/lancache-tools/lancachectl/internal/application/sessions"
	"github.com/lancache-tools/lancachectl/internal/domain/session"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/pubsub"
	"github.com/lancache-tools/lancachectl/internal/infrastructure/push"
	"github.com/lancache-tools/lancachectl/internal/interfaces/cli/runtime"
	"github.com/lancache-tools/lancachectl/internal/shared/format"
	"github.com/lancache-tools/lancachectl/internal/shared/goroutine"
)

var (
	watchPageSize int
	watchInterval time.Duration
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch sessions live over the push channel",
		Long: `Connect to the manager's push channel and keep a session table up to
date in the terminal. Structural changes reload the page, heartbeats patch
rows in place, and the connection reconnects with backoff when it drops.`,
		RunE: run,
	}

	cmd.Flags().IntVar(&watchPageSize, "page-size", 0, "Sessions per page (default from config)")
	cmd.Flags().DurationVar(&watchInterval, "interval", 5*time.Second, "Redraw interval")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	env, err := runtime.Setup()
	if err != nil {
		return err
	}

	pageSize := watchPageSize
	if pageSize <= 0 {
		pageSize = env.Config.Sessions.PageSize
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	bus := pubsub.NewBus(env.Log)
	tracker := sessionsApp.NewLocalActivityTracker(0)
	notifier := runtime.ConsoleNotifier{}

	reconciler := sessionsApp.NewReconciler(env.Client, notifier, env.Log, env.Client.CurrentSessionID())
	cache := sessionsApp.NewPreferenceCache(env.Client, env.Log)
	store := guestcfg.NewStore(env.Client, env.Log)

	unbindReconciler := reconciler.Bind(ctx, bus)
	defer unbindReconciler()
	unbindCache := cache.Bind(bus)
	defer unbindCache()
	unbindStore := store.Bind(bus)
	defer unbindStore()

	if err := reconciler.LoadPage(ctx, 1, pageSize); err != nil {
		return err
	}
	tracker.Touch()
	if err := store.Init(ctx); err != nil {
		env.Log.Warnw("guest config unavailable", "error", err)
	}

	listener := push.NewListener(env.Client.BaseURL(), env.Client.Token(), bus, env.Log)
	reconnect := push.DefaultReconnectConfig()
	reconnect.OnConnected = func() {
		env.Log.Infow("push channel connected")
	}
	reconnect.OnDisconnected = func(err error) {
		if ctx.Err() == nil {
			env.Log.Warnw("push channel disconnected", "error", err)
		}
	}
	reconnect.OnReconnecting = func(attempt uint64, delay time.Duration) {
		env.Log.Infow("reconnecting", "attempt", attempt, "delay", delay)
	}

	goroutine.SafeGo(env.Log, "push-listener", func() {
		if err := listener.RunWithReconnect(ctx, reconnect); err != nil && ctx.Err() == nil {
			env.Log.Errorw("push listener stopped", "error", err)
		}
	})

	render(reconciler, tracker)
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			fmt.Println("\nstopping")
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			render(reconciler, tracker)
		}
	}
}

func render(reconciler *sessionsApp.Reconciler, tracker sessionsApp.ActivityTracker) {
	list, pg := reconciler.Snapshot()
	now := time.Now()

	// Clear the screen and home the cursor.
	fmt.Print("\033[2J\033[H")
	fmt.Printf("sessions (page %d of %d, %d total) at %s\n\n",
		pg.Page, max(pg.TotalPages, 1), pg.TotalCount, now.Format(time.TimeOnly))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATE\tIP\tLAST SEEN\tPREFILL")
	for _, s := range list {
		locallyActive := s.IsCurrentSession && tracker.Active()
		liveness := session.Classify(&s, locallyActive, now)

		id := s.ID
		if len(id) > 8 {
			id = id[:8]
		}
		if s.IsCurrentSession {
			id += "*"
		}

		lastSeen := "never"
		if s.LastSeenAt != nil {
			lastSeen = format.RelativeTime(*s.LastSeenAt, now)
		}

		granted := make([]string, 0, len(session.Services))
		for _, svc := range session.Services {
			if s.PrefillFor(svc).Enabled {
				granted = append(granted, string(svc))
			}
		}
		prefill := "-"
		if len(granted) > 0 {
			prefill = strings.Join(granted, ",")
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			id, s.SessionType, liveness, format.CleanIP(s.IPAddress), lastSeen, prefill)
	}
	w.Flush()
}
