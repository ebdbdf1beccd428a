// Package sessions implements the `sessions` command group: listing,
// revoking, deleting, and editing manager sessions, plus the fleet-wide
// preference reset.
package sessions

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	sessionsApp "github.com/lancache-tools/lancachectl/internal/application/sessions"
	"github.com/lancache-tools/lancachectl/internal/domain/session"
	"github.com/lancache-tools/lancachectl/internal/interfaces/cli/runtime"
	"github.com/lancache-tools/lancachectl/internal/shared/format"
)

var (
	listPage     int
	listPageSize int

	editTheme       string
	editRefreshRate string
	editLockRate    bool
	editUse24Hour   bool
	editLocalTZ     bool
	editShowYear    bool
	editThreads     int
	editSteam       bool
	editEpic        bool

	resetYes bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect and manage manager sessions",
	}

	cmd.AddCommand(
		newListCommand(),
		newRevokeCommand(),
		newDeleteCommand(),
		newEditCommand(),
		newResetPrefsCommand(),
	)

	return cmd
}

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, one page at a time",
		RunE:  runList,
	}

	cmd.Flags().IntVar(&listPage, "page", 1, "Page to fetch")
	cmd.Flags().IntVar(&listPageSize, "page-size", 0, "Sessions per page (default from config)")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	env, err := runtime.Setup()
	if err != nil {
		return err
	}

	pageSize := listPageSize
	if pageSize <= 0 {
		pageSize = env.Config.Sessions.PageSize
	}

	tracker := sessionsApp.NewLocalActivityTracker(0)
	reconciler := sessionsApp.NewReconciler(env.Client, runtime.ConsoleNotifier{}, env.Log, env.Client.CurrentSessionID())
	if err := reconciler.LoadPage(cmd.Context(), listPage, pageSize); err != nil {
		return err
	}
	// The list call itself counts as local activity for our own session.
	tracker.Touch()

	list, pg := reconciler.Snapshot()
	renderSessionTable(list, tracker)
	if pg.TotalPages > 1 {
		fmt.Printf("\npage %d of %d (%d sessions total)\n", pg.Page, pg.TotalPages, pg.TotalCount)
	}
	return nil
}

func renderSessionTable(list []session.Session, tracker sessionsApp.ActivityTracker) {
	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATE\tIP\tDEVICE\tLAST SEEN\tCREATED\tPREFILL")

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

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			id,
			s.SessionType,
			livenessLabel(&s, liveness),
			format.CleanIP(s.IPAddress),
			deviceLabel(&s),
			lastSeen,
			format.RelativeTime(s.CreatedAt, now),
			prefillLabel(&s),
		)
	}
	w.Flush()
}

func livenessLabel(s *session.Session, liveness session.Liveness) string {
	if s.IsRevoked {
		return "revoked"
	}
	if s.IsExpired {
		return "expired"
	}
	return string(liveness)
}

func deviceLabel(s *session.Session) string {
	if s.DeviceName != "" {
		return s.DeviceName
	}
	d := format.ParseUserAgent(s.UserAgent)
	parts := make([]string, 0, 2)
	if d.Browser != "" {
		parts = append(parts, d.Browser)
	}
	if d.OperatingSystem != "" {
		parts = append(parts, d.OperatingSystem)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " / ")
}

func prefillLabel(s *session.Session) string {
	granted := make([]string, 0, len(session.Services))
	for _, svc := range session.Services {
		if s.PrefillFor(svc).Enabled {
			granted = append(granted, string(svc))
		}
	}
	if len(granted) == 0 {
		return "-"
	}
	return strings.Join(granted, ",")
}

func newRevokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <session-id>",
		Short: "Revoke a session so its token stops working",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := runtime.Setup()
			if err != nil {
				return err
			}
			if err := env.Client.RevokeSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("session %s revoked\n", args[0])
			return nil
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := runtime.Setup()
			if err != nil {
				return err
			}
			if err := env.Client.DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("session %s deleted\n", args[0])
			return nil
		},
	}
}

func newEditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <session-id>",
		Short: "Edit a session's preferences",
		Long: `Edit a session's preference bundle. Only flags that are explicitly set
change the stored value; everything else keeps its current setting. Prefill
flags are sent as separate grant changes after the bundle is written.`,
		Args: cobra.ExactArgs(1),
		RunE: runEdit,
	}

	cmd.Flags().StringVar(&editTheme, "theme", "", "Theme name")
	cmd.Flags().StringVar(&editRefreshRate, "refresh-rate", "", "Refresh rate (off, 15s, 30s, 1m, 5m)")
	cmd.Flags().BoolVar(&editLockRate, "lock-refresh-rate", false, "Lock the refresh rate against changes by the session")
	cmd.Flags().BoolVar(&editUse24Hour, "24h", false, "Use 24-hour clock")
	cmd.Flags().BoolVar(&editLocalTZ, "local-timezone", false, "Render times in the local timezone")
	cmd.Flags().BoolVar(&editShowYear, "show-year", false, "Include the year in dates")
	cmd.Flags().IntVar(&editThreads, "threads", 0, "Maximum prefill thread count (1-32)")
	cmd.Flags().BoolVar(&editSteam, "steam-prefill", false, "Grant or revoke steam prefill")
	cmd.Flags().BoolVar(&editEpic, "epic-prefill", false, "Grant or revoke epic prefill")

	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	env, err := runtime.Setup()
	if err != nil {
		return err
	}

	id := args[0]
	target := session.Session{
		ID:               id,
		IsCurrentSession: id == env.Client.CurrentSessionID(),
	}

	buf := sessionsApp.NewEditBuffer(env.Client, runtime.ConsoleNotifier{}, env.Log)
	if err := buf.Open(cmd.Context(), target); err != nil {
		return err
	}
	defer buf.Close()

	flags := cmd.Flags()
	buf.Update(func(p *session.Preferences) {
		if flags.Changed("theme") {
			theme := editTheme
			p.Theme = &theme
		}
		if flags.Changed("refresh-rate") {
			rate := editRefreshRate
			p.RefreshRate = &rate
		}
		if flags.Changed("lock-refresh-rate") {
			locked := editLockRate
			p.RefreshRateLocked = &locked
		}
		if flags.Changed("24h") {
			p.Use24HourFormat = editUse24Hour
		}
		if flags.Changed("local-timezone") {
			p.UseLocalTimezone = editLocalTZ
		}
		if flags.Changed("show-year") {
			p.ShowYearInDates = editShowYear
		}
		if flags.Changed("threads") {
			threads := editThreads
			p.MaxThreadCount = &threads
		}
	})

	if flags.Changed("steam-prefill") {
		buf.SetPrefill(session.ServiceSteam, editSteam)
	}
	if flags.Changed("epic-prefill") {
		buf.SetPrefill(session.ServiceEpic, editEpic)
	}

	_, err = buf.Save(cmd.Context())
	return err
}

func newResetPrefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-prefs",
		Short: "Reset every session's preferences to the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := runtime.Setup()
			if err != nil {
				return err
			}
			if !resetYes && !confirm("Reset preferences for ALL sessions?") {
				fmt.Println("aborted")
				return nil
			}

			notifier := runtime.ConsoleNotifier{}
			reconciler := sessionsApp.NewReconciler(env.Client, notifier, env.Log, env.Client.CurrentSessionID())
			cache := sessionsApp.NewPreferenceCache(env.Client, env.Log)
			coordinator := sessionsApp.NewBulkCoordinator(env.Client, reconciler, cache, notifier, env.Log)

			_, err = coordinator.ResetAllPreferences(cmd.Context())
			return err
		},
	}

	cmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
