// Package guests implements the `guests` command group: clearing guest
// sessions and managing the defaults applied to new ones.
package guests

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lancache-tools/lancachectl/internal/application/guestcfg"
	sessionsApp "github.com/lancache-tools/lancachectl/internal/application/sessions"
	"github.com/lancache-tools/lancachectl/internal/domain/session"
	"github.com/lancache-tools/lancachectl/internal/interfaces/cli/runtime"
)

var (
	clearYes bool

	defaultsTheme       string
	defaultsRefreshRate string
	defaultsLockRate    bool
	defaultsFormats     []string

	prefillEnabled  bool
	prefillDuration int
	prefillThreads  int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guests",
		Short: "Manage guest sessions and their defaults",
	}

	cmd.AddCommand(
		newClearCommand(),
		newDefaultsCommand(),
		newPrefillCommand(),
	)

	return cmd
}

func newClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Revoke and remove every guest session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := runtime.Setup()
			if err != nil {
				return err
			}
			if !clearYes && !confirm("Clear ALL guest sessions?") {
				fmt.Println("aborted")
				return nil
			}

			notifier := runtime.ConsoleNotifier{}
			reconciler := sessionsApp.NewReconciler(env.Client, notifier, env.Log, env.Client.CurrentSessionID())
			cache := sessionsApp.NewPreferenceCache(env.Client, env.Log)
			coordinator := sessionsApp.NewBulkCoordinator(env.Client, reconciler, cache, notifier, env.Log)

			_, err = coordinator.ClearGuestSessions(cmd.Context())
			return err
		},
	}

	cmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newDefaultsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "defaults",
		Short: "Show or change the defaults applied to new guest sessions",
		Long: `Without flags, print the current guest defaults. Flags change only the
named setting and leave the rest alone.`,
		RunE: runDefaults,
	}

	cmd.Flags().StringVar(&defaultsTheme, "theme", "", "Default theme")
	cmd.Flags().StringVar(&defaultsRefreshRate, "refresh-rate", "", "Default refresh rate (off, 15s, 30s, 1m, 5m)")
	cmd.Flags().BoolVar(&defaultsLockRate, "lock-refresh-rate", false, "Lock the refresh rate for guests")
	cmd.Flags().StringSliceVar(&defaultsFormats, "time-formats", nil, "Allowed time formats (relative, absolute, 24h, 12h)")

	return cmd
}

func runDefaults(cmd *cobra.Command, args []string) error {
	env, err := runtime.Setup()
	if err != nil {
		return err
	}

	store := guestcfg.NewStore(env.Client, env.Log)
	if err := store.Init(cmd.Context()); err != nil {
		return err
	}

	flags := cmd.Flags()
	patch := make(map[string]any)
	if flags.Changed("theme") {
		patch["theme"] = defaultsTheme
	}
	if flags.Changed("refresh-rate") {
		patch["refreshRate"] = defaultsRefreshRate
	}
	if flags.Changed("lock-refresh-rate") {
		patch["refreshRateLocked"] = defaultsLockRate
	}

	if len(patch) > 0 {
		if err := store.UpdateDefaults(cmd.Context(), patch); err != nil {
			return err
		}
	}
	if flags.Changed("time-formats") {
		if err := store.SetAllowedTimeFormats(cmd.Context(), defaultsFormats); err != nil {
			return err
		}
	}

	printDefaults(store.Defaults())
	return nil
}

func printDefaults(d session.GuestDefaults) {
	theme := "-"
	if d.Theme != nil {
		theme = *d.Theme
	}
	fmt.Printf("theme:          %s\n", theme)
	fmt.Printf("refresh rate:   %s (locked: %t)\n", d.RefreshRate, d.RefreshRateLocked)
	fmt.Printf("time formats:   %s\n", strings.Join(d.AllowedTimeFormats, ", "))
}

func newPrefillCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefill <service>",
		Short: "Show or change the prefill defaults for a service",
		Args:  cobra.ExactArgs(1),
		RunE:  runPrefill,
	}

	cmd.Flags().BoolVar(&prefillEnabled, "enabled-by-default", false, "Grant prefill to new guests automatically")
	cmd.Flags().IntVar(&prefillDuration, "duration-hours", 0, "Grant duration in hours (1-720)")
	cmd.Flags().IntVar(&prefillThreads, "threads", 0, "Maximum prefill thread count (1-32)")

	return cmd
}

func runPrefill(cmd *cobra.Command, args []string) error {
	env, err := runtime.Setup()
	if err != nil {
		return err
	}

	svc := session.Service(strings.ToLower(args[0]))
	switch svc {
	case session.ServiceSteam, session.ServiceEpic:
	default:
		return fmt.Errorf("unknown service %q (expected steam or epic)", args[0])
	}

	store := guestcfg.NewStore(env.Client, env.Log)
	if err := store.Init(cmd.Context()); err != nil {
		return err
	}

	cfg, ok := store.PrefillConfig(svc)
	if !ok {
		cfg = session.PrefillConfig{
			Service:        svc,
			DurationHours:  session.DefaultGuestPrefillHours,
			MaxThreadCount: 1,
		}
	}

	flags := cmd.Flags()
	changed := false
	if flags.Changed("enabled-by-default") {
		cfg.EnabledByDefault = prefillEnabled
		changed = true
	}
	if flags.Changed("duration-hours") {
		cfg.DurationHours = prefillDuration
		changed = true
	}
	if flags.Changed("threads") {
		cfg.MaxThreadCount = prefillThreads
		changed = true
	}

	if changed {
		if err := store.SetPrefillConfig(cmd.Context(), cfg); err != nil {
			return err
		}
		cfg, _ = store.PrefillConfig(svc)
	}

	fmt.Printf("service:            %s\n", cfg.Service)
	fmt.Printf("enabled by default: %t\n", cfg.EnabledByDefault)
	fmt.Printf("grant duration:     %dh\n", cfg.DurationHours)
	fmt.Printf("max threads:        %d\n", cfg.MaxThreadCount)
	return nil
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
