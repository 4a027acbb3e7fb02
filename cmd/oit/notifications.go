package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/officetracker/oit/internal/cache"
	"github.com/officetracker/oit/internal/config"
	"github.com/officetracker/oit/internal/debug"
	"github.com/officetracker/oit/internal/notify"
	"github.com/officetracker/oit/internal/types"
	"github.com/officetracker/oit/internal/ui"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notif"},
	GroupID: "notify",
	Short:   "List, read and watch notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications and the unread count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		unreadOnly, _ := cmd.Flags().GetBool("unread")
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx := commandContext()

		list, err := a.tracker.Notifications(ctx)
		if err != nil {
			return err
		}
		unread, err := a.tracker.UnreadCount(ctx)
		if err != nil {
			return err
		}
		if unreadOnly {
			var keep []types.Notification
			for _, n := range list {
				if !n.Read {
					keep = append(keep, n)
				}
			}
			list = keep
		}
		if list == nil {
			list = []types.Notification{}
		}

		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]any{"unread": unread, "notifications": list})
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %d unread\n\n", ui.RenderCategory("Notifications"), unread)
		if len(list) == 0 {
			fmt.Fprintln(w, "Nothing here")
			return nil
		}
		printNotifications(w, list)
		return nil
	},
}

func printNotifications(w io.Writer, list []types.Notification) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, n := range list {
		fmt.Fprintf(tw, "%s\t%d\t#%d\t%s\t%s\t%s\n",
			ui.RenderReadMarker(n.Read), n.ID, n.IssueID, notificationLabel(n.Type), n.Message, ui.RenderMuted(ui.RelativeTime(n.CreatedAt)))
	}
	_ = tw.Flush()
}

func notificationLabel(t types.NotificationType) string {
	switch t {
	case types.NotificationUpvote:
		return "vote"
	case types.NotificationComment:
		return "comment"
	case types.NotificationStatusChange:
		return "status"
	}
	return string(t)
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read <notification-id>",
	Short: "Mark one notification as read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("notification", args[0])
		if err != nil {
			return err
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		ctx := commandContext()

		// Loading the list first lets an already-read notification leave the
		// unread count alone.
		if _, err := a.tracker.Notifications(ctx); err != nil {
			return err
		}
		if err := a.tracker.MarkRead(ctx, id); err != nil {
			return err
		}
		unread, _ := cache.Lookup[int](a.store, cache.UnreadCountKey{})
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]any{"id": id, "unread": unread})
		}
		printNormal(cmd, "%s Marked notification %d as read (%d unread)\n", ui.RenderPass(ui.IconPass), id, unread)
		return nil
	},
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification as read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.tracker.MarkAllRead(commandContext()); err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(cmd.OutOrStdout(), map[string]any{"unread": 0})
		}
		printNormal(cmd, "%s All notifications marked as read\n", ui.RenderPass(ui.IconPass))
		return nil
	},
}

var notificationsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print notifications as they arrive",
	Long: `Subscribe to the push channel and print notifications as they arrive.
Stops on Ctrl+C. The subscription restarts when the signed-in user changes
or the config file is edited.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()
		return watchNotifications(cmd, a)
	},
}

func watchNotifications(cmd *cobra.Command, a *app, opts ...notify.Option) error {
	ctx := commandContext()
	w := cmd.OutOrStdout()

	if _, err := a.tracker.Notifications(ctx); err != nil {
		return err
	}

	arrived := make(chan types.Notification, 16)
	unsubscribe := a.store.Subscribe(func(k cache.Key) {
		if k.Kind() != cache.KindNotifications {
			return
		}
		list, ok := cache.Lookup[[]types.Notification](a.store, cache.NotificationsKey{})
		if ok && len(list) > 0 {
			select {
			case arrived <- list[0]:
			default:
			}
		}
	})
	defer unsubscribe()

	opts = append(opts, notify.OnError(func(err error) {
		debug.Logf("push: %v\n", err)
	}))
	mgr, svc := a.newSession(opts...)
	defer svc.Stop()

	status, err := mgr.Refresh(ctx)
	if err != nil {
		return err
	}
	if !status.Authenticated {
		return fmt.Errorf("not signed in: %w", errNotSignedIn)
	}

	reload := make(chan struct{}, 1)
	if config.Watch(func(path string) {
		debug.Logf("config: %s changed\n", path)
		select {
		case reload <- struct{}{}:
		default:
		}
	}) {
		debug.Logf("watching %s\n", config.ConfigFileUsed())
	}

	printNormal(cmd, "Watching notifications for %s (Ctrl+C to stop)\n", status.User.FullName)
	seen := int64(-1)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-reload:
			if _, err := mgr.Refresh(ctx); err != nil {
				WarnError("refreshing session: %v", err)
			}
		case n := <-arrived:
			if n.ID == seen {
				continue
			}
			seen = n.ID
			if jsonOutput {
				if err := outputJSON(w, n); err != nil {
					return err
				}
				continue
			}
			printNotifications(w, []types.Notification{n})
		}
	}
}

var errNotSignedIn = errors.New("session is not authenticated")

func init() {
	notificationsListCmd.Flags().Bool("unread", false, "Only unread notifications")
	notificationsCmd.AddCommand(notificationsListCmd, notificationsReadCmd, notificationsReadAllCmd, notificationsWatchCmd)
	rootCmd.AddCommand(notificationsCmd)
}
