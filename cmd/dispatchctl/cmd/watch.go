package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shenikar/fireguard_dispatch/internal/client"
	"github.com/shenikar/fireguard_dispatch/internal/events"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

var (
	watchTopics string
	watchCursor uint64
	watchJSON   bool

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Follow the live event stream.",
		Long: `Follow the live event stream over a websocket and keep a local replica.

Each event is printed with the result of applying it: applied, duplicate or gap.
On a gap the entity is reloaded from the API. When the server drops the
subscription the stream is resumed from the last seen cursor; when the cursor
has expired a full snapshot is loaded first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			topics, err := parseTopics(watchTopics)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			out := cmd.OutOrStdout()
			w := client.NewWatcher(c, topics, newLogger(), func(ev models.Event, result events.ApplyResult) {
				if watchJSON {
					line, _ := json.Marshal(struct {
						models.Event
						Result string `json:"result"`
					}{ev, result.String()})
					_, _ = fmt.Fprintln(out, string(line))
					return
				}
				_, _ = fmt.Fprintf(out, "%d\t%s\t%s\tv%d\t%s\n", ev.Seq, ev.Topic, ev.EntityID, ev.Version, result)
			})
			return w.Run(ctx, watchCursor)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	watchCmd.Flags().StringVarP(&watchTopics, "topics", "t", "", "comma-separated topics (default all)")
	watchCmd.Flags().Uint64VarP(&watchCursor, "cursor", "c", 0, "resume after this seq")
	watchCmd.Flags().BoolVar(&watchJSON, "json", false, "print events as JSON lines")
}
