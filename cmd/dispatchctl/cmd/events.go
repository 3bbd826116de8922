package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	eventsTopics string
	eventsCursor uint64
	eventsLimit  int

	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "Read one page of the change log.",
		Long:  "Read events after --cursor and print them as JSON lines. The last line is the cursor for the next call.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			topics, err := parseTopics(eventsTopics)
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}

			evs, next, err := c.ReadEvents(cmd.Context(), topics, eventsCursor, eventsLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, ev := range evs {
				line, err := json.Marshal(ev)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(out, string(line))
			}
			_, _ = fmt.Fprintf(out, "{\"cursor\":%d}\n", next)
			return nil
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print dispatch dashboard statistics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			raw, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	eventsCmd.Flags().StringVarP(&eventsTopics, "topics", "t", "", "comma-separated topics (default all)")
	eventsCmd.Flags().Uint64VarP(&eventsCursor, "cursor", "c", 0, "read after this seq")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "l", 100, "page size")
}
