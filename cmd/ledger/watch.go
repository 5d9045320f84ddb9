package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/amqp"
	"ledger/internal/cli"
)

func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print ledger change events as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.ledger.Events == nil {
				return errors.New("watch needs a reachable broker; set AMQP_URL")
			}
			ctx, stop := cli.ShutdownContext(cmd.Context(), a.logger)
			defer stop()

			out := cmd.OutOrStdout()
			err := a.ledger.Events.Watch(ctx, func(e *amqp.LedgerEvent) error {
				ids := make([]string, len(e.IDs))
				for i, id := range e.IDs {
					ids[i] = fmt.Sprint(id)
				}
				_, err := fmt.Fprintf(out, "%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Kind, strings.Join(ids, ","))
				return err
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
