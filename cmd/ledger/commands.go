package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ledger/internal/core"
	"ledger/internal/export"
)

func addCmd(a *app) *cobra.Command {
	var date, amount, description string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a new expense",
		Example: `  ledger add --amount 12.5 --description lunch
  ledger add --date 2024-01-05 --amount 1,200 --description rent`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.ledger.Store.Add(cmd.Context(), core.Draft{
				Date:        date,
				Amount:      amount,
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d: %s %s %s\n",
				e.ID, e.Date, core.FormatAmount(a.cfg.CurrencySymbol, e.Amount), e.Description)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", time.Now().Format(core.DateLayout), "date of the expense (YYYY-MM-DD)")
	cmd.Flags().StringVar(&amount, "amount", "", "amount, e.g. 12.50 or 1,200")
	cmd.Flags().StringVar(&description, "description", "", "what the money was spent on")
	return cmd
}

func listCmd(a *app) *cobra.Command {
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := a.ledger.Store.Load(cmd.Context()).Paginate(page, a.cfg.PageSize)
			out := cmd.OutOrStdout()
			if err := printExpenses(out, p.Items, a.cfg.CurrencySymbol, false); err != nil {
				return err
			}
			fmt.Fprintf(out, "Page %d of %d (%d expenses)\n", p.Number, p.TotalPages, p.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	return cmd
}

func searchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search TERM",
		Short: "Find expenses whose date or description contains TERM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches := a.ledger.Store.Load(cmd.Context()).SearchByText(args[0])
			if err := printExpenses(cmd.OutOrStdout(), matches, a.cfg.CurrencySymbol, false); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Total Records: %d\n", len(matches))
			return err
		},
	}
}

func onCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "on DATE",
		Short: "Show expenses recorded for DATE, numbered for delete --index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := a.ledger.Store.Load(cmd.Context()).FilterByExactDate(args[0])
			return printExpenses(cmd.OutOrStdout(), view, a.cfg.CurrencySymbol, true)
		},
	}
}

func deleteCmd(a *app) *cobra.Command {
	var (
		date    string
		indices []int
	)

	cmd := &cobra.Command{
		Use:   "delete [ID...]",
		Short: "Delete expenses by id, or by position in the list shown by 'on'",
		Example: `  ledger delete 1704412800000
  ledger delete --date 2024-01-05 --index 0,2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				n   int
				err error
			)
			switch {
			case date != "" && len(args) > 0:
				return errors.New("give ids or --date with --index, not both")
			case date != "":
				if len(indices) == 0 {
					return errors.New("--index is required with --date")
				}
				view := a.ledger.Store.Load(ctx).FilterByExactDate(date)
				n, err = a.ledger.Store.DeleteAt(ctx, view, indices)
			case len(args) > 0:
				ids := make([]int64, 0, len(args))
				for _, arg := range args {
					id, perr := strconv.ParseInt(arg, 10, 64)
					if perr != nil {
						return fmt.Errorf("invalid id %q", arg)
					}
					ids = append(ids, id)
				}
				n, err = a.ledger.Store.Delete(ctx, ids...)
			default:
				return errors.New("nothing to delete: give ids or --date with --index")
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expense(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "date whose list the --index positions refer to")
	cmd.Flags().IntSliceVar(&indices, "index", nil, "positions in the 'on DATE' list")
	return cmd
}

func copyCmd(a *app) *cobra.Command {
	var (
		from, to string
		stdout   bool
	)

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy expenses in a date range to the clipboard as TSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from == "" || to == "" {
				return errors.New("--from and --to are required")
			}
			view := a.ledger.Store.Load(cmd.Context()).FilterByDateRange(from, to)
			if len(view) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No data found for the selected date range")
				return nil
			}
			if stdout {
				_, err := io.WriteString(cmd.OutOrStdout(), export.TSV(view, a.cfg.CurrencySymbol))
				return err
			}
			n, err := export.Copy(export.SystemClipboard{}, view, a.cfg.CurrencySymbol)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Copied %d expense(s) to the clipboard\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date, inclusive (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "print the TSV instead of using the clipboard")
	return cmd
}

func clearCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear the ledger without --yes")
			}
			if err := a.ledger.Store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Ledger cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm")
	return cmd
}

func printExpenses(w io.Writer, c core.Collection, symbol string, numbered bool) error {
	if len(c) == 0 {
		_, err := fmt.Fprintln(w, "No expenses")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if numbered {
		fmt.Fprintln(tw, "#\tID\tDATE\tAMOUNT\tDESCRIPTION")
	} else {
		fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tDESCRIPTION")
	}
	for i, e := range c {
		if numbered {
			fmt.Fprintf(tw, "%d\t", i)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Date, core.FormatAmount(symbol, e.Amount), e.Description)
	}
	return tw.Flush()
}
