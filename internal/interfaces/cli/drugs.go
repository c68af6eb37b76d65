package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// drugTable adapts search results for table output.
type drugTable []drugtypes.DrugDTO

func (dt drugTable) TableHeaders() []string {
	return []string{"NAME", "FORMULA", "TARGET", "MAX PHASE", "SOURCE"}
}

func (dt drugTable) TableRows() [][]string {
	rows := make([][]string, 0, len(dt))
	for _, d := range dt {
		phase := ""
		if d.MaxPhase != nil {
			phase = strconv.Itoa(*d.MaxPhase)
		}
		rows = append(rows, []string{d.Name, d.Formula, d.Target, phase, d.Source})
	}
	return rows
}

// NewDrugsCmd creates the drugs command group.
func NewDrugsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drugs",
		Short: "Search, look up, and compare drugs",
	}

	cmd.AddCommand(
		newDrugsSearchCmd(),
		newDrugsGetCmd(),
		newDrugsNamesCmd(),
		newDrugsCompareCmd(),
	)

	return cmd
}

func newDrugsSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search drugs by name with fuzzy correction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			resp, err := cliCtx.Client.Drugs().Search(ctx, args[0], limit)
			if err != nil {
				return err
			}

			if resp.Corrected != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Showing results for %q\n", resp.Corrected)
			}
			if strings.EqualFold(cliCtx.OutputFormat, "table") {
				return PrintResult(cmd, drugTable(resp.Results))
			}
			return PrintResult(cmd, resp)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of results (0 = server default)")
	return cmd
}

func newDrugsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Show the full record for one drug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			dto, err := cliCtx.Client.Drugs().Get(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, dto)
		},
	}
}

func newDrugsNamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "names",
		Short: "List every known drug name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			names, err := cliCtx.Client.Drugs().Names(ctx)
			if err != nil {
				return err
			}
			if strings.EqualFold(cliCtx.OutputFormat, "json") {
				return PrintResult(cmd, names)
			}
			return PrintResult(cmd, strings.Join(names, "\n"))
		},
	}
}

func newDrugsCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <drug1> <drug2>",
		Short: "Compare two drugs property by property",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			resp, err := cliCtx.Client.Drugs().Compare(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			if strings.EqualFold(cliCtx.OutputFormat, "table") {
				return PrintResult(cmd, compareTable(resp.Points))
			}
			return PrintResult(cmd, resp)
		},
	}
}

type compareTable []drugtypes.ComparisonPoint

func (ct compareTable) TableHeaders() []string {
	return []string{"PROPERTY", "DRUG 1", "DRUG 2", "SUMMARY"}
}

func (ct compareTable) TableRows() [][]string {
	rows := make([][]string, 0, len(ct))
	for _, p := range ct {
		rows = append(rows, []string{p.Property, p.Value1, p.Value2, p.Summary})
	}
	return rows
}
