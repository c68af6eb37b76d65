package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	drugtypes "github.com/medimatch/medimatch/pkg/types/drug"
)

// NewPredictCmd creates the target prediction command.
func NewPredictCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "predict <drug-name-or-smiles>",
		Short: "Predict likely protein targets via molecular similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			resp, err := cliCtx.Client.Molecules().PredictTargets(ctx, args[0], topK)
			if err != nil {
				return err
			}
			if strings.EqualFold(cliCtx.OutputFormat, "table") {
				return PrintResult(cmd, targetTable(resp.PredictedTargets))
			}
			return PrintResult(cmd, resp)
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "number of similar drugs to rank (0 = server default)")
	return cmd
}

type targetTable []drugtypes.PredictedTargetDTO

func (tt targetTable) TableHeaders() []string {
	return []string{"TARGET", "ORGANISM", "SUPPORT", "MAX SIM", "CONFIDENCE"}
}

func (tt targetTable) TableRows() [][]string {
	rows := make([][]string, 0, len(tt))
	for _, p := range tt {
		rows = append(rows, []string{
			p.Target,
			p.Organism,
			fmt.Sprintf("%d", p.SupportCount),
			fmt.Sprintf("%.3f", p.MaxSimilarity),
			fmt.Sprintf("%.3f", p.Confidence),
		})
	}
	return rows
}

// NewMolBlockCmd creates the MOL block rendering command.
func NewMolBlockCmd() *cobra.Command {
	var smiles, name string

	cmd := &cobra.Command{
		Use:   "molblock",
		Short: "Render a V2000 MOL block for a SMILES string or a drug name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if smiles == "" && name == "" {
				return fmt.Errorf("either --smiles or --name is required")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			resp, err := cliCtx.Client.Molecules().MolBlock(ctx, &drugtypes.MolBlockRequest{
				SMILES: smiles,
				Name:   name,
			})
			if err != nil {
				return err
			}
			if strings.EqualFold(cliCtx.OutputFormat, "json") {
				return PrintResult(cmd, resp)
			}
			return PrintResult(cmd, resp.MolBlock)
		},
	}

	cmd.Flags().StringVar(&smiles, "smiles", "", "SMILES string to render")
	cmd.Flags().StringVar(&name, "name", "", "known drug name to render")
	return cmd
}
