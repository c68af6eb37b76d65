package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewAskCmd creates the question answering command.
func NewAskCmd() *cobra.Command {
	var brief, humanize bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a drug question grounded in the knowledge graph",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			question := strings.Join(args, " ")

			var answer string
			if brief {
				resp, err := cliCtx.Client.Assistant().Chatbot(ctx, question)
				if err != nil {
					return err
				}
				answer = resp.Answer
			} else {
				resp, err := cliCtx.Client.Assistant().Copilot(ctx, question, humanize)
				if err != nil {
					return err
				}
				answer = resp.Answer
			}
			return PrintResult(cmd, answer)
		},
	}

	cmd.Flags().BoolVar(&brief, "brief", false, "answer in two to three sentences")
	cmd.Flags().BoolVar(&humanize, "humanize", false, "use a warmer conversational tone")
	return cmd
}

// NewInsightCmd creates the clinical summary command group, including the
// knowledge graph neighbourhood view.
func NewInsightCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insight",
		Short: "Model-generated clinical summaries and graph views",
	}

	cmd.AddCommand(newInsightSummaryCmd(), newInsightGraphCmd())
	return cmd
}

func newInsightSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary <drug>",
		Short: "Generate a structured clinical summary for one drug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			resp, err := cliCtx.Client.Assistant().Insight(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, resp)
		},
	}
}

func newInsightGraphCmd() *cobra.Command {
	var maxNodes int

	cmd := &cobra.Command{
		Use:   "graph <drug>",
		Short: "Show the knowledge-graph neighbourhood of one drug",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			resp, err := cliCtx.Client.Assistant().Graph(ctx, args[0], maxNodes)
			if err != nil {
				return err
			}
			if strings.EqualFold(cliCtx.OutputFormat, "json") {
				return PrintResult(cmd, resp)
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "%s (%d nodes, %d edges)\n", resp.Drug, len(resp.Nodes), len(resp.Edges))
			for _, e := range resp.Edges {
				fmt.Fprintf(&sb, "  %s -[%s]-> %s\n", e.From, e.Relation, e.To)
			}
			return PrintResult(cmd, strings.TrimRight(sb.String(), "\n"))
		},
	}

	cmd.Flags().IntVar(&maxNodes, "max-nodes", 0, "maximum graph nodes (0 = server default)")
	return cmd
}
