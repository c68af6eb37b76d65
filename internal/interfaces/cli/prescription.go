package cli

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/medimatch/medimatch/pkg/client"
	rxtypes "github.com/medimatch/medimatch/pkg/types/prescription"
)

// NewPrescriptionCmd creates the prescription OCR command group.
func NewPrescriptionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prescription",
		Aliases: []string{"rx"},
		Short:   "Upload and inspect prescription scans",
	}

	cmd.AddCommand(
		newPrescriptionUploadCmd(),
		newPrescriptionGetCmd(),
		newPrescriptionInteractionsCmd(),
	)

	return cmd
}

func newPrescriptionUploadCmd() *cobra.Command {
	var mode string
	var async bool

	cmd := &cobra.Command{
		Use:   "upload <image-file>",
		Short: "Upload a prescription image for OCR extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			data, err := readFile(args[0])
			if err != nil {
				return err
			}
			contentType := mime.TypeByExtension(filepath.Ext(args[0]))
			if contentType == "" {
				return fmt.Errorf("cannot determine image type of %s; use .jpg, .png, or .webp", args[0])
			}

			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			dto, err := cliCtx.Client.Prescriptions().Upload(ctx, data, contentType, client.UploadOptions{
				Engine: rxtypes.Engine(mode),
				Async:  async,
			})
			if err != nil {
				return err
			}

			if async {
				PrintSuccess(cmd, fmt.Sprintf("prescription %s queued (status: %s)", dto.ID, dto.Status))
				return nil
			}
			return PrintResult(cmd, dto)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "OCR backend: hosted or gemini (default: server chooses)")
	cmd.Flags().BoolVar(&async, "async", false, "queue extraction instead of waiting")
	return cmd
}

func newPrescriptionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a prescription with its extracted medications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			dto, err := cliCtx.Client.Prescriptions().Get(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, dto)
		},
	}
}

func newPrescriptionInteractionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interactions <drug1> <drug2> [drug...]",
		Short: "Check a medication list for known drug-drug interactions",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd, cliCtx)
			defer cancel()

			resp, err := cliCtx.Client.Prescriptions().CheckInteractions(ctx, args)
			if err != nil {
				return err
			}

			if strings.EqualFold(cliCtx.OutputFormat, "json") {
				return PrintResult(cmd, resp)
			}
			if len(resp.Warnings) == 0 {
				return PrintResult(cmd, "No known interactions found.")
			}

			var sb strings.Builder
			for _, warn := range resp.Warnings {
				fmt.Fprintf(&sb, "[%s] %s + %s: %s\n", strings.ToUpper(warn.Severity), warn.Drug1, warn.Drug2, warn.Description)
			}
			return PrintResult(cmd, strings.TrimRight(sb.String(), "\n"))
		},
	}
}
