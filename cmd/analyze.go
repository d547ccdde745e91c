package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/takeoff-cli/internal/docstore"
	"github.com/sells-group/takeoff-cli/internal/jobs"
	"github.com/sells-group/takeoff-cli/internal/model"
	"github.com/sells-group/takeoff-cli/internal/report"
)

var (
	analyzeMaterials []string
	analyzeTaxRate   float64
	analyzeOut       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <blueprint>",
	Short: "Analyze a blueprint document and print a cost estimate",
	Long: "Runs the full takeoff on a local blueprint file (.pdf or .txt): extracts " +
		"geometry, computes material quantities, resolves prices and prints an " +
		"itemized estimate. Use --out to also write a CSV or XLSX report.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := zap.L().Named("analyze")

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		handle, err := storeDocument(cmd, e.docs, args[0])
		if err != nil {
			return err
		}

		// An omitted --materials flag means the full catalog.
		materials := analyzeMaterials
		if len(materials) == 0 {
			materials = e.catalog.IDs()
		}

		req := model.AnalysisRequest{
			DocumentHandle: handle,
			MaterialIDs:    materials,
			TaxRate:        analyzeTaxRate,
		}
		if err := jobs.ValidateRequest(req); err != nil {
			return err
		}

		log.Info("starting analysis", zap.String("document", args[0]))

		result, err := e.pipeline.Run(ctx, req, func(p model.Progress) {
			log.Debug("progress",
				zap.String("stage", p.Stage),
				zap.Int("percent", p.Percent))
		})
		if err != nil {
			return eris.Wrap(err, "cmd: analysis failed")
		}

		cmd.Print(report.Summary(result))

		if analyzeOut != "" {
			if err := writeReport(analyzeOut, result); err != nil {
				return err
			}
			cmd.Printf("\nReport written to %s\n", analyzeOut)
		}

		return nil
	},
}

// storeDocument copies a local file into the document store so the pipeline
// can stage it, enforcing the same size and extension rules as uploads.
func storeDocument(cmd *cobra.Command, docs docstore.Storage, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "cmd: open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", eris.Wrapf(err, "cmd: stat %s", path)
	}

	stored, err := docs.Store(cmd.Context(), filepath.Base(path), f, info.Size())
	if err != nil {
		return "", eris.Wrap(err, "cmd: store document")
	}
	return stored.Handle, nil
}

func writeReport(path string, result *model.AnalysisResult) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return report.WriteXLSX(path, result)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "cmd: create %s", path)
		}
		defer f.Close()
		return report.WriteCSV(f, result)
	default:
		return eris.Errorf("unsupported report format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}

func init() {
	analyzeCmd.Flags().StringSliceVar(&analyzeMaterials, "materials", nil,
		"material IDs to estimate (default: full catalog)")
	analyzeCmd.Flags().Float64Var(&analyzeTaxRate, "tax-rate", 0,
		"tax rate override, e.g. 0.12 (default: configured rate)")
	analyzeCmd.Flags().StringVar(&analyzeOut, "out", "",
		"write a report to this path (.csv or .xlsx)")

	rootCmd.AddCommand(analyzeCmd)
}
