package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sells-group/dropaudit/internal/batch"
	"github.com/sells-group/dropaudit/internal/normalize"
	"github.com/sells-group/dropaudit/internal/ocr"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "Extract EVM addresses from local files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pdf, err := ocr.NewExtractor(cfg.OCR)
		if err != nil {
			return err
		}

		files := make([]batch.File, 0, len(args))
		for _, path := range args {
			data, err := os.ReadFile(path)
			files = append(files, batch.File{Name: filepath.Base(path), Data: data, Err: err})
		}

		proc := batch.NewProcessor(normalize.New(pdf), cfg.Server.MaxFiles)
		res, err := proc.Process(cmd.Context(), files)
		if err != nil {
			return err
		}

		if extractJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		for _, addr := range res.Addresses {
			cmd.Println(addr)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "emit the full result as JSON")
	rootCmd.AddCommand(extractCmd)
}
