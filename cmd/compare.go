package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/dropaudit/internal/reconcile"
)

var compareCollectionID string

var compareCmd = &cobra.Command{
	Use:   "compare <eligible-file> [minted-file]",
	Short: "Reconcile an eligible address list against a minted set",
	Long:  "Diffs the eligible file against either a minted file or, with --collection, the membership of a stored collection. Every run writes a comparison audit.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		eligibleData, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read eligible file %s", args[0])
		}
		eligibleName := filepath.Base(args[0])

		rc := reconcile.New(st)

		switch {
		case compareCollectionID != "":
			if len(args) != 1 {
				return eris.New("pass either a minted file or --collection, not both")
			}
			result, err := rc.CompareCollection(cmd.Context(), compareCollectionID, eligibleName, eligibleData)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		case len(args) == 2:
			mintedData, err := os.ReadFile(args[1])
			if err != nil {
				return eris.Wrapf(err, "read minted file %s", args[1])
			}
			result, err := rc.CompareFiles(cmd.Context(), eligibleName, eligibleData, filepath.Base(args[1]), mintedData)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		default:
			return eris.New("a minted file or --collection is required")
		}
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	compareCmd.Flags().StringVar(&compareCollectionID, "collection", "", "compare against a stored collection instead of a minted file")
	rootCmd.AddCommand(compareCmd)
}
