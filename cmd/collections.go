package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dropaudit/internal/fileparse"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Manage named address collections",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections with their membership counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		colls, err := st.ListCollections(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, colls)
	},
}

var collectionDescription string

var collectionsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		coll, err := st.CreateCollection(cmd.Context(), args[0], collectionDescription)
		if err != nil {
			return err
		}
		return printJSON(cmd, coll)
	},
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a collection and its memberships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		return st.DeleteCollection(cmd.Context(), args[0])
	},
}

var collectionsImportCmd = &cobra.Command{
	Use:   "import <id> <file>",
	Short: "Parse an address-list file and add its addresses to a collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		id := args[0]
		if _, err := st.GetCollection(cmd.Context(), id); err != nil {
			return err
		}

		data, err := os.ReadFile(args[1])
		if err != nil {
			return eris.Wrapf(err, "read file %s", args[1])
		}
		parsed, err := fileparse.Parse(filepath.Base(args[1]), data)
		if err != nil {
			return err
		}

		addrs := make([]string, 0, len(parsed.Addresses))
		for _, rec := range parsed.Addresses {
			addrs = append(addrs, rec.Address)
		}

		added := 0
		if len(addrs) > 0 {
			added, err = st.AddAddresses(cmd.Context(), id, addrs)
			if err != nil {
				return err
			}
		}

		zap.L().Info("import complete",
			zap.String("collection", id),
			zap.Int("added", added),
			zap.Int("skipped", len(addrs)-added),
			zap.Int("invalid", len(parsed.Errors)),
		)
		return nil
	},
}

var collectionsExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Print a collection's addresses, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if _, err := st.GetCollection(cmd.Context(), args[0]); err != nil {
			return err
		}
		addrs, err := st.ListAddresses(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, addr := range addrs {
			cmd.Println(addr)
		}
		return nil
	},
}

func init() {
	collectionsCreateCmd.Flags().StringVar(&collectionDescription, "description", "", "collection description")
	collectionsCmd.AddCommand(collectionsListCmd, collectionsCreateCmd, collectionsDeleteCmd, collectionsImportCmd, collectionsExportCmd)
	rootCmd.AddCommand(collectionsCmd)
}
