package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/allendavis-developer/cg-request/internal/sites"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List supported marketplaces",
	Long: `List the marketplaces this build knows how to search and extract.

Additional sites can be registered from a YAML file:
  cg-request sites --load my-sites.yaml`,
	RunE: runSites,
}

func init() {
	rootCmd.AddCommand(sitesCmd)
	sitesCmd.Flags().String("load", "", "also load site configs from a YAML file")
}

func runSites(cmd *cobra.Command, args []string) error {
	registry := sites.NewRegistry()

	if path, _ := cmd.Flags().GetString("load"); path != "" {
		if err := registry.LoadFile(path); err != nil {
			logError("%v", err)
			return err
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDOMAINS\tSEARCH")
	for _, cfg := range registry.Configs() {
		searchable := "browser"
		if cfg.Search.URLTemplate != "" {
			searchable = "browser, static"
		}
		fmt.Fprintf(w, "%s\t%v\t%s\n", cfg.Name, cfg.Domains, searchable)
	}
	return w.Flush()
}
