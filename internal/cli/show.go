// internal/cli/show.go
package geoassist

import (
	"fmt"

	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/geoassist/internal/appconfig"
	"github.com/mwiater/geoassist/internal/district"
	"github.com/mwiater/geoassist/internal/query"
	"github.com/mwiater/geoassist/internal/suitability"
)

// showCmd represents the 'show' command group for displaying resources.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group commands for displaying resources",
	Long:  `The 'show' command groups subcommands that display configuration and district data.`,
}

var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the config file is loaded properly and overridden by flags and environment accordingly.`,
	Run: func(cmd *cobra.Command, args []string) {
		appconfig.ShowConfig(cmd.OutOrStdout(), viper.ConfigFileUsed(), getConfig())
	},
}

// showDistrictCmd prints one district record and how each rule judges it.
var showDistrictCmd = &cobra.Command{
	Use:   "district <name>",
	Short: "Show the summary of one district",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		records, err := district.Read(cfg.DistrictDataPath)
		if err != nil {
			return err
		}
		name := args[0]
		for _, a := range args[1:] {
			name += " " + a
		}
		rec, ok := district.NewCollection(records).Lookup(name)
		if !ok {
			return fmt.Errorf("district %q not found in %s", name, cfg.DistrictDataPath)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render(rec.Name))
		fmt.Fprintln(out, query.FormatDistrict(query.Answer{District: &rec}))
		fmt.Fprintln(out)
		for _, k := range suitability.Kinds {
			mark := failMark("✗")
			if k.Evaluate(rec) {
				mark = okMark("✓")
			}
			fmt.Fprintf(out, "%s %s\n", mark, k.Label())
		}

		if DebugEnabled() {
			fmt.Fprintln(out)
			fmt.Fprintln(out, suitability.Breakdown(rec).String())
			pp.Fprintln(out, rec)
		}
		return nil
	},
}

func init() {
	showCmd.AddCommand(showConfigCmd)
	showCmd.AddCommand(showDistrictCmd)
	rootCmd.AddCommand(showCmd)
}
