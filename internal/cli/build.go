package geoassist

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/geoassist/internal/district"
	"github.com/mwiater/geoassist/internal/geo"
	"github.com/mwiater/geoassist/internal/raster"
)

// buildCmd turns the boundary file and both rasters into the district JSON.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the per-district JSON summary from boundaries and rasters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfig()
		classes, err := cfg.ClassTable()
		if err != nil {
			return err
		}
		epsg := geo.EPSG(cfg.RasterEPSG)
		records, err := district.BuildFiles(district.Options{
			DistrictsPath: cfg.DistrictsPath,
			NameFields:    cfg.NameFields(),
			DEMPath:       cfg.DEMPath,
			LULCPath:      cfg.LULCPath,
			DEM:           raster.Options{NoData: cfg.DEMNoData, EPSG: epsg},
			LULC:          raster.Options{NoData: cfg.LULCNoData, EPSG: epsg},
			Classes:       classes,
		})
		if err != nil {
			return err
		}
		if err := district.Write(cfg.DistrictDataPath, records); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		missing := 0
		for _, r := range records {
			if !r.HasElevation() || len(r.LULCClasses) == 0 {
				missing++
			}
		}
		fmt.Fprintf(out, "%s Wrote %d districts to %s\n", okMark("✓"), len(records), cfg.DistrictDataPath)
		if missing > 0 {
			fmt.Fprintf(out, "%s %d districts have missing raster data (see log)\n", warnMark("!"), missing)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().String("out", "", "write the district JSON here instead of districtDataPath")
	_ = viper.BindPFlag("districtDataPath", buildCmd.Flags().Lookup("out"))
	rootCmd.AddCommand(buildCmd)
}
