package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/zoning-audit/internal/raster"
)

var rasterinfoCmd = &cobra.Command{
	Use:   "rasterinfo <file>",
	Short: "Print GeoTIFF raster metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := raster.Open(args[0])
		if err != nil {
			return err
		}
		printRasterInfo(os.Stdout, args[0], g)
		return nil
	},
}

func printRasterInfo(out io.Writer, path string, g *raster.Grid) {
	fmt.Fprintf(out, "%s\n", path)
	fmt.Fprintf(out, "  size:   %d x %d pixels\n", g.Width, g.Height)
	fmt.Fprintf(out, "  origin: (%g, %g)\n", g.OriginX, g.OriginY)
	fmt.Fprintf(out, "  scale:  %g x %g\n", g.ScaleX, g.ScaleY)
	if g.EPSG != 0 {
		fmt.Fprintf(out, "  crs:    EPSG:%d\n", g.EPSG)
	} else {
		fmt.Fprintf(out, "  crs:    unknown\n")
	}
	if g.HasNoData {
		fmt.Fprintf(out, "  nodata: %g\n", g.NoData)
	}
	fmt.Fprintf(out, "  valid samples: %d\n", len(g.ValidSamples()))
}

func init() {
	rootCmd.AddCommand(rasterinfoCmd)
}
