package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/denysvitali/minify-runner/internal/models"
)

var noSourceMap bool

var jsCmd = &cobra.Command{
	Use:   "js [path]",
	Short: "Minify JS files with terser",
	Long: `Compress and mangle a single JS file, or every JS file under the root directory
that is not already minified. Output is written next to the source as
<name>.min.js together with a source map.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMinify(models.KindJS),
}

func init() {
	rootCmd.AddCommand(jsCmd)

	jsCmd.Flags().String("tool", "terser", "JS minifier executable")
	jsCmd.Flags().String("source-map-root", "", "Root URL recorded in source maps of single-file runs")
	jsCmd.Flags().BoolVar(&noSourceMap, "no-source-map", false, "Do not generate source maps")

	_ = viper.BindPFlag("minify.js.tool", jsCmd.Flags().Lookup("tool"))
	_ = viper.BindPFlag("minify.js.source_map_root", jsCmd.Flags().Lookup("source-map-root"))
}
