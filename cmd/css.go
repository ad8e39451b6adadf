package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/denysvitali/minify-runner/internal/models"
)

var cssCmd = &cobra.Command{
	Use:   "css [path]",
	Short: "Minify CSS files with csso",
	Long: `Minify a single CSS file, or every CSS file under the root directory that is not
already minified. Output is written next to the source as <name>.min.css.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMinify(models.KindCSS),
}

func init() {
	rootCmd.AddCommand(cssCmd)

	cssCmd.Flags().String("tool", "csso", "CSS minifier executable")
	_ = viper.BindPFlag("minify.css.tool", cssCmd.Flags().Lookup("tool"))
}
