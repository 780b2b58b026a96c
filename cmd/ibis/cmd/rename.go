/*
Copyright © 2018-2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	scancmd "github.com/blacktop/ibis/internal/commands/scan"
	"github.com/blacktop/ibis/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(renameCmd)
	renameCmd.Flags().BoolP("dry-run", "d", false, "Print the renames without touching any file")
	viper.BindPFlag("rename.dry-run", renameCmd.Flags().Lookup("dry-run"))
}

// renameCmd represents the rename command
var renameCmd = &cobra.Command{
	Use:   "rename <DIR>",
	Short: "Rename every identified file to {app}-{version}-{target}-{sha}",
	Example: heredoc.Doc(`
		# See what would be renamed
		❯ ibis rename ~/firmware --dry-run
		   • iboot.bin -> iBoot-11881.140.96-t6030si-3fa9c02`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}

		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}

		results, err := runScan(&scancmd.Config{
			Dir:          args[0],
			Parallel:     conf.Scan.Parallel,
			Exclude:      conf.Scan.Exclude,
			IdentifyOnly: true,
			Progress:     true,
		})
		if err != nil {
			return err
		}

		renames := scancmd.PlanRenames(results)
		if len(renames) == 0 {
			log.Info("Nothing to rename")
			return nil
		}
		return scancmd.ApplyRenames(renames, viper.GetBool("rename.dry-run"))
	},
}
