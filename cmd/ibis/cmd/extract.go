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
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/ibis/internal/utils"
	"github.com/blacktop/ibis/pkg/iboot"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringP("output", "o", "", "Folder to extract files to")
	extractCmd.MarkFlagDirname("output")
	viper.BindPFlag("extract.output", extractCmd.Flags().Lookup("output"))
}

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:     "extract <FILE>",
	Aliases: []string{"e"},
	Short:   "Extract the LZFSE compressed firmwares embedded in an iBoot",
	Example: heredoc.Doc(`
		# Dump the embedded SMC/ANS firmwares into the current directory
		❯ ibis extract iBoot-13822.42.2-v53ap.RELEASE
		# Dump them into a folder
		❯ ibis extract iBoot-13822.42.2-v53ap.RELEASE -o /tmp/fw`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}

		output := viper.GetString("extract.output")

		src, err := iboot.Open(filepath.Clean(args[0]))
		if err != nil {
			return err
		}
		defer src.Close()

		payloads, err := iboot.Payloads(src)
		if err != nil {
			return err
		}
		if len(payloads) == 0 {
			log.Warn("No embedded firmwares found")
			return nil
		}

		if output != "" {
			if err := utils.EnsureDir(output); err != nil {
				return err
			}
		}

		log.Infof("Found %d embedded firmwares", len(payloads))
		for _, p := range payloads {
			fname := filepath.Join(output, p.Name)
			utils.Indent(log.Info, 2)(fmt.Sprintf("Dumping %s (%s @ %#x)", fname, humanize.IBytes(uint64(len(p.Data))), p.Offset))
			if err := os.WriteFile(fname, p.Data, 0o660); err != nil {
				return fmt.Errorf("failed to write file %s: %w", fname, err)
			}
		}
		return nil
	},
}
