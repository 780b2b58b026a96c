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
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/ibis/internal/colors"
	"github.com/blacktop/ibis/internal/config"
	"github.com/blacktop/ibis/internal/utils"
	"github.com/blacktop/ibis/pkg/iboot"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(infoCmd)
}

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:     "info <FILE>",
	Aliases: []string{"i"},
	Short:   "Show image identity, hash and region sizes",
	Example: heredoc.Doc(`
		❯ ibis info SecureROM-1873.0.0.1.19-t8010si`),
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

		path := filepath.Clean(args[0])
		sum, err := utils.Sha256(path)
		if err != nil {
			return err
		}

		src, err := iboot.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		ctx, err := iboot.DetectContext(src)
		if err != nil {
			return fmt.Errorf("failed to identify %s: %w", path, err)
		}

		bold := colors.Bold().SprintFunc()
		fmt.Printf("%s  %s\n", bold("App:    "), ctx.App)
		fmt.Printf("%s  %s\n", bold("Version:"), ctx.Version)
		fmt.Printf("%s  %s\n", bold("Target: "), ctx.Target)
		fmt.Printf("%s  %s (%d bytes)\n", bold("Size:   "), humanize.IBytes(uint64(src.Size())), src.Size())
		fmt.Printf("%s  %s\n", bold("SHA256: "), sum)

		layout, err := iboot.DetectLayout(ctx, src, conf.Options()...)
		if err != nil {
			log.WithError(err).Warn("Failed to determine memory layout")
			return nil
		}

		fmt.Println()
		for _, nr := range layout.Regions() {
			fmt.Printf("%s%s\n", regionLine(nr), colors.Faint().Sprintf("  (%s)", humanize.IBytes(nr.Size())))
		}
		if layout.Bss == nil {
			log.Warn("No BSS bounds in the layout table")
		}
		return nil
	},
}
