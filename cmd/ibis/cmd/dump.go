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

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/ibis/internal/utils"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().Uint64P("size", "s", 0x100, "Number of bytes to dump")
	viper.BindPFlag("dump.size", dumpCmd.Flags().Lookup("size"))
}

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <FILE> <ADDR>",
	Short: "Hexdump the file bytes mapped at a virtual address",
	Example: heredoc.Doc(`
		# Dump the start of CONST
		❯ ibis dump SecureROM-8104.0.0.201.4-t8130si 0x100057bc0 --size 64`),
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}

		addr, err := cast.ToUint64E(args[1])
		if err != nil {
			return fmt.Errorf("invalid address %s: %w", args[1], err)
		}
		size := viper.GetUint64("dump.size")
		if size == 0 {
			return fmt.Errorf("--size must be greater than 0")
		}

		plan, src, err := buildPlan(args[0])
		if err != nil {
			return err
		}
		defer src.Close()

		if plan.Fallback {
			utils.Warnings(plan.Warnings)
		}

		seg, ok := plan.Segment(addr)
		if !ok {
			return fmt.Errorf("%#x is not mapped", addr)
		}
		off, ok := plan.FileOffset(addr)
		if !ok {
			return fmt.Errorf("%#x is in %s but is not file backed", addr, seg.Name)
		}
		// stay inside the file backed part of the segment
		size = min(size, *seg.FileOffset+seg.FileSize-off)

		data, err := src.Read(int64(off), int(size))
		if err != nil {
			return fmt.Errorf("failed to read %#x bytes @ %#x: %w", size, addr, err)
		}
		log.WithField("segment", seg.Name).Debugf("Dumping file offset %#x", off)
		fmt.Print(utils.HexDump(data, addr))
		return nil
	},
}
