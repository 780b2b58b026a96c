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
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/arm64-cgo/disassemble"
	"github.com/blacktop/ibis/internal/colors"
	"github.com/blacktop/ibis/internal/utils"
	"github.com/blacktop/ibis/pkg/iboot"
	"github.com/blacktop/ibis/pkg/loader"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(funcsCmd)
	funcsCmd.Flags().IntP("disass", "d", 0, "Disassemble the first N instructions of each function")
	funcsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	viper.BindPFlag("funcs.disass", funcsCmd.Flags().Lookup("disass"))
	viper.BindPFlag("funcs.json", funcsCmd.Flags().Lookup("json"))
}

func disass(src iboot.Source, plan *loader.Plan, addr uint64, count int) error {
	var results [1024]byte

	off, ok := plan.FileOffset(addr)
	if !ok {
		return fmt.Errorf("%#x is not file backed", addr)
	}
	size := min(int64(count*4), src.Size()-int64(off))
	data, err := src.Read(int64(off), int(size))
	if err != nil {
		return fmt.Errorf("failed to read instructions @ %#x: %w", addr, err)
	}

	for i := 0; i+4 <= len(data); i += 4 {
		instrValue := binary.LittleEndian.Uint32(data[i:])
		instruction, err := disassemble.Disassemble(addr, instrValue, &results)
		if err != nil {
			fmt.Printf("%#08x:  %s\t.long\t%#-18x ; (%s)\n", addr, disassemble.GetOpCodeByteString(instrValue), instrValue, err.Error())
		} else {
			fmt.Printf("%#08x:  %s\t%s\n", addr, disassemble.GetOpCodeByteString(instrValue), instruction)
		}
		addr += 4
	}
	return nil
}

// funcsCmd represents the funcs command
var funcsCmd = &cobra.Command{
	Use:     "funcs <FILE>",
	Aliases: []string{"f"},
	Short:   "List function starts found by scanning TEXT for PACIBSP",
	Example: heredoc.Doc(`
		# List the function starts of an iBoot
		❯ ibis funcs iBoot-13822.42.2-v53ap.RELEASE
		# Disassemble the prologue of each function
		❯ ibis funcs --disass 8 iBoot-13822.42.2-v53ap.RELEASE`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}

		// flags
		count := viper.GetInt("funcs.disass")
		asJSON := viper.GetBool("funcs.json")

		if count < 0 {
			return fmt.Errorf("--disass must not be negative")
		}

		plan, src, err := buildPlan(args[0])
		if err != nil {
			return err
		}
		defer src.Close()

		if plan.Fallback {
			utils.Warnings(plan.Warnings)
			return fmt.Errorf("no TEXT segment to scan")
		}

		if asJSON {
			dat, err := json.Marshal(plan.Functions)
			if err != nil {
				return fmt.Errorf("failed to marshal functions: %v", err)
			}
			fmt.Println(string(dat))
			return nil
		}

		log.Infof("Found %d functions", len(plan.Functions))
		addrColor := colors.BoldYellow().SprintFunc()
		for i, addr := range plan.Functions {
			name := fmt.Sprintf("sub_%x", addr)
			if addr == plan.Entry {
				name = plan.EntryName
			}
			if count == 0 {
				fmt.Printf("%s  %s\n", addrColor(fmt.Sprintf("%#x", addr)), name)
				continue
			}
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("%s:\n", colors.HiMagenta().Sprint(name))
			if err := disass(src, plan, addr, count); err != nil {
				return err
			}
		}
		return nil
	},
}
