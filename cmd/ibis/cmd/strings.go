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
	"encoding/json"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/ibis/internal/colors"
	"github.com/blacktop/ibis/pkg/iboot"
	"github.com/blacktop/ibis/pkg/loader"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(stringsCmd)
	stringsCmd.Flags().IntP("min", "n", 4, "Minimum string length")
	stringsCmd.Flags().StringP("segment", "s", "", "Only print strings in this segment (TEXT, CONST, DATA)")
	stringsCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	viper.BindPFlag("strings.min", stringsCmd.Flags().Lookup("min"))
	viper.BindPFlag("strings.segment", stringsCmd.Flags().Lookup("segment"))
	viper.BindPFlag("strings.json", stringsCmd.Flags().Lookup("json"))
}

type segmentString struct {
	Segment string `json:"segment"`
	Address uint64 `json:"address"`
	iboot.String
}

// segmentStrings places each string in the segment that maps it. Strings
// outside every file backed segment are dropped.
func segmentStrings(plan *loader.Plan, strs []iboot.String, segment string) []segmentString {
	var out []segmentString
	for _, s := range strs {
		addr, seg, ok := plan.Address(uint64(s.Offset))
		if !ok {
			continue
		}
		if segment != "" && seg.Name != segment {
			continue
		}
		out = append(out, segmentString{Segment: seg.Name, Address: addr, String: s})
	}
	return out
}

// stringsCmd represents the strings command
var stringsCmd = &cobra.Command{
	Use:   "strings <FILE>",
	Short: "List printable strings with the segment and address they load at",
	Example: heredoc.Doc(`
		# Print the strings in CONST
		❯ ibis strings iBoot-13822.42.2-v53ap.RELEASE --segment CONST`),
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}

		plan, src, err := buildPlan(args[0])
		if err != nil {
			return err
		}
		defer src.Close()

		strs, err := iboot.Strings(src, viper.GetInt("strings.min"))
		if err != nil {
			return err
		}
		found := segmentStrings(plan, strs, viper.GetString("strings.segment"))

		if viper.GetBool("strings.json") {
			dat, err := json.Marshal(found)
			if err != nil {
				return fmt.Errorf("failed to marshal strings: %v", err)
			}
			fmt.Println(string(dat))
			return nil
		}

		addrColor := colors.BoldYellow().SprintFunc()
		for _, s := range found {
			fmt.Printf("%s %s %q\n", addrColor(fmt.Sprintf("%#x", s.Address)), colors.Region(s.Segment).Sprintf("%-6s", s.Segment), s.Value)
		}
		return nil
	},
}
