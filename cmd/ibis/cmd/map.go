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
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/ibis/internal/colors"
	"github.com/blacktop/ibis/internal/config"
	"github.com/blacktop/ibis/internal/utils"
	"github.com/blacktop/ibis/pkg/iboot"
	"github.com/blacktop/ibis/pkg/loader"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(mapCmd)
	mapCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	viper.BindPFlag("map.json", mapCmd.Flags().Lookup("json"))
}

// buildPlan opens path and plans its segments.
func buildPlan(path string) (*loader.Plan, *iboot.FileSource, error) {
	conf, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	src, err := iboot.Open(filepath.Clean(path))
	if err != nil {
		return nil, nil, err
	}
	plan, err := loader.Build(src, conf.Options()...)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return plan, src, nil
}

// tableHost prints the plan as a segment table.
type tableHost struct {
	tw    *tabwriter.Writer
	funcs int
}

func newTableHost(w io.Writer) *tableHost {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCLASS\tPERM\tSTART\tEND\tFILE\tSIZE")
	return &tableHost{tw: tw}
}

func (h *tableHost) AddSegment(seg loader.Segment) error {
	file := "-"
	if seg.FileOffset != nil {
		file = fmt.Sprintf("%#x-%#x", *seg.FileOffset, *seg.FileOffset+seg.FileSize)
	}
	_, err := fmt.Fprintf(h.tw, "%s\t%s\t%s\t%#x\t%#x\t%s\t%s\n",
		colors.Region(seg.Name).Sprint(seg.Name),
		seg.Class,
		seg.Perm,
		seg.Start,
		seg.End(),
		file,
		humanize.IBytes(seg.Size),
	)
	return err
}

func (h *tableHost) AddFunction(addr uint64) error {
	h.funcs++
	return nil
}

func (h *tableHost) AddEntryPoint(addr uint64, name string) error {
	if err := h.tw.Flush(); err != nil {
		return err
	}
	fmt.Println()
	log.Infof("Entry point %s @ %#x", name, addr)
	utils.Indent(log.Info, 2)(fmt.Sprintf("%d functions (PACIBSP)", h.funcs))
	return nil
}

// mapCmd represents the map command
var mapCmd = &cobra.Command{
	Use:   "map <FILE>",
	Short: "Show the segments a disassembler should create",
	Example: heredoc.Doc(`
		# Print the load plan for an iBoot
		❯ ibis map iBoot-13822.42.2-v53ap.RELEASE
		# Print the load plan as JSON
		❯ ibis map --json iBoot-13822.42.2-v53ap.RELEASE`),
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

		if viper.GetBool("map.json") {
			dat, err := json.MarshalIndent(struct {
				Context   string           `json:"context"`
				Segments  []loader.Segment `json:"segments"`
				Functions int              `json:"functions"`
				Entry     uint64           `json:"entry"`
				EntryName string           `json:"entry_name"`
				Warnings  []string         `json:"warnings,omitempty"`
				Fallback  bool             `json:"fallback"`
			}{
				Context:   plan.Context.String(),
				Segments:  plan.Segments,
				Functions: len(plan.Functions),
				Entry:     plan.Entry,
				EntryName: plan.EntryName,
				Warnings:  plan.Warnings,
				Fallback:  plan.Fallback,
			}, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal plan: %v", err)
			}
			fmt.Println(string(dat))
			return nil
		}

		log.Info(plan.Context.String())
		if plan.Fallback {
			log.Error(loader.AnalyzeFailTitle)
		}
		utils.Warnings(plan.Warnings)
		fmt.Println()

		return plan.Apply(newTableHost(os.Stdout))
	},
}
