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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/ibis/internal/colors"
	scancmd "github.com/blacktop/ibis/internal/commands/scan"
	"github.com/blacktop/ibis/internal/config"
	"github.com/blacktop/ibis/internal/db"
	"github.com/blacktop/ibis/internal/model"
	"github.com/caarlos0/ctrlc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().IntP("parallel", "p", runtime.NumCPU(), "Number of files to analyze at once")
	scanCmd.Flags().String("db", "", "Save results to database (sqlite path, *.gob or postgres:// URL)")
	scanCmd.Flags().Bool("csv", false, "Output version coverage as CSV")
	scanCmd.Flags().BoolP("json", "j", false, "Output results as JSON")
	scanCmd.Flags().StringSliceP("exclude", "x", nil, "Skip files whose name matches glob (can be repeated)")
	scanCmd.Flags().Bool("identify", false, "Only identify files (skip layout detection)")
	scanCmd.MarkFlagsMutuallyExclusive("csv", "json")
	viper.BindPFlag("scan.parallel", scanCmd.Flags().Lookup("parallel"))
	viper.BindPFlag("scan.database", scanCmd.Flags().Lookup("db"))
	viper.BindPFlag("scan.csv", scanCmd.Flags().Lookup("csv"))
	viper.BindPFlag("scan.json", scanCmd.Flags().Lookup("json"))
	viper.BindPFlag("scan.exclude", scanCmd.Flags().Lookup("exclude"))
	viper.BindPFlag("scan.identify", scanCmd.Flags().Lookup("identify"))
}

// runScan runs a scan that stops on Ctrl-C.
func runScan(conf *scancmd.Config) ([]*scancmd.Result, error) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// keep per file engine logs out of the progress bar
	if !viper.GetBool("verbose") {
		log.SetLevel(log.WarnLevel)
		defer log.SetLevel(log.InfoLevel)
	}

	var results []*scancmd.Result
	if err := ctrlc.Default.Run(ctx, func() (err error) {
		results, err = scancmd.Run(ctx, conf)
		return err
	}); err != nil {
		if errors.As(err, &ctrlc.ErrorCtrlC{}) {
			cancel()
			log.Warn("Exiting...")
		}
		return nil, err
	}
	return results, nil
}

// saveResults stores every hashed result and returns how many were saved.
// The gob store only writes on Close, so its error is part of the result.
func saveResults(url string, results []*scancmd.Result) (saved int, err error) {
	d, err := db.New(url, 100)
	if err != nil {
		return 0, err
	}
	if err := d.Connect(); err != nil {
		return 0, err
	}
	defer func() {
		if cerr := d.Close(); err == nil && cerr != nil {
			saved, err = 0, cerr
		}
	}()

	for _, r := range results {
		if r.SHA256 == "" {
			continue
		}
		if err := d.Save(r.Image()); err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <DIR>",
	Short: "Analyze every file in a folder",
	Example: heredoc.Doc(`
		# Analyze a folder of firmwares
		❯ ibis scan ~/firmware
		# Print which targets were seen for each major version
		❯ ibis scan ~/firmware --csv > coverage.csv
		# Save the results to a sqlite database
		❯ ibis scan ~/firmware --db ibis.db -x '*.im4p'`),
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
			IdentifyOnly: viper.GetBool("scan.identify"),
			Progress:     !viper.GetBool("scan.csv") && !viper.GetBool("scan.json"),
			Options:      conf.Options(),
		})
		if err != nil {
			return err
		}

		if conf.Scan.Database != "" {
			saved, err := saveResults(conf.Scan.Database, results)
			if err != nil {
				return fmt.Errorf("failed to save results: %w", err)
			}
			log.WithField("db", conf.Scan.Database).Infof("Saved %d results", saved)
		}

		switch {
		case viper.GetBool("scan.csv"):
			return scancmd.NewCoverage(results).WriteCSV(os.Stdout)
		case viper.GetBool("scan.json"):
			imgs := make([]*model.Image, 0, len(results))
			for _, r := range results {
				imgs = append(imgs, r.Image())
			}
			dat, err := json.MarshalIndent(imgs, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal results: %v", err)
			}
			fmt.Println(string(dat))
			return nil
		}

		var failed int
		for _, r := range results {
			switch {
			case r.Context == nil:
				failed++
				log.WithError(r.Err).Debugf("Skipped %s", r.Path)
			case r.Err != nil:
				failed++
				fmt.Printf("%s  %s  %s\n", colors.BoldHiRed().Sprint("✗"), r.Context, r.Path)
				fmt.Printf("   %s\n", colors.Faint().Sprint(r.Err))
			default:
				fmt.Printf("%s  %s  %s\n", colors.Region("TEXT").Sprint("✓"), r.Context, r.Path)
			}
		}
		log.Infof("Analyzed %d files (%d failed or unidentified)", len(results), failed)
		return nil
	},
}
