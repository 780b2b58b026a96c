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
	"io"
	"os"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	"github.com/blacktop/ibis/internal/colors"
	"github.com/blacktop/ibis/internal/config"
	"github.com/blacktop/ibis/internal/db"
	"github.com/blacktop/ibis/internal/model"
	"github.com/blacktop/ibis/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.PersistentFlags().String("db", "", "Database to use (default is scan.database from the config)")
	viper.BindPFlag("db.path", dbCmd.PersistentFlags().Lookup("db"))

	dbCmd.AddCommand(dbListCmd)
	dbListCmd.Flags().String("app", "", "Only list images of this app (SecureROM, iBoot, AVPBooter)")
	viper.BindPFlag("db.ls.app", dbListCmd.Flags().Lookup("app"))

	dbCmd.AddCommand(dbShowCmd)
	dbCmd.AddCommand(dbRemoveCmd)
}

// withDB opens the database named by --db or the config and closes it after fn.
func withDB(fn func(d db.Database) error) (err error) {
	conf, err := config.LoadConfig()
	if err != nil {
		return err
	}
	url := viper.GetString("db.path")
	if url == "" {
		url = conf.Scan.Database
	}
	if url == "" {
		return fmt.Errorf("no database given (use --db or set scan.database)")
	}

	d, err := db.New(url, 100)
	if err != nil {
		return err
	}
	if err := d.Connect(); err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(d)
}

func listImages(w io.Writer, d db.Database, app string) error {
	imgs, err := d.List(app)
	if err != nil {
		return fmt.Errorf("failed to list images: %w", err)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHA256\tAPP\tVERSION\tTARGET\tREGIONS\tPATH")
	for _, img := range imgs {
		app, version, target := img.App, img.Version, img.Target
		if !img.Identified() {
			app, version, target = "-", "-", "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", utils.ShortHash(img.SHA256), app, version, target, len(img.Regions), img.Path)
	}
	return tw.Flush()
}

func showImage(w io.Writer, img *model.Image) {
	bold := colors.Bold().SprintFunc()
	fmt.Fprintf(w, "%s  %s\n", bold("Path:   "), img.Path)
	fmt.Fprintf(w, "%s  %s\n", bold("SHA256: "), img.SHA256)
	if img.Identified() {
		fmt.Fprintf(w, "%s  %s %s %s\n", bold("Image:  "), img.App, img.Version, img.Target)
	}
	if img.Error != "" {
		fmt.Fprintf(w, "%s  %s\n", bold("Error:  "), colors.BoldHiRed().Sprint(img.Error))
	}
	if len(img.Regions) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, r := range img.Regions {
		fmt.Fprintln(w, regionLine(r.Named()))
	}
}

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Browse scan results saved with 'ibis scan --db'",
	Example: heredoc.Doc(`
		# List every saved iBoot
		❯ ibis db ls --db ibis.db --app iBoot
		# Show the stored layout of one image
		❯ ibis db show --db ibis.db 3fa9c02...`),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var dbListCmd = &cobra.Command{
	Use:           "ls",
	Short:         "List saved images",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		return withDB(func(d db.Database) error {
			return listImages(os.Stdout, d, viper.GetString("db.ls.app"))
		})
	},
}

var dbShowCmd = &cobra.Command{
	Use:           "show <SHA256>",
	Short:         "Show the stored layout of an image",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		return withDB(func(d db.Database) error {
			img, err := d.Get(args[0])
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", args[0], err)
			}
			showImage(os.Stdout, img)
			return nil
		})
	},
}

var dbRemoveCmd = &cobra.Command{
	Use:           "rm <SHA256>",
	Short:         "Delete an image and its regions",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		return withDB(func(d db.Database) error {
			if err := d.Delete(args[0]); err != nil {
				return fmt.Errorf("failed to delete %s: %w", args[0], err)
			}
			log.Infof("Deleted %s", args[0])
			return nil
		})
	},
}
