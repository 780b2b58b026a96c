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
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/blacktop/ibis/internal/colors"
	"github.com/blacktop/ibis/internal/config"
	"github.com/blacktop/ibis/pkg/iboot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// Verbose boolean flag for verbose logging
	Verbose bool
	// Color boolean flag for colorized output
	Color bool
	// AppVersion stores the app's version
	AppVersion string
	// AppBuildTime stores the app's build time
	AppBuildTime string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ibis <FILE>",
	Short: "Memory layout analysis for iBoot family binaries",
	Example: heredoc.Doc(`
		# Print the identity and memory layout of a SecureROM
		❯ ibis SecureROM-8104.0.0.201.4-t8130si
		# Same, as JSON
		❯ ibis --json iBoot-13822.42.2-v53ap.RELEASE`),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {

		if viper.GetBool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		if len(args) == 0 {
			return cmd.Help()
		}

		conf, err := config.LoadConfig()
		if err != nil {
			return err
		}

		src, err := iboot.Open(filepath.Clean(args[0]))
		if err != nil {
			return err
		}
		defer src.Close()

		ctx, err := iboot.DetectContext(src)
		if err != nil {
			return fmt.Errorf("failed to identify %s: %w", args[0], err)
		}
		layout, err := iboot.DetectLayout(ctx, src, conf.Options()...)
		if err != nil {
			return fmt.Errorf("failed to analyze %s: %w", args[0], err)
		}

		if viper.GetBool("root.json") {
			return printLayoutJSON(os.Stdout, ctx, layout)
		}
		printLayout(os.Stdout, ctx, layout)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = AppVersion
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func init() {
	log.SetHandler(clihander.Default)

	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	// Flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/ibis/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&Color, "color", false, "colorize output")
	rootCmd.PersistentFlags().Int("max-version", iboot.VersionMax, "first unsupported major version (negative for no limit)")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("color", rootCmd.PersistentFlags().Lookup("color"))
	viper.BindPFlag("analysis.max-version", rootCmd.PersistentFlags().Lookup("max-version"))
	viper.BindEnv("color", "CLICOLOR")

	rootCmd.Flags().BoolP("json", "j", false, "emit output as JSON")
	viper.BindPFlag("root.json", rootCmd.Flags().Lookup("json"))
	// Settings
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(filepath.Join(home, ".config", "ibis"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("ibis")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	if viper.IsSet("color") {
		c := viper.GetBool("color")
		colors.Init(&c)
	}
}
