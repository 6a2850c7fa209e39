package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "urdulink",
		Short:         "Translate scanned documents and images into an Urdu manuscript",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./urdulink.yaml if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level: debug|info|warn|error")

	root.AddCommand(
		translateCmd(a),
		serveCmd(a),
		imageCmd(a),
		videoCmd(a),
		chatCmd(a),
		askCmd(a),
		cacheCmd(a),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorf("%v", err))
		os.Exit(1)
	}
}
