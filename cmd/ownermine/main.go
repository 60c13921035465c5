// Command ownermine mines a git repository's commit history into a
// security ownership snapshot and answers bounded queries and windowed
// maintainer reports against it.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ownermine/ownermine/internal/config"
	"github.com/ownermine/ownermine/internal/logging"
	"github.com/ownermine/ownermine/internal/ownererr"
)

var (
	cfgFile string
	debug   bool
	logJSON bool

	cfg *config.Config
	log *logrus.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ownermine: %v\n", err)
		os.Exit(ownererr.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "ownermine",
	Short: "Security ownership mining engine over a git commit history",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		logCfg := logging.DefaultConfig(debug)
		logCfg.JSON = logJSON
		log, err = logging.New(logCfg)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .ownermine/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit structured JSON logs")

	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
}
