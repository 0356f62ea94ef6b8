// Package commands defines the operator command line and wires the
// configured components into a controller-runtime manager.
package commands

import (
	goflag "flag"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/imamik/iacaws/internal/config"
)

// Root returns the root command. Running it starts the operator.
func Root() *cobra.Command {
	var configFile string
	v := config.NewViper()
	zapOpts := zap.Options{
		Development: os.Getenv("DEBUG") == "true",
	}

	cmd := &cobra.Command{
		Use:   "iacaws-operator",
		Short: "Provision AWS infrastructure for IaCAWS resources",
		Long: `iacaws-operator watches IaCAWS custom resources and creates a VPC,
an EC2 instance and an RDS database instance for each of them.

Settings are read from flags, IACAWS_* environment variables and an
optional YAML file, in that order of precedence.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, zapOpts)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to a YAML config file")
	if err := config.AddFlags(cmd.Flags(), v); err != nil {
		// Flag names are static; a bind error is a programming error.
		panic(err)
	}

	zapFlags := goflag.NewFlagSet("zap", goflag.ContinueOnError)
	zapOpts.BindFlags(zapFlags)
	cmd.Flags().AddGoFlagSet(zapFlags)

	cmd.AddCommand(Version())
	return cmd
}
