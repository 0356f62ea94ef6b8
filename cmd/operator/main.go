// Package main is the entrypoint for the iacaws-operator.
//
// The operator watches IaCAWS resources and provisions a VPC, an EC2
// instance and an RDS instance for every created or changed resource.
//
// For detailed usage information, run:
//
//	iacaws-operator --help
package main

import (
	"fmt"
	"os"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/imamik/iacaws/cmd/operator/commands"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctrl.SetupSignalHandler()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
