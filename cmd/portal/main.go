// Package main is the entry point for the ejabberd management portal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	serviceName    = "ejabberd-management-portal"
	serviceVersion = "1.0.0"
)

func main() {
	root := &cobra.Command{
		Use:     "portal",
		Short:   fmt.Sprintf("%s - declarative ejabberd room/membership reconciler", serviceName),
		Version: serviceVersion,
	}
	root.PersistentFlags().String("config", "", "path to portal.yaml (optional; settings also come from PORTAL_ env vars)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newValidateCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
