package main

import (
	"log"

	"github.com/Govind-619/MemberSphere/utils"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "membersphere",
		Short:         utils.AppName + " subscription and wallet ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCommand(),
		newWorkerCommand(),
		newReconcileCommand(),
		newMigrateCommand(),
	)

	if err := root.Execute(); err != nil {
		utils.LogError("%v", err)
		log.Fatal(err)
	}
}
