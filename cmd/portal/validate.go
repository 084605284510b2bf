package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JJ-Atkinson/ejabberd-management-portal/internal/document"
)

func newValidateCommand() *cobra.Command {
	var dbFolder string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "validate the on-disk document without starting the engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(dbFolder)
		},
	}
	cmd.Flags().StringVar(&dbFolder, "db-folder", "./data", "directory containing userdb.edn")
	return cmd
}

func runValidate(dbFolder string) error {
	store, err := document.NewStore(dbFolder)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}

	doc, err := store.Read()
	if err != nil {
		if verr, ok := err.(*document.ValidationError); ok {
			for _, issue := range verr.Result.Issues {
				fmt.Println(issue.String())
			}
			return fmt.Errorf("document is invalid (%d issues)", len(verr.Result.Issues))
		}
		return err
	}

	fmt.Printf("document is valid: %d groups, %d rooms, %d members\n", len(doc.Groups), len(doc.Rooms), len(doc.Members))
	return nil
}
