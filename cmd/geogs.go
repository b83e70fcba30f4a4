package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var geogsCmd = &cobra.Command{
	Use:   "geogs",
	Short: "List the geography identifiers the recipe covers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		rec, err := buildRecipe(ctx, cfg)
		if err != nil {
			return err
		}

		geogs, err := rec.GeographyIDs(ctx)
		if err != nil {
			return eris.Wrap(err, "list geographies")
		}

		for _, g := range geogs {
			fmt.Println(g)
		}
		fmt.Printf("%d geographies\n", len(geogs))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(geogsCmd)
}
