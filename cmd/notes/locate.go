package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/notes/pkg/core"
)

var (
	locateLat     float64
	locateLong    float64
	locateReplace string
)

var locateCmd = &cobra.Command{
	Use:   "locate [note]",
	Short: "Attach a location to a note",
	Long: `Store a location attachment with --lat and --long. Without them the
default location is used. --replace updates an existing location attachment.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		loc := core.DefaultLocation
		if cmd.Flags().Changed("lat") || cmd.Flags().Changed("long") {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("long") {
				fatal("Invalid location", core.ErrIncompleteLocation)
			}
			loc = core.Location{Lat: locateLat, Long: locateLong}
		}

		ctx := context.Background()
		lib := openLibrary(ctx)
		defer lib.Close()

		doc, entry, err := lib.OpenNote(ctx, args[0])
		if err != nil {
			fatal("Failed to open note", err)
		}

		name, err := doc.SetLocation(locateReplace, loc)
		if err != nil {
			fatal("Failed to set location", err)
		}
		if err := doc.Save(ctx, doc.Root()); err != nil {
			fatal("Failed to save note", err)
		}

		fmt.Printf("Located '%s' at %g,%g (%s).\n", entry.Name, loc.Lat, loc.Long, name)
	},
}

func init() {
	rootCmd.AddCommand(locateCmd)
	locateCmd.Flags().Float64Var(&locateLat, "lat", 0, "Latitude")
	locateCmd.Flags().Float64Var(&locateLong, "long", 0, "Longitude")
	locateCmd.Flags().StringVar(&locateReplace, "replace", "", "Existing location attachment to update")
}
