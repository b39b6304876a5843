package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes in the library",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		lib := openLibrary(ctx)
		defer lib.Close()

		entries, err := lib.Entries()
		if err != nil {
			fatal("Failed to list notes", err)
		}

		if listJSON {
			type item struct {
				ID   string `json:"id"`
				Name string `json:"name"`
				URL  string `json:"url"`
			}
			items := make([]item, 0, len(entries))
			for _, e := range entries {
				items = append(items, item{ID: e.ID, Name: e.Name, URL: e.Locator()})
			}
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(items); err != nil {
				fatal("Failed to encode JSON", err)
			}
			return
		}

		for _, e := range entries {
			fmt.Printf("%s\t%s\n", e.Name, e.Locator())
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
}
