package cmd

import (
	"fmt"

	"github.com/bnema/vmshm/internal/keymap"
	"github.com/bnema/vmshm/internal/ui"
	"github.com/spf13/cobra"
)

var keymapCmd = &cobra.Command{
	Use:   "keymap",
	Short: "Print the compositor to guest key translation table",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := keymap.Entries()
		fmt.Println(ui.FormatAppHeader("KEYMAP", fmt.Sprintf("%d mapped keys", len(entries))))
		fmt.Println(ui.KeymapTable(entries))
		return nil
	},
}
