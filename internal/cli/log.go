package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// newLogCmd creates the log command.
func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "log",
		Aliases: []string{"l"},
		Short:   "Print every tracked branch as a tree, with parent and PR state",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := openContext()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			f, order, err := buildForest(ctx, rc)
			if err != nil {
				return err
			}
			if len(order) == 0 {
				rc.Splog.Info("no tracked branches")
				return nil
			}

			current, _ := rc.Adapter.CurrentBranch(ctx)

			for _, trunk := range rc.Trunks() {
				fmt.Printf("%s (trunk)\n", trunk)
			}

			var printNode func(name string, depth int)
			printNode = func(name string, depth int) {
				info, err := rc.Store.GetPRInfo(ctx, name)
				marker := " "
				if name == current {
					marker = "*"
				}
				suffix := ""
				if err == nil && info != nil && info.State != nil && info.Number != nil {
					suffix = fmt.Sprintf(" (#%d %s)", *info.Number, *info.State)
				}
				fmt.Printf("%s%s%s%s\n", strings.Repeat("  ", depth+1), marker, name, suffix)
				for _, child := range f.Children(name) {
					printNode(child, depth+1)
				}
			}

			for _, root := range f.Roots(order) {
				printNode(root, 0)
			}
			return nil
		},
	}

	return cmd
}
