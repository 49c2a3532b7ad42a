package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Tilix4/kdenlive/internal/app"
)

func newAssetsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "List the registered effect assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(g.appOptions(cmd))
			if err != nil {
				return err
			}
			defer a.Shutdown()

			reg := a.Registry()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE")
			for _, id := range reg.IDs() {
				typ, _ := reg.Type(id)
				fmt.Fprintf(w, "%s\t%s\t%s\n", id, reg.Name(id), typ)
			}
			return w.Flush()
		},
	}
}
