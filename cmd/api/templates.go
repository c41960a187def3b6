package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the configured panel templates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		personas, registry, err := loadCatalogue(cfg.Panel, zap.NewNop())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if mod, ok := registry.Moderator(); ok {
			fmt.Fprintf(out, "moderator: %s (%s)\n\n", mod.Name, mod.ID)
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tPANELISTS\tDEFAULT")
		for _, t := range registry.Templates() {
			names := make([]string, 0, len(t.PersonaIDs))
			for _, id := range t.PersonaIDs {
				if p, ok := personas.FindByID(id); ok {
					names = append(names, p.DisplayName())
					continue
				}
				names = append(names, id+"?")
			}
			def := ""
			if t.Default {
				def = "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, strings.Join(names, ", "), def)
		}
		return tw.Flush()
	},
}
