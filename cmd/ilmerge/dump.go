package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ilmerge/internal/image"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <bundle>",
	Short: "Print the metadata tables and IL of an image bundle",
	Args:  cobra.ExactArgs(1),
	RunE:  dumpExecution,
}

func init() {
	dumpCmd.Flags().Bool("summary", false, "print the summary")
	dumpCmd.Flags().Bool("tables", false, "print the metadata tables")
	dumpCmd.Flags().Bool("il", false, "print method bodies")
}

func dumpExecution(cmd *cobra.Command, args []string) error {
	parts, err := dumpParts(cmd)
	if err != nil {
		return err
	}
	img, err := image.LoadBundle(args[0])
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return image.Dump(cmd.OutOrStdout(), img, parts)
}

// dumpParts maps the part flags; none set means everything.
func dumpParts(cmd *cobra.Command) (image.DumpPart, error) {
	var parts image.DumpPart
	for _, f := range []struct {
		name string
		part image.DumpPart
	}{
		{"summary", image.DumpSummary},
		{"tables", image.DumpTables},
		{"il", image.DumpIL},
	} {
		on, err := cmd.Flags().GetBool(f.name)
		if err != nil {
			return 0, err
		}
		if on {
			parts |= f.part
		}
	}
	if parts == 0 {
		parts = image.DumpAll
	}
	return parts, nil
}
