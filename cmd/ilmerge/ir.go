package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ilmerge/internal/ir"
	"ilmerge/internal/irfile"
)

var irCmd = &cobra.Command{
	Use:   "ir [flags] <snapshot>",
	Short: "Print the IR of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  irExecution,
}

func init() {
	irCmd.Flags().Bool("all", false, "print every module, not only the principal one")
	irCmd.Flags().String("module", "", "print the module with this name")
}

func irExecution(cmd *cobra.Command, args []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	name, err := cmd.Flags().GetString("module")
	if err != nil {
		return err
	}
	mods, err := irfile.Open(args[0], ir.NewProgram())
	if err != nil {
		return err
	}
	selected, err := selectModules(mods, all, name)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	out := cmd.OutOrStdout()
	for i, m := range selected {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := ir.Dump(out, m); err != nil {
			return err
		}
	}
	return nil
}

// selectModules picks what to print: a named module, all of them, or the
// principal one, which is the last in a snapshot.
func selectModules(mods []*ir.Module, all bool, name string) ([]*ir.Module, error) {
	if len(mods) == 0 {
		return nil, fmt.Errorf("snapshot has no modules")
	}
	switch {
	case name != "":
		for _, m := range mods {
			if m.Name == name {
				return []*ir.Module{m}, nil
			}
		}
		return nil, fmt.Errorf("no module named %q", name)
	case all:
		return mods, nil
	default:
		return mods[len(mods)-1:], nil
	}
}
