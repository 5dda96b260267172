package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ilmerge/internal/driver"
	"ilmerge/internal/emit"
	"ilmerge/internal/image"
	"ilmerge/internal/ir"
	"ilmerge/internal/irfile"
	"ilmerge/internal/observ"
	"ilmerge/internal/project"
	"ilmerge/internal/trace"
)

var emitCmd = &cobra.Command{
	Use:   "emit [flags] <snapshot>...",
	Short: "Emit the principal module of each snapshot without merging",
	Long: "Decode the snapshots into one program and emit the principal module of each, " +
		"in parallel, into one image bundle per module.",
	Args: cobra.MinimumNArgs(1),
	RunE: emitExecution,
}

func init() {
	emitCmd.Flags().StringP("out-dir", "o", ".", "directory for the image bundles")
	emitCmd.Flags().IntP("jobs", "j", 0, "concurrent emission sessions (0 = GOMAXPROCS)")
	emitCmd.Flags().Bool("compress", false, "lz4 compress the bundles")
	emitCmd.Flags().Bool("cache", false, "reuse images from the user cache directory")
	emitCmd.Flags().Bool("no-short-branches", false, "always use long branch forms")
	emitCmd.Flags().Bool("init-locals", false, "set the init-locals flag on every body")
}

type emitFlags struct {
	outDir          string
	jobs            int
	compress        bool
	cache           bool
	noShortBranches bool
	initLocals      bool
}

func readEmitFlags(cmd *cobra.Command) (emitFlags, error) {
	var f emitFlags
	var err error
	if f.outDir, err = cmd.Flags().GetString("out-dir"); err != nil {
		return f, err
	}
	if f.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return f, err
	}
	if f.compress, err = cmd.Flags().GetBool("compress"); err != nil {
		return f, err
	}
	if f.cache, err = cmd.Flags().GetBool("cache"); err != nil {
		return f, err
	}
	if f.noShortBranches, err = cmd.Flags().GetBool("no-short-branches"); err != nil {
		return f, err
	}
	if f.initLocals, err = cmd.Flags().GetBool("init-locals"); err != nil {
		return f, err
	}
	return f, nil
}

func emitExecution(cmd *cobra.Command, args []string) error {
	flags, err := readEmitFlags(cmd)
	if err != nil {
		return err
	}
	maxDiag, err := maxDiagnostics(cmd)
	if err != nil {
		return err
	}

	prog := ir.NewProgram()
	principals, digest, err := loadPrincipals(prog, args)
	if err != nil {
		return err
	}

	opts := emit.Options{
		NoShortBranches: flags.noShortBranches,
		InitLocals:      flags.initLocals,
		Tracer:          trace.FromContext(cmd.Context()),
	}
	base := driver.Session{Options: opts}
	var caches *driver.Caches
	if flags.cache {
		disk, err := driver.OpenDiskCache("ilmerge")
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		caches = &driver.Caches{Disk: disk}
		base.Key = project.Combine(digest, driver.OptionsDigest(opts))
	}

	results, err := driver.EmitAll(cmd.Context(), driver.SessionsFor(principals, base), driver.EmitOptions{
		Jobs:           flags.jobs,
		MaxDiagnostics: maxDiag,
		Caches:         caches,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(flags.outDir, 0o755); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, res := range results {
		printDiagnostics(cmd.ErrOrStderr(), res.Bag, true)
		path := filepath.Join(flags.outDir, bundleName(res.Name))
		if err := image.SaveBundle(path, res.Image, flags.compress); err != nil {
			return fmt.Errorf("%s: %w", res.Name, err)
		}
		if !quiet(cmd) {
			fmt.Fprintf(out, "emitted %s (%s)\n", path, imageSummary(res.Image, res.Cached))
		}
	}
	if showTimings(cmd) {
		names := make([]string, len(results))
		timers := make([]*observ.Timer, len(results))
		for i, res := range results {
			names[i], timers[i] = res.Name, res.Timer
		}
		printSessionTimings(out, names, timers)
	}
	return nil
}

// loadPrincipals decodes every snapshot into prog and returns the principal
// module of each, plus a digest of the snapshot contents.
func loadPrincipals(prog *ir.Program, paths []string) ([]*ir.Module, project.Digest, error) {
	principals := make([]*ir.Module, 0, len(paths))
	digests := make([]project.Digest, 0, len(paths))
	owner := make(map[*ir.Module]string, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, project.Digest{}, err
		}
		mods, err := irfile.DecodeFile(path, data, prog)
		if err != nil {
			return nil, project.Digest{}, err
		}
		if len(mods) == 0 {
			return nil, project.Digest{}, fmt.Errorf("%s: snapshot has no modules", path)
		}
		principal := mods[len(mods)-1]
		if prev, ok := owner[principal]; ok {
			return nil, project.Digest{}, fmt.Errorf("%s: module %s is already provided by %s", path, principal.Name, prev)
		}
		owner[principal] = path
		principals = append(principals, principal)
		digests = append(digests, project.Sum(data))
	}
	return principals, project.Combine(project.Digest{}, digests...), nil
}

// bundleName maps a module name to its bundle file name.
func bundleName(module string) string {
	base := strings.TrimSuffix(module, filepath.Ext(module))
	if base == "" {
		base = module
	}
	return base + ".ilb"
}
