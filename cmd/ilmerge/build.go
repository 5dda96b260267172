package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"ilmerge/internal/buildpipeline"
	"ilmerge/internal/driver"
	"ilmerge/internal/project"
	"ilmerge/internal/trace"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [manifest|dir]",
	Short: "Build the module described by " + project.ManifestName,
	Long: "Load the inputs listed in " + project.ManifestName + ", merge them into the primary module, " +
		"emit its metadata and IL and write the image.",
	Args: cobra.MaximumNArgs(1),
	RunE: buildExecution,
}

func init() {
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
	buildCmd.Flags().StringP("output", "o", "", "override [output].path")
	buildCmd.Flags().Bool("no-cache", false, "bypass the image caches")
	buildCmd.Flags().Bool("watch", false, "rebuild when the manifest, an input or a resource changes")
}

// buildRun holds what stays fixed across the rebuilds of one invocation.
type buildRun struct {
	cmd          *cobra.Command
	manifestPath string
	output       string
	noCache      bool
	ui           uiMode
	watching     bool
	maxDiag      int
	// memory keeps images between watch rebuilds.
	memory *driver.ImageCache
	// watched lists the files the last build read.
	watched []string
}

func buildExecution(cmd *cobra.Command, args []string) error {
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	watch, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}
	maxDiag, err := maxDiagnostics(cmd)
	if err != nil {
		return err
	}
	manifestPath, err := locateManifest(args)
	if err != nil {
		return err
	}

	run := &buildRun{
		cmd:          cmd,
		manifestPath: manifestPath,
		output:       output,
		noCache:      noCache,
		ui:           mode,
		watching:     watch,
		maxDiag:      maxDiag,
	}
	if !watch {
		return run.once(cmd.Context())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	run.memory = driver.NewImageCache(8)
	if err := run.once(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), errorColor.Sprint("error:"), err)
	}
	return watchAndRebuild(ctx, run)
}

// locateManifest resolves the optional build argument: a manifest file, or
// a directory searched upwards for one.
func locateManifest(args []string) (string, error) {
	target := "."
	if len(args) > 0 && args[0] != "" {
		target = args[0]
	}
	info, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("failed to stat %q: %w", target, err)
	}
	if !info.IsDir() {
		return filepath.Abs(target)
	}
	path, ok, err := project.FindManifest(target)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w in %s or its parents", project.ErrManifestNotFound, target)
	}
	return path, nil
}

// request reloads the manifest so edits are picked up by watch rebuilds.
func (r *buildRun) request(ctx context.Context) (*project.Manifest, *buildpipeline.Request, error) {
	m, err := project.LoadManifest(r.manifestPath)
	if err != nil {
		return nil, nil, err
	}
	req, err := buildpipeline.FromManifest(m)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", m.Path, err)
	}
	if r.output != "" {
		if req.Output, err = filepath.Abs(r.output); err != nil {
			return nil, nil, err
		}
		if req.DebugMap != "" {
			req.DebugMap = req.Output + ".dbg"
		}
	}
	req.MaxDiagnostics = r.maxDiag
	req.Tracer = trace.FromContext(ctx)

	if r.noCache {
		return m, req, nil
	}
	req.Caches = &driver.Caches{Memory: r.memory}
	if m.CacheEnabled() {
		disk, err := driver.NewDiskCache(m.CacheDir())
		if err != nil {
			fmt.Fprintln(r.cmd.ErrOrStderr(), warningColor.Sprint("warning:"), "disk cache disabled:", err)
		} else {
			req.Caches.Disk = disk
		}
	}
	return m, req, nil
}

func (r *buildRun) once(ctx context.Context) error {
	m, req, err := r.request(ctx)
	if err != nil {
		return err
	}
	r.watched = watchList(m, req)

	files := buildpipeline.DisplayNames(m.Root, req.Inputs)
	var res buildpipeline.Result
	if shouldUseTUI(r.ui, quiet(r.cmd), r.watching) {
		res, err = runBuildWithUI(ctx, "ilmerge build", files, req)
	} else {
		res, err = buildpipeline.Build(ctx, req)
	}

	out := r.cmd.OutOrStdout()
	printDiagnostics(r.cmd.ErrOrStderr(), res.Bag, true)
	if showTimings(r.cmd) {
		printStageTimings(out, res.Timings)
	}
	if err != nil {
		return err
	}
	if quiet(r.cmd) {
		return nil
	}
	fmt.Fprintf(out, "built %s (%s)\n", formatPathForOutput(m.Root, res.OutputPath), imageSummary(res.Image, res.Cached))
	if len(req.Inputs) > 1 && !res.Cached {
		fmt.Fprintf(out, "merged %d types and %d methods from %d inputs\n", res.Dup.Types, res.Dup.Methods, len(req.Inputs)-1)
	}
	return nil
}

// watchList is every file a build of m reads.
func watchList(m *project.Manifest, req *buildpipeline.Request) []string {
	paths := make([]string, 0, 1+len(req.Inputs)+len(req.Resources))
	paths = append(paths, m.Path)
	paths = append(paths, req.Inputs...)
	for _, res := range req.Resources {
		paths = append(paths, res.Path)
	}
	return paths
}
