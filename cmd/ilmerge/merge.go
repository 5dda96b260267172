package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ilmerge/internal/buildpipeline"
	"ilmerge/internal/dup"
	"ilmerge/internal/image"
	"ilmerge/internal/project"
	"ilmerge/internal/trace"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [flags] <primary> [input]...",
	Short: "Merge snapshots into the primary module without a manifest",
	Long: "Duplicate the principal modules of the secondary inputs into the principal module " +
		"of the primary snapshot, then emit and write the merged image.",
	Args: cobra.MinimumNArgs(1),
	RunE: mergeExecution,
}

func init() {
	mergeCmd.Flags().StringP("output", "o", "", "output bundle (default: <primary>.ilb)")
	mergeCmd.Flags().String("kind", "", "output kind (dll|exe|netmodule); default keeps the primary's")
	mergeCmd.Flags().String("module-name", "", "rename the output module")
	mergeCmd.Flags().String("mode", "", "duplication mode (plain|record-template)")
	mergeCmd.Flags().String("template-params", "", "generic parameter policy (auto|copy|share)")
	mergeCmd.Flags().Bool("debug", false, "write a debug map next to the output")
	mergeCmd.Flags().Bool("compress", false, "lz4 compress the bundle")
}

func mergeExecution(cmd *cobra.Command, args []string) error {
	req, err := mergeRequest(cmd, args)
	if err != nil {
		return err
	}
	if req.MaxDiagnostics, err = maxDiagnostics(cmd); err != nil {
		return err
	}
	req.Tracer = trace.FromContext(cmd.Context())

	res, err := buildpipeline.Build(cmd.Context(), req)
	out := cmd.OutOrStdout()
	printDiagnostics(cmd.ErrOrStderr(), res.Bag, true)
	if showTimings(cmd) {
		printStageTimings(out, res.Timings)
	}
	if err != nil {
		return err
	}
	if !quiet(cmd) {
		fmt.Fprintf(out, "merged %d inputs into %s (%s)\n", len(req.Inputs), res.OutputPath, imageSummary(res.Image, false))
	}
	return nil
}

func mergeRequest(cmd *cobra.Command, args []string) (*buildpipeline.Request, error) {
	flags := cmd.Flags()
	output, _ := flags.GetString("output")
	kindValue, _ := flags.GetString("kind")
	moduleName, _ := flags.GetString("module-name")
	modeValue, _ := flags.GetString("mode")
	policyValue, _ := flags.GetString("template-params")
	debug, _ := flags.GetBool("debug")
	compress, _ := flags.GetBool("compress")

	mode, err := dup.ParseMode(modeValue)
	if err != nil {
		return nil, fmt.Errorf("--mode: %w", err)
	}
	policy, err := dup.ParseTemplateParamPolicy(policyValue)
	if err != nil {
		return nil, fmt.Errorf("--template-params: %w", err)
	}

	inputs := make([]string, len(args))
	for i, a := range args {
		if inputs[i], err = filepath.Abs(a); err != nil {
			return nil, err
		}
	}
	if output == "" {
		output = defaultMergeOutput(inputs[0])
	}
	if output, err = filepath.Abs(output); err != nil {
		return nil, err
	}

	req := &buildpipeline.Request{
		Inputs:     inputs,
		Output:     output,
		ModuleName: moduleName,
		Duplicate:  dup.Options{Mode: mode, TemplateParams: policy},
		Writer:     image.BundleWriter{Compress: compress},
	}
	if kindValue != "" {
		if req.Kind, err = project.ParseModuleKind(kindValue); err != nil {
			return nil, fmt.Errorf("--kind: %w", err)
		}
		req.KindSet = true
	}
	if debug {
		req.DebugMap = output + ".dbg"
	}
	return req, nil
}

// defaultMergeOutput names the bundle after the primary snapshot.
func defaultMergeOutput(primary string) string {
	base := strings.TrimSuffix(filepath.Base(primary), ".xz")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(primary), base+".ilb")
}
