package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/fatih/color"

	"ilmerge/internal/buildpipeline"
	"ilmerge/internal/diag"
	"ilmerge/internal/image"
	"ilmerge/internal/observ"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	dimColor     = color.New(color.Faint)
)

// printDiagnostics writes bag in the short format with the severity colored.
func printDiagnostics(out io.Writer, bag *diag.Bag, withNotes bool) {
	if bag == nil || bag.Len() == 0 {
		return
	}
	bag.Dedup()
	bag.Sort()
	for _, d := range bag.Items() {
		line := diag.FormatShort([]diag.Diagnostic{d}, withNotes)
		sev := d.Severity.String()
		if rest, ok := strings.CutPrefix(line, sev); ok {
			line = severityColor(d.Severity).Sprint(sev) + rest
		}
		fmt.Fprintln(out, line)
	}
	if limit := bag.Cap(); limit > 0 && bag.Len() >= limit {
		fmt.Fprintln(out, dimColor.Sprintf("(stopped after %d diagnostics)", limit))
	}
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	default:
		return infoColor
	}
}

// printStageTimings lists the recorded stages in pipeline order.
func printStageTimings(out io.Writer, timings buildpipeline.Timings) {
	for _, stage := range buildpipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		fmt.Fprintf(out, "%-10s %8.1f ms\n", stage, toMillis(timings.Duration(stage)))
	}
}

// printSessionTimings merges the timers of parallel sessions, each phase
// prefixed with its module, and prints them with their summed total.
func printSessionTimings(out io.Writer, names []string, timers []*observ.Timer) {
	all := observ.NewTimer()
	for i, t := range timers {
		all.Merge(names[i], t)
	}
	fmt.Fprint(out, all.Summary())
}

// imageSummary describes an image in one line: kind, size and method count.
func imageSummary(img *image.Image, cached bool) string {
	if img == nil {
		return ""
	}
	parts := []string{img.Kind, units.HumanSize(float64(img.Size()))}
	parts = append(parts, fmt.Sprintf("%d methods", len(img.Methods)))
	if cached {
		parts = append(parts, "cached")
	}
	return strings.Join(parts, ", ")
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
