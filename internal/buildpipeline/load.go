package buildpipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"ilmerge/internal/diag"
	"ilmerge/internal/ir"
	"ilmerge/internal/irfile"
	"ilmerge/internal/project"
)

type input struct {
	path    string
	display string
	data    []byte
	digest  project.Digest
}

// DisplayNames shortens paths under root to slash separated relative names;
// progress events name inputs this way.
func DisplayNames(root string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = p
		if root == "" {
			continue
		}
		if rel, err := filepath.Rel(root, p); err == nil && !strings.HasPrefix(rel, "..") {
			out[i] = filepath.ToSlash(rel)
		}
	}
	return out
}

// readInputs reads every snapshot in parallel. Each goroutine writes only
// its own slot.
func readInputs(ctx context.Context, paths, files []string, sink ProgressSink, r diag.Reporter) ([]input, error) {
	inputs := make([]input, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(runtime.GOMAXPROCS(0), len(paths)))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if sink != nil {
				sink.OnEvent(Event{File: files[i], Stage: StageLoad, Status: StatusWorking})
			}
			data, err := os.ReadFile(path)
			if err != nil {
				diag.ReportError(r, diag.LoadReadFailed, files[i], err.Error()).Emit()
				if sink != nil {
					sink.OnEvent(Event{File: files[i], Stage: StageLoad, Status: StatusError, Err: err})
				}
				return fmt.Errorf("failed to read input %q: %w", path, err)
			}
			inputs[i] = input{path: path, display: files[i], data: data, digest: project.Sum(data)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inputs, nil
}

// decodeInputs loads the snapshots into prog in order. The principal module
// of a snapshot is the last one it lists; the others are its dependencies.
func decodeInputs(prog *ir.Program, inputs []input, sink ProgressSink, r diag.Reporter) ([]*ir.Module, error) {
	principals := make([]*ir.Module, 0, len(inputs))
	seen := make(map[*ir.Module]string, len(inputs))
	for _, in := range inputs {
		mods, err := irfile.DecodeFile(in.path, in.data, prog)
		if err == nil && len(mods) == 0 {
			err = fmt.Errorf("%s: snapshot holds no module", in.path)
			diag.ReportError(r, diag.LoadMissingModule, in.display, "snapshot holds no module").Emit()
		} else if err != nil {
			diag.ReportError(r, diag.LoadBadSnapshot, in.display, err.Error()).Emit()
		}
		if err != nil {
			if sink != nil {
				sink.OnEvent(Event{File: in.display, Stage: StageLoad, Status: StatusError, Err: err})
			}
			return nil, err
		}
		m := mods[len(mods)-1]
		if prev, taken := seen[m]; taken {
			err = fmt.Errorf("%s: module %s is already provided by %s", in.path, m.Name, prev)
			diag.ReportError(r, diag.LoadDuplicateModule, in.display, err.Error()).Emit()
			return nil, err
		}
		seen[m] = in.display
		principals = append(principals, m)
	}
	return principals, nil
}

// readResources loads embedded resource bytes and hashes every resource
// file for the cache key. A linked file that cannot be read only loses its
// hash; emission reports it.
func readResources(res []Resource) ([]*ir.Resource, []project.Digest, error) {
	out := make([]*ir.Resource, 0, len(res))
	digests := make([]project.Digest, 0, len(res))
	for _, r := range res {
		data, err := os.ReadFile(r.Path)
		if err != nil && !r.Linked {
			return nil, nil, fmt.Errorf("resource %q: %w", r.Name, err)
		}
		digests = append(digests, project.Combine(project.Sum([]byte(fmt.Sprintf("%s|%t|%t", r.Name, r.Public, r.Linked))), project.Sum(data)))
		node := &ir.Resource{Name: r.Name, Public: r.Public}
		if r.Linked {
			node.LinkedFile = r.Path
		} else {
			node.Data = data
		}
		out = append(out, node)
	}
	return out, digests, nil
}
