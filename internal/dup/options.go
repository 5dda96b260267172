package dup

import (
	"fmt"
	"strings"

	"ilmerge/internal/diag"
	"ilmerge/internal/trace"
)

// Mode selects how generic definitions are treated.
type Mode uint8

const (
	// ModePlain clones the subgraph, generic parameters included.
	ModePlain Mode = iota
	// ModeRecordTemplate links every duplicated type and method back to its
	// original through Template and leaves argument substitution to a later
	// specialization pass.
	ModeRecordTemplate
)

func (m Mode) String() string {
	if m == ModeRecordTemplate {
		return "record-template"
	}
	return "plain"
}

// ParseMode converts a manifest or flag value to Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "plain":
		return ModePlain, nil
	case "record-template", "template":
		return ModeRecordTemplate, nil
	default:
		return ModePlain, fmt.Errorf("invalid duplication mode: %q (expected: plain|record-template)", s)
	}
}

// TemplateParamPolicy decides whether generic parameter lists of duplicated
// types and methods are copied or shared with the original.
type TemplateParamPolicy uint8

const (
	// TemplateParamsAuto copies in plain mode and shares in record-template mode.
	TemplateParamsAuto TemplateParamPolicy = iota
	// TemplateParamsCopy always creates fresh parameters owned by the duplicate.
	TemplateParamsCopy
	// TemplateParamsShare keeps the original parameter nodes, so constraints
	// and references inside the duplicate keep pointing at them.
	TemplateParamsShare
)

func (p TemplateParamPolicy) String() string {
	switch p {
	case TemplateParamsCopy:
		return "copy"
	case TemplateParamsShare:
		return "share"
	default:
		return "auto"
	}
}

// ParseTemplateParamPolicy converts a manifest or flag value to a policy.
func ParseTemplateParamPolicy(s string) (TemplateParamPolicy, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return TemplateParamsAuto, nil
	case "copy":
		return TemplateParamsCopy, nil
	case "share":
		return TemplateParamsShare, nil
	default:
		return TemplateParamsAuto, fmt.Errorf("invalid template parameter policy: %q (expected: auto|copy|share)", s)
	}
}

// Options configures a duplication session.
type Options struct {
	Mode           Mode
	TemplateParams TemplateParamPolicy
	// Reporter receives notes about references left pointing at originals.
	Reporter diag.Reporter
	Tracer   trace.Tracer
	// ParentSpan is the trace span the session reports under.
	ParentSpan uint64
}

func (o Options) copyTemplateParams() bool {
	switch o.TemplateParams {
	case TemplateParamsCopy:
		return true
	case TemplateParamsShare:
		return false
	default:
		return o.Mode == ModePlain
	}
}
