package session

import (
	"strings"

	"github.com/google/go-dap"

	"github.com/lldb-tools/lldb-dap/internal/config"
	"github.com/lldb-tools/lldb-dap/internal/handle"
	"github.com/lldb-tools/lldb-dap/internal/lldbapi"
)

// DisplaySettings holds the tri-state rendering knobs from §3/§6, owned by
// the DebugSession and read (never mutated) by the renderer.
type DisplaySettings struct {
	GlobalFormat     config.DisplayFormat
	ShowDisassembly  config.ShowDisassembly
	DerefPointers    bool
	ContainerSummary bool
}

var suffixFormats = map[byte]lldbapi.Format{
	'x': lldbapi.FormatHex,
	'h': lldbapi.FormatHex,
	'o': lldbapi.FormatOctal,
	'd': lldbapi.FormatDecimal,
	'b': lldbapi.FormatBinary,
	'f': lldbapi.FormatFloat,
	'p': lldbapi.FormatPointer,
	'u': lldbapi.FormatUnsigned,
	's': lldbapi.FormatCString,
	'y': lldbapi.FormatBytes,
	'Y': lldbapi.FormatBytesWithASCII,
}

// ParseFormatSuffix strips a trailing ",x|h|o|d|b|f|p|u|s|y|Y" format
// suffix from an evaluate expression, returning the format override only
// when the suffix is a recognized single letter (§8 property 5).
func ParseFormatSuffix(expr string) (string, lldbapi.Format, bool) {
	idx := strings.LastIndexByte(expr, ',')
	if idx < 0 || idx != len(expr)-2 {
		return expr, 0, false
	}
	f, ok := suffixFormats[expr[idx+1]]
	if !ok {
		return expr, 0, false
	}
	return expr[:idx], f, true
}

// VariableRenderer converts engine values into DAP Variables, applying the
// display-format and container-summary rules of §4.3.
type VariableRenderer struct {
	settings *DisplaySettings
	refs     *handle.Tree
}

// NewVariableRenderer builds a renderer over shared display settings and
// the session's variable-handle tree.
func NewVariableRenderer(settings *DisplaySettings, refs *handle.Tree) *VariableRenderer {
	return &VariableRenderer{settings: settings, refs: refs}
}

// GetVarValueStr renders one value to its display string, per §4.3.
func (r *VariableRenderer) GetVarValueStr(v lldbapi.Value, format lldbapi.Format, isContainer bool) string {
	if format != lldbapi.FormatDefault {
		v.SetFormat(format)
	} else {
		v.SetFormat(r.formatFromSettings())
	}

	if r.settings.DerefPointers && format == lldbapi.FormatDefault && (v.IsPointer() || v.IsReference()) {
		if n, ok := v.Unsigned(); ok && n == 0 {
			return "<null>"
		}
		if v.IsSynthetic() {
			if s, ok := v.Summary(); ok {
				return s
			}
		} else if dv, err := v.Dereference(); err == nil {
			return r.GetVarValueStr(dv, format, isContainer)
		}
	}

	if s, ok := v.ValueString(); ok {
		return s
	}
	if s, ok := v.Summary(); ok {
		return s
	}

	if isContainer {
		if r.settings.ContainerSummary {
			return r.containerSummary(v)
		}
		return "{...}"
	}
	return "<not available>"
}

// containerSummary composes a "{name:value, ...}" rendering of a
// container's children, truncated at 32 accumulated characters (§4.3.1).
func (r *VariableRenderer) containerSummary(v lldbapi.Value) string {
	var b strings.Builder
	contributed := false

	n := v.NumChildren()
	for i := 0; i < n; i++ {
		child := v.Child(i)
		name := child.Name()
		val, ok := child.ValueString()
		if !ok {
			val, ok = child.Summary()
		}
		if !ok || name == "" {
			continue
		}

		if contributed {
			b.WriteString(", ")
		}
		if strings.HasPrefix(name, "[") {
			b.WriteString(val)
		} else {
			b.WriteString(name)
			b.WriteByte(':')
			b.WriteString(val)
		}
		contributed = true

		if b.Len() > 32 {
			b.WriteString(", ...")
			break
		}
	}

	if !contributed {
		return "{...}"
	}
	return "{" + b.String() + "}"
}

func (r *VariableRenderer) formatFromSettings() lldbapi.Format {
	switch r.settings.GlobalFormat {
	case config.DisplayFormatHex:
		return lldbapi.FormatHex
	case config.DisplayFormatDecimal:
		return lldbapi.FormatDecimal
	case config.DisplayFormatBinary:
		return lldbapi.FormatBinary
	default:
		return lldbapi.FormatDefault
	}
}

// ComposeEvalName implements §4.3's eval-name composition rules (also
// covered by §8 property 4).
func ComposeEvalName(prefix, suffix string) string {
	switch {
	case prefix == "":
		return suffix
	case suffix == "":
		return prefix
	case strings.HasPrefix(suffix, "["):
		return prefix + suffix
	default:
		return prefix + "." + suffix
	}
}

// ConvertScopeValues renders a sequence of engine values under a container
// handle into DAP Variables, per §4.3's shadowing and evaluate_name rules.
func (r *VariableRenderer) ConvertScopeValues(parent int64, parentEvalName string, values []lldbapi.Value) []dap.Variable {
	order := make([]string, 0, len(values))
	byName := make(map[string]dap.Variable, len(values))

	for _, v := range values {
		name := v.Name()
		isContainer := v.NumChildren() > 0 || v.IsSynthetic()

		value := r.GetVarValueStr(v, lldbapi.FormatDefault, isContainer)

		variable := dap.Variable{
			Name:  name,
			Value: value,
			Type:  v.TypeName(),
		}

		if isContainer {
			variable.VariablesReference = int(r.refs.Create(parent, name, container{kind: containerChild, value: v}))
		}

		if v.IsSynthetic() {
			variable.EvaluateName = ComposeEvalName(parentEvalName, name)
		} else if path, ok := v.EvaluateExpressionPath(); ok {
			variable.EvaluateName = "/nat " + path
		}

		if _, exists := byName[name]; !exists {
			order = append(order, name)
		}
		byName[name] = variable
	}

	out := make([]dap.Variable, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

// RawChild appends the sentinel "[raw]" entry exposing the non-synthetic
// view of a synthetic container, per §4.3's closing paragraph.
func (r *VariableRenderer) RawChild(parent int64, v lldbapi.Value) dap.Variable {
	raw := v.NonSyntheticValue()
	value := r.GetVarValueStr(raw, lldbapi.FormatDefault, raw.NumChildren() > 0)
	return dap.Variable{
		Name:               "[raw]",
		Value:              value,
		Type:               raw.TypeName(),
		VariablesReference: int(r.refs.Create(parent, "[raw]", container{kind: containerChild, value: raw})),
	}
}
