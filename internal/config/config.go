// Package config decodes the JSON arguments carried by launch, attach, and
// the custom displaySettings request.
package config

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// TerminalKind selects how a launched inferior's stdio is routed.
type TerminalKind string

const (
	TerminalNone       TerminalKind = "none"
	TerminalConsole    TerminalKind = "console"
	TerminalExternal   TerminalKind = "external"
	TerminalIntegrated TerminalKind = "integrated"
)

// StdioRedirect names an explicit file to bind to one fd of the inferior.
type StdioRedirect struct {
	Path string `json:"path"`
}

// LaunchArguments is the decoded body of a launch request.
type LaunchArguments struct {
	Program     string            `json:"program"`
	Args        []string          `json:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Cwd         string            `json:"cwd,omitempty"`
	StopOnEntry bool              `json:"stopOnEntry,omitempty"`
	Terminal    TerminalKind      `json:"terminal,omitempty"`
	Stdio       []StdioRedirect   `json:"stdio,omitempty"`
	SourceMap   [][2]string       `json:"sourceMap,omitempty"`

	InitCommands    []string `json:"initCommands,omitempty"`
	PreRunCommands  []string `json:"preRunCommands,omitempty"`
	PostRunCommands []string `json:"postRunCommands,omitempty"`
	ExitCommands    []string `json:"exitCommands,omitempty"`
}

// ParseLaunchArguments decodes a launch request's raw JSON arguments.
func ParseLaunchArguments(raw json.RawMessage) (*LaunchArguments, error) {
	args := &LaunchArguments{Terminal: TerminalConsole}
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, args); err != nil {
		return nil, err
	}
	return args, nil
}

// AttachArguments is the decoded body of an attach request. Exactly one of
// PID or Program should be set: PID attaches directly, Program attaches (or
// waits to attach, if WaitFor) by matching process name.
type AttachArguments struct {
	PID     uint64 `json:"pid,omitempty"`
	Program string `json:"program,omitempty"`
	WaitFor bool   `json:"waitFor,omitempty"`

	InitCommands    []string    `json:"initCommands,omitempty"`
	PostRunCommands []string    `json:"postRunCommands,omitempty"`
	ExitCommands    []string    `json:"exitCommands,omitempty"`
	SourceMap       [][2]string `json:"sourceMap,omitempty"`
}

// ParseAttachArguments decodes an attach request's raw JSON arguments.
func ParseAttachArguments(raw json.RawMessage) (*AttachArguments, error) {
	args := &AttachArguments{}
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, args); err != nil {
		return nil, err
	}
	return args, nil
}

// DisplayFormat is the tri-state global_format knob.
type DisplayFormat string

const (
	DisplayFormatAuto    DisplayFormat = "auto"
	DisplayFormatDecimal DisplayFormat = "decimal"
	DisplayFormatHex     DisplayFormat = "hex"
	DisplayFormatBinary  DisplayFormat = "binary"
)

// ShowDisassembly is the tri-state source/disassembly policy.
type ShowDisassembly string

const (
	ShowDisassemblyAuto   ShowDisassembly = "auto"
	ShowDisassemblyAlways ShowDisassembly = "always"
	ShowDisassemblyNever  ShowDisassembly = "never"
)

// DisplaySettingsPatch holds only the fields the caller actually supplied;
// a nil field means "leave as-is" per the displaySettings tri-state contract.
type DisplaySettingsPatch struct {
	DisplayFormat       *DisplayFormat
	ShowDisassembly     *ShowDisassembly
	DereferencePointers *bool
	ContainerSummary    *bool
}

// ParseDisplaySettings reads only the fields present in raw, using gjson so
// that an absent field and an explicit `null` both resolve to "no change"
// without needing a pointer-to-pointer decode target.
func ParseDisplaySettings(raw json.RawMessage) DisplaySettingsPatch {
	var patch DisplaySettingsPatch
	if len(raw) == 0 {
		return patch
	}

	if v := gjson.GetBytes(raw, "displayFormat"); v.Exists() && v.Type == gjson.String {
		f := DisplayFormat(v.String())
		patch.DisplayFormat = &f
	}
	if v := gjson.GetBytes(raw, "showDisassembly"); v.Exists() && v.Type == gjson.String {
		s := ShowDisassembly(v.String())
		patch.ShowDisassembly = &s
	}
	if v := gjson.GetBytes(raw, "dereferencePointers"); v.Exists() && v.Type != gjson.Null {
		b := v.Bool()
		patch.DereferencePointers = &b
	}
	if v := gjson.GetBytes(raw, "containerSummary"); v.Exists() && v.Type != gjson.Null {
		b := v.Bool()
		patch.ContainerSummary = &b
	}
	return patch
}

// RedactForLog returns raw launch/attach arguments with the env map blanked
// out, safe to pass to a debug-level log line without leaking inferior
// secrets through the adapter's own log file.
func RedactForLog(raw json.RawMessage) string {
	if len(raw) == 0 || !gjson.GetBytes(raw, "env").Exists() {
		return string(raw)
	}
	out, err := sjson.SetBytes(raw, "env", "<redacted>")
	if err != nil {
		return string(raw)
	}
	return string(out)
}
