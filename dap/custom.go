package dap

import "github.com/google/go-dap"

// DisplaySettingsArguments are the tri-state display knobs (§ displaySettings
// arguments). A zero value for any field means "leave unchanged"; string
// fields use the empty string and bool fields are carried as *bool at the
// transport boundary in internal/config, which is what actually
// distinguishes "absent" from "false".
type DisplaySettingsArguments struct {
	DisplayFormat       string `json:"displayFormat,omitempty"`
	ShowDisassembly     string `json:"showDisassembly,omitempty"`
	DereferencePointers *bool  `json:"dereferencePointers,omitempty"`
	ContainerSummary    *bool  `json:"containerSummary,omitempty"`
}

// DisplaySettingsRequest is a non-standard request this adapter accepts in
// addition to the requests defined by the DAP specification itself. go-dap
// decodes requests it doesn't recognize into a generic *dap.Request with the
// raw arguments still in dap.Request.Arguments; the server's dispatch loop
// re-decodes that into this type when Command == "displaySettings".
type DisplaySettingsRequest struct {
	dap.Request
	Arguments DisplaySettingsArguments `json:"arguments,omitempty"`
}

func (r *DisplaySettingsRequest) GetRequest() *dap.Request { return &r.Request }

// DisplaySettingsResponse carries no body: displaySettings only ever
// succeeds or fails.
type DisplaySettingsResponse struct {
	dap.Response
}

func (r *DisplaySettingsResponse) GetResponse() *dap.Response { return &r.Response }
