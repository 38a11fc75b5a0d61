package serve

import (
	"encoding/json"

	"github.com/praetorian-inc/overcol/pkg/style"
	"github.com/praetorian-inc/overcol/pkg/types"
)

// Request represents an incoming NDJSON request
type Request struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Request types
const (
	TypeOpen     = "open"
	TypeCloseDoc = "close_doc"
	TypeEdit     = "edit"
	TypeSync     = "sync"
	TypeRender   = "render"
	TypeEnable   = "enable"
	TypeDisable  = "disable"
	TypeToggle   = "toggle"
	TypeSetLimit = "set_limit"
	TypeMarkers  = "markers"
	TypeGlobal   = "global"
	TypeClose    = "close"
	TypeReady    = "ready"
	TypeDecode   = "decode"
	TypeUnknown  = "unknown"
)

// OpenPayload is the payload for "open" requests. ID is generated when
// empty.
type OpenPayload struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// DocPayload addresses an open document. It is the payload of "close_doc",
// "enable", "disable", "toggle" and the preset requests.
type DocPayload struct {
	ID string `json:"id"`
}

// EditPayload replaces the bytes in [Start, End) with Text.
type EditPayload struct {
	ID    string `json:"id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// SyncPayload replaces the whole text; the server diffs it against the
// current text and applies the minimal edits.
type SyncPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// RangePayload is the payload for "render" and "markers" requests. A
// "markers" request without a range returns every marker.
type RangePayload struct {
	ID    string `json:"id"`
	Start *int   `json:"start,omitempty"`
	End   *int   `json:"end,omitempty"`
}

// SetLimitPayload is the payload for "set_limit" requests.
type SetLimitPayload struct {
	ID    string `json:"id"`
	Limit int    `json:"limit"`
}

// GlobalPayload is the payload for "global" requests.
type GlobalPayload struct {
	Enabled bool `json:"enabled"`
}

// Response represents an outgoing NDJSON response
type Response struct {
	Success bool            `json:"success"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ReadyData is the data field for "ready" responses. Highlight is the
// resolved marker face.
type ReadyData struct {
	Version   string           `json:"version"`
	Presets   []int            `json:"presets"`
	Global    bool             `json:"global"`
	Highlight style.Descriptor `json:"highlight"`
}

// DocState describes a document after a request.
type DocState struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Language string         `json:"language,omitempty"`
	Category string         `json:"category"`
	State    string         `json:"state"`
	Label    string         `json:"label"`
	Limit    int            `json:"limit"`
	Version  uint64         `json:"version"`
	Markers  []types.Marker `json:"markers"`
}

// GlobalData is the data field for "global" responses.
type GlobalData struct {
	Enabled   bool `json:"enabled"`
	Documents int  `json:"documents"`
}
