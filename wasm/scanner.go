//go:build wasm

package main

import (
	"encoding/json"
	"sync"
	"syscall/js"

	"github.com/praetorian-inc/overcol"
)

var (
	engines   = make(map[int]*overcol.Engine)
	enginesMu sync.RWMutex
	nextID    int
)

// engineOptions is the JSON accepted by OvercolNewEngine. Zero values keep
// the engine defaults.
type engineOptions struct {
	Limit           int      `json:"limit"`
	IncludeComments *bool    `json:"include_comments"`
	TabWidth        int      `json:"tab_width"`
	Exclude         []string `json:"exclude"`
}

func (o engineOptions) options() []overcol.Option {
	var opts []overcol.Option
	if o.Limit != 0 {
		opts = append(opts, overcol.WithLimit(o.Limit))
	}
	if o.IncludeComments != nil {
		opts = append(opts, overcol.WithIncludeComments(*o.IncludeComments))
	}
	if o.TabWidth != 0 {
		opts = append(opts, overcol.WithTabWidth(o.TabWidth))
	}
	if len(o.Exclude) > 0 {
		opts = append(opts, overcol.WithExclude(o.Exclude...))
	}
	return opts
}

// newEngine creates an engine from an options JSON object.
// JS: OvercolNewEngine(optionsJSON) -> {handle} or {error}
func newEngine(this js.Value, args []js.Value) interface{} {
	var o engineOptions
	if len(args) > 0 && args[0].String() != "" {
		if err := json.Unmarshal([]byte(args[0].String()), &o); err != nil {
			return map[string]interface{}{"error": "failed to parse options JSON: " + err.Error()}
		}
	}

	engine, err := overcol.NewEngine(o.options()...)
	if err != nil {
		return map[string]interface{}{"error": "failed to create engine: " + err.Error()}
	}

	enginesMu.Lock()
	id := nextID
	nextID++
	engines[id] = engine
	enginesMu.Unlock()

	return map[string]interface{}{"handle": id}
}

// check checks content and returns its findings.
// JS: OvercolCheck(handle, content, path) -> JSON findings or {error}
func check(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return map[string]interface{}{"error": "handle and content arguments required"}
	}

	handle := args[0].Int()
	content := args[1].String()
	path := ""
	if len(args) > 2 {
		path = args[2].String()
	}

	enginesMu.RLock()
	engine, ok := engines[handle]
	enginesMu.RUnlock()

	if !ok {
		return map[string]interface{}{"error": "invalid engine handle"}
	}

	findings := engine.CheckString(path, content)
	if findings == nil {
		findings = []*overcol.Finding{}
	}

	jsonBytes, err := json.Marshal(findings)
	if err != nil {
		return map[string]interface{}{"error": "failed to marshal findings: " + err.Error()}
	}

	return string(jsonBytes)
}

// closeEngine releases an engine.
// JS: OvercolCloseEngine(handle)
func closeEngine(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return map[string]interface{}{"error": "handle argument required"}
	}

	handle := args[0].Int()

	enginesMu.Lock()
	_, ok := engines[handle]
	delete(engines, handle)
	enginesMu.Unlock()

	if !ok {
		return map[string]interface{}{"error": "invalid engine handle"}
	}
	return nil
}
