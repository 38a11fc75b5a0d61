//go:build wasm

package main

import (
	"syscall/js"
)

func main() {
	// Export functions to JavaScript
	js.Global().Set("OvercolNewEngine", js.FuncOf(newEngine))
	js.Global().Set("OvercolCheck", js.FuncOf(check))
	js.Global().Set("OvercolCloseEngine", js.FuncOf(closeEngine))

	// Keep WASM running
	<-make(chan struct{})
}
