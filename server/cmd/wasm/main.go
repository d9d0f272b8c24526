//go:build js && wasm
// +build js,wasm

package main

import (
	"flag"
	"fmt"
	"syscall/js"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/config"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/services/cipher"
)

func main() {
	// there is no file system to put glog files in
	flag.Set("logtostderr", "true")
	fmt.Println("WASM Crypto Module Initialized")

	// Register all WASM functions
	registerWasm(cipher.NewService(config.Load()))

	// Export a ready flag to signal that WASM is ready
	js.Global().Set("WasmReady", js.ValueOf(true))
	fmt.Println("WASM module ready: WasmReady = true")

	// Keep the program running indefinitely
	// This is required for Go WASM programs
	<-make(chan struct{})
}
