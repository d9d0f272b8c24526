//go:build js && wasm
// +build js,wasm

package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/modes"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/pkg/encryption/symmetric"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/protocol"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/services/cipher"
)

func errorObject(err error) js.Value {
	obj := js.Global().Get("Object").New()
	obj.Set("error", err.Error())
	obj.Set("kind", symmetric.Classify(err).String())
	return obj
}

// cipherFunc wraps one direction as WasmCrypto.X(paramsJSON, dataHex) -> {output} | {error, kind}
func cipherFunc(svc *cipher.Service, op protocol.Operation) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) (result any) {
		defer func() {
			if r := recover(); r != nil {
				result = errorObject(fmt.Errorf("panic: %v", r))
			}
		}()

		if len(args) < 2 {
			return errorObject(fmt.Errorf("insufficient args"))
		}
		var params protocol.CipherParams
		if err := json.Unmarshal([]byte(args[0].String()), &params); err != nil {
			return errorObject(fmt.Errorf("invalid params json: %w", err))
		}
		data, err := hex.DecodeString(args[1].String())
		if err != nil {
			return errorObject(fmt.Errorf("invalid data hex: %w", err))
		}

		c, err := svc.NewContext(params)
		if err != nil {
			return errorObject(err)
		}
		var out []byte
		if op == protocol.Decrypt {
			out, err = c.Decrypt(context.Background(), data)
		} else {
			out, err = c.Encrypt(context.Background(), data)
		}
		if err != nil {
			return errorObject(err)
		}

		obj := js.Global().Get("Object").New()
		obj.Set("output", hex.EncodeToString(out))
		return obj
	})
}

func registerWasm(svc *cipher.Service) {
	// WasmCrypto.GenerateIV(algorithm, mode) -> hex, empty for ECB
	generateIV := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) < 2 {
			return errorObject(fmt.Errorf("insufficient args"))
		}
		c, err := encryption.NewBlockCipher(args[0].String())
		if err != nil {
			return errorObject(err)
		}
		kind, err := modes.ParseKind(args[1].String())
		if err != nil {
			return errorObject(err)
		}
		iv, err := symmetric.GenerateIV(kind, c.BlockSize())
		if err != nil {
			return errorObject(err)
		}
		return js.ValueOf(hex.EncodeToString(iv))
	})

	// WasmCrypto.Algorithms() -> json string
	algorithms := js.FuncOf(func(this js.Value, args []js.Value) any {
		b, _ := json.Marshal(svc.Algorithms())
		return js.ValueOf(string(b))
	})

	wasmObj := js.Global().Get("WasmCrypto")
	// Check if WasmCrypto exists by attempting to get it
	if wasmObj.Type() == js.TypeUndefined {
		wasmObj = js.Global().Get("Object").New()
		js.Global().Set("WasmCrypto", wasmObj)
	}
	wasmObj.Set("Encrypt", cipherFunc(svc, protocol.Encrypt))
	wasmObj.Set("Decrypt", cipherFunc(svc, protocol.Decrypt))
	wasmObj.Set("GenerateIV", generateIV)
	wasmObj.Set("Algorithms", algorithms)
}
