package harness

import "context"

// Dispatcher is the contract the out-of-scope "interface-reflection layer"
// collaborator must satisfy (§1, §6): given a method tag and encoded
// argument bytes, invoke the corresponding method on impl and return
// encoded return bytes (or an error if decoding or invocation failed). The
// harness core only ever talks to this interface — package service
// provides a concrete, hand-registered stand-in; a real deployment would
// swap in generated code.
type Dispatcher interface {
	// Dispatch decodes args, invokes the method named by tag on impl, and
	// returns the encoded return value (empty for void). tag is guaranteed
	// by the caller to satisfy Has(tag) and to not equal ShutdownTag.
	Dispatch(ctx context.Context, impl any, tag MethodTag, args []byte) ([]byte, error)

	// Pretty returns a human-readable name for tag, used to build the
	// filtered-method failure message (§4.4 handle() step 1).
	Pretty(tag MethodTag) string

	// Has reports whether tag names a registered method.
	Has(tag MethodTag) bool
}
