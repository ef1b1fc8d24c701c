// Package jsoncodec is a concrete stand-in for the out-of-scope "payload
// codec" collaborator (spec §1): encode(args) -> bytes, decode(bytes) ->
// value, built on encoding/json. The harness core never imports this
// package directly — it is only used by service implementations, demos, and
// tests.
package jsoncodec

import "encoding/json"

// Encode marshals v to JSON bytes. A successful Encode never yields an
// empty byte slice (a nil v marshals to "null") — empty bytes are reserved
// for void returns.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode unmarshals data into out, which must be a pointer.
func Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

// EncodeError renders err as plain text bytes, suitable for a Response's
// Data field on StatusFailed (spec §1: "a structured error description
// round-trips as bytes").
func EncodeError(err error) []byte {
	if err == nil {
		return nil
	}
	return []byte(err.Error())
}
