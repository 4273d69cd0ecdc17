package host

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Canonical mode keeps the encoding deterministic, so equal outcomes
// produce equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("host: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// outcomeWire is the serialized layout of an Outcome.
type outcomeWire struct {
	Success       bool           `cbor:"1,keyasint"`
	CompileErrors []CompileError `cbor:"2,keyasint,omitempty"`
	RuntimeError  string         `cbor:"3,keyasint,omitempty"`
	RuntimeLine   uint           `cbor:"4,keyasint,omitempty"`
}

// MarshalOutcome serializes an Outcome to CBOR bytes.
func MarshalOutcome(o *Outcome) ([]byte, error) {
	return cborEncMode.Marshal(outcomeWire{
		Success:       o.success,
		CompileErrors: o.compileErrors,
		RuntimeError:  o.runtimeError,
		RuntimeLine:   o.runtimeLine,
	})
}

// UnmarshalOutcome deserializes an Outcome from CBOR bytes, rejecting
// payloads that do not describe exactly one of the three outcome states.
func UnmarshalOutcome(data []byte) (*Outcome, error) {
	var w outcomeWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("host: unmarshal outcome: %w", err)
	}
	o := &Outcome{
		success:       w.Success,
		compileErrors: w.CompileErrors,
		runtimeError:  w.RuntimeError,
		runtimeLine:   w.RuntimeLine,
	}
	if err := o.Validate(); err != nil {
		return nil, fmt.Errorf("host: unmarshal outcome: %w", err)
	}
	return o, nil
}

// MarshalCBOR implements cbor.Marshaler.
func (o *Outcome) MarshalCBOR() ([]byte, error) {
	return MarshalOutcome(o)
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (o *Outcome) UnmarshalCBOR(data []byte) error {
	decoded, err := UnmarshalOutcome(data)
	if err != nil {
		return err
	}
	*o = *decoded
	return nil
}
