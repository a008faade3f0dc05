package ir

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// File layout: magic, BLAKE2b-256 of the payload, canonical CBOR payload.
var magicV1 = [4]byte{'C', 'D', 'K', '1'}

var (
	ErrBadMagic    = errors.New("not a ComputeDuck bytecode file")
	ErrBadChecksum = errors.New("bytecode checksum mismatch")
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ir: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireInstruction struct {
	_  struct{} `cbor:",toarray"`
	Op OpCode
	A  int
	B  int
	C  int
}

type wireConstant struct {
	Kind   ConstKind     `cbor:"1,keyasint"`
	Number float64       `cbor:"2,keyasint,omitempty"`
	String string        `cbor:"3,keyasint,omitempty"`
	Bool   bool          `cbor:"4,keyasint,omitempty"`
	Func   *wireFunction `cbor:"5,keyasint,omitempty"`
}

type wireFunction struct {
	Name                string            `cbor:"1,keyasint"`
	NumParams           int               `cbor:"2,keyasint"`
	NumLocals           int               `cbor:"3,keyasint"`
	Depth               int               `cbor:"4,keyasint"`
	IsStructConstructor bool              `cbor:"5,keyasint,omitempty"`
	Code                []wireInstruction `cbor:"6,keyasint"`
	Consts              []wireConstant    `cbor:"7,keyasint"`
	Lines               []int             `cbor:"8,keyasint"`
}

type wireUnit struct {
	ID     string        `cbor:"1,keyasint"`
	Source string        `cbor:"2,keyasint"`
	Main   *wireFunction `cbor:"3,keyasint"`
}

func toWire(fn *Function) *wireFunction {
	if fn == nil {
		return nil
	}
	w := &wireFunction{
		Name:                fn.Name,
		NumParams:           fn.NumParams,
		NumLocals:           fn.NumLocals,
		Depth:               fn.Depth,
		IsStructConstructor: fn.IsStructConstructor,
		Code:                make([]wireInstruction, len(fn.Chunk.Code)),
		Consts:              make([]wireConstant, len(fn.Chunk.Consts)),
		Lines:               fn.Chunk.Lines,
	}
	for i, in := range fn.Chunk.Code {
		w.Code[i] = wireInstruction{Op: in.Op, A: in.A, B: in.B, C: in.C}
	}
	for i, c := range fn.Chunk.Consts {
		w.Consts[i] = wireConstant{
			Kind:   c.Kind,
			Number: c.Number,
			String: c.String,
			Bool:   c.Bool,
			Func:   toWire(c.Func),
		}
	}
	return w
}

func fromWire(w *wireFunction) (*Function, error) {
	if w == nil {
		return nil, fmt.Errorf("missing function")
	}
	if len(w.Lines) != len(w.Code) {
		return nil, fmt.Errorf("function %s: %d lines for %d instructions", w.Name, len(w.Lines), len(w.Code))
	}
	fn := &Function{
		Name:                w.Name,
		NumParams:           w.NumParams,
		NumLocals:           w.NumLocals,
		Depth:               w.Depth,
		IsStructConstructor: w.IsStructConstructor,
	}
	fn.Chunk.Code = make([]Instruction, len(w.Code))
	for i, in := range w.Code {
		fn.Chunk.Code[i] = Instruction{Op: in.Op, A: in.A, B: in.B, C: in.C}
	}
	fn.Chunk.Lines = w.Lines
	fn.Chunk.Consts = make([]Constant, len(w.Consts))
	for i, c := range w.Consts {
		fn.Chunk.Consts[i] = Constant{Kind: c.Kind, Number: c.Number, String: c.String, Bool: c.Bool}
		if c.Kind == ConstFunction {
			sub, err := fromWire(c.Func)
			if err != nil {
				return nil, fmt.Errorf("function %s: const %d: %w", w.Name, i, err)
			}
			fn.Chunk.Consts[i].Func = sub
		}
	}
	if err := validate(fn); err != nil {
		return nil, fmt.Errorf("function %s: %w", w.Name, err)
	}
	return fn, nil
}

// validate checks what the VM indexes without bounds checks: opcodes,
// constant indices, jump targets and local slots. Global indices and
// stack depths are checked by the VM at run time.
func validate(fn *Function) error {
	if fn.NumParams < 0 || fn.NumLocals < fn.NumParams {
		return fmt.Errorf("%d locals for %d parameters", fn.NumLocals, fn.NumParams)
	}
	ch := &fn.Chunk
	for i, c := range ch.Consts {
		if c.Kind < ConstNumber || c.Kind > ConstFunction {
			return fmt.Errorf("const %d: unknown kind %d", i, c.Kind)
		}
	}
	for ip, in := range ch.Code {
		if err := validateInstruction(ch, in); err != nil {
			return fmt.Errorf("instruction %d (%s): %w", ip, in.Op, err)
		}
	}
	return nil
}

func validateInstruction(ch *Chunk, in Instruction) error {
	if int(in.Op) >= len(opNames) {
		return fmt.Errorf("unknown opcode %d", in.Op)
	}
	switch in.Op {
	case OpConstant:
		if in.A < 0 || in.A >= len(ch.Consts) {
			return fmt.Errorf("constant %d outside pool of %d", in.A, len(ch.Consts))
		}
	case OpJump, OpJumpIfFalse:
		if in.A < 0 || in.A > len(ch.Code) {
			return fmt.Errorf("jump target %d outside code of %d", in.A, len(ch.Code))
		}
	case OpDefGlobal, OpSetGlobal, OpGetGlobal, OpRefGlobal, OpRefIndexGlobal,
		OpArray, OpStruct, OpFunctionCall:
		if in.A < 0 {
			return fmt.Errorf("negative operand %d", in.A)
		}
	case OpDefLocal, OpSetLocal, OpGetLocal, OpRefLocal, OpRefIndexLocal:
		if in.A < 0 || in.B < 0 || (in.C != 0 && in.C != 1) {
			return fmt.Errorf("bad local operands %d %d %d", in.A, in.B, in.C)
		}
	case OpReturn:
		if in.A != 0 && in.A != 1 {
			return fmt.Errorf("bad return flag %d", in.A)
		}
	case OpSpOffset:
		if in.B < 0 {
			return fmt.Errorf("negative block base %d", in.B)
		}
	}
	return nil
}

// Marshal encodes a unit into the bytecode file format.
func Marshal(u *Unit) ([]byte, error) {
	payload, err := cborEncMode.Marshal(wireUnit{ID: u.ID, Source: u.Source, Main: toWire(u.Main)})
	if err != nil {
		return nil, fmt.Errorf("ir: marshal unit: %w", err)
	}
	sum := blake2b.Sum256(payload)

	var buf bytes.Buffer
	buf.Grow(len(magicV1) + len(sum) + len(payload))
	buf.Write(magicV1[:])
	buf.Write(sum[:])
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Unmarshal decodes and verifies a bytecode file.
func Unmarshal(data []byte) (*Unit, error) {
	header := len(magicV1) + blake2b.Size256
	if len(data) < header || !bytes.Equal(data[:len(magicV1)], magicV1[:]) {
		return nil, ErrBadMagic
	}
	payload := data[header:]
	sum := blake2b.Sum256(payload)
	if !bytes.Equal(sum[:], data[len(magicV1):header]) {
		return nil, ErrBadChecksum
	}

	var w wireUnit
	if err := cbor.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("ir: unmarshal unit: %w", err)
	}
	main, err := fromWire(w.Main)
	if err != nil {
		return nil, fmt.Errorf("ir: unmarshal unit: %w", err)
	}
	return &Unit{ID: w.ID, Source: w.Source, Main: main}, nil
}

func WriteUnit(w io.Writer, u *Unit) error {
	data, err := Marshal(u)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func ReadUnit(r io.Reader) (*Unit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

func WriteUnitToFile(filename string, u *Unit) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteUnit(f, u)
}

func ReadUnitFromFile(filename string) (*Unit, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadUnit(f)
}
