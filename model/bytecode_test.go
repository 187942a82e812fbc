package model

import (
	"encoding/binary"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// linearProgram hand-assembles the bytecode for r = p*x - y (externals
// x=VAR0, y=VAR1; parameter p=PAR0).
func linearProgram() *Program {
	value := []Instr{
		{Op: OpOpd, Typ: TPar, Ind: 0},
		{Op: OpOpd, Typ: TVar, Ind: 0},
		{Op: OpMul},
		{Op: OpOpd, Typ: TVar, Ind: 1},
		{Op: OpSub},
		{Op: OpAss, Typ: TRes, Ind: 0},
		{Op: OpRet},
	}
	dxCol0 := []Instr{ // dr/dx = p
		{Op: OpOpd, Typ: TPar, Ind: 0},
		{Op: OpAss, Typ: TDRes, Ind: 0},
		{Op: OpRet},
	}
	dxCol1 := []Instr{ // dr/dy = -1
		{Op: OpNum, Ind: 0},
		{Op: OpAss, Typ: TDRes, Ind: 0},
		{Op: OpRet},
	}
	dpCol0 := []Instr{ // dr/dp = x
		{Op: OpOpd, Typ: TVar, Ind: 0},
		{Op: OpAss, Typ: TDRes, Ind: 0},
		{Op: OpRet},
	}
	return &Program{
		NConst: 1,
		Const:  []float64{-1},
		Value:  value,
		DX:     [][]Instr{dxCol0, dxCol1},
		DA:     [][]Instr{},
		DP:     [][]Instr{dpCol0},
	}
}

func TestBytecodeRoundTrip(tst *testing.T) {
	chk.PrintTitle("BytecodeRoundTrip")
	dims := Dims{NR: 1, NX: 2, NA: 0, NP: 1}
	ev := NewBytecodeEvaluator(dims, linearProgram())

	req := &Request{
		X:      vecmat.Vector{2, 3},
		P:      vecmat.Vector{1.5},
		WantR:  true,
		WantJX: true,
		WantJP: true,
		XMask:  []bool{true, true},
		PMask:  []bool{true},
	}
	res := &Result{
		R:  vecmat.NewVector(1),
		Jx: vecmat.NewMatrix(1, 2),
		Ja: vecmat.NewMatrix(1, 0),
		Jp: vecmat.NewMatrix(1, 1),
	}

	ok, flags := Call(ev, req, res)
	if !ok {
		tst.Fatalf("evaluation failed, flags=%+v", flags)
	}
	chk.Scalar(tst, "r", 1e-15, res.R[0], 0)
	chk.Scalar(tst, "dr/dx", 1e-15, res.Jx.At(0, 0), 1.5)
	chk.Scalar(tst, "dr/dy", 1e-15, res.Jx.At(0, 1), -1)
	chk.Scalar(tst, "dr/dp", 1e-15, res.Jp.At(0, 0), 2)
}

func TestDecodeProgramHeader(tst *testing.T) {
	chk.PrintTitle("DecodeProgramHeader")
	var buf []byte
	put16 := func(v int16) {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		buf = append(buf, b...)
	}
	put16(0)                     // nNum
	put16(0)                     // nTmp
	put16(int16(len(FileID)))    // id length
	buf = append(buf, FileID...) // id bytes
	put16(CodeVersion)           // version
	put16(int16(OpRet))          // minimal value section: RET
	put16(int16(OpStop))         // STOP

	prog, err := DecodeProgram(buf)
	if err != nil {
		tst.Fatalf("decode failed: %v", err)
	}
	if len(prog.Value) != 1 || prog.Value[0].Op != OpRet {
		tst.Errorf("unexpected value section: %+v", prog.Value)
	}
}

func TestDecodeProgramVersionMismatch(tst *testing.T) {
	chk.PrintTitle("DecodeProgramVersionMismatch")
	var buf []byte
	put16 := func(v int16) {
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(v))
		buf = append(buf, b...)
	}
	put16(0)
	put16(0)
	put16(int16(len(FileID)))
	buf = append(buf, FileID...)
	put16(CodeVersion + 1)
	_, err := DecodeProgram(buf)
	if err == nil {
		tst.Fatalf("expected version mismatch error")
	}
}
