package il

import (
	"testing"
)

func TestOpcodeEncoding(t *testing.T) {
	tests := []struct {
		op   Opcode
		name string
		size int
	}{
		{Nop, "nop", 1},
		{Ldarg0, "ldarg.0", 1},
		{LdcI47, "ldc.i4.7", 1},
		{BneUnS, "bne.un.s", 1},
		{BltUn, "blt.un", 1},
		{LdelemRef, "ldelem.ref", 1},
		{StelemRef, "stelem.ref", 1},
		{ConvOvfUUn, "conv.ovf.u.un", 1},
		{SubOvfUn, "sub.ovf.un", 1},
		{Ceq, "ceq", 2},
		{Ldloca, "ldloca", 2},
		{Readonly, "readonly.", 2},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.name {
			t.Errorf("%#04x: name %q, want %q", uint16(tt.op), got, tt.name)
		}
		if got := tt.op.Size(); got != tt.size {
			t.Errorf("%s: size %d, want %d", tt.name, got, tt.size)
		}
	}
	if b := Ceq.Bytes(); len(b) != 2 || b[0] != 0xFE || b[1] != 0x01 {
		t.Fatalf("ceq encodes as % x", b)
	}
}

func TestBranchForms(t *testing.T) {
	if BrS.Long() != Br || BltUnS.Long() != BltUn || LeaveS.Long() != Leave {
		t.Fatalf("short to long mapping is off")
	}
	if Brtrue.Short() != BrtrueS || Leave.Short() != LeaveS {
		t.Fatalf("long to short mapping is off")
	}
	if Add.Long() != Add || Add.Short() != Add {
		t.Fatalf("non-branches must map to themselves")
	}
	if !BeqS.IsShortBranch() || Beq.IsShortBranch() {
		t.Fatalf("IsShortBranch misclassifies")
	}
}

func TestStackEffects(t *testing.T) {
	tests := []struct {
		op        Opcode
		pop, push int8
	}{
		{Add, 2, 1},
		{Dup, 1, 2},
		{StelemI4, 3, 0},
		{Stfld, 2, 0},
		{Brtrue, 1, 0},
		{Beq, 2, 0},
		{Br, 0, 0},
		{Call, VarStack, VarStack},
		{Newobj, VarStack, 1},
	}
	for _, tt := range tests {
		info, ok := Lookup(tt.op)
		if !ok {
			t.Fatalf("%s missing from table", tt.op)
		}
		if info.Pop != tt.pop || info.Push != tt.push {
			t.Errorf("%s: pop/push %d/%d, want %d/%d", tt.op, info.Pop, info.Push, tt.pop, tt.push)
		}
	}
}

func TestDisassemble(t *testing.T) {
	code := []byte{
		0x02,       // ldarg.0
		0x2C, 0x03, // brfalse.s +3
		0x03,       // ldarg.1
		0x2B, 0x01, // br.s +1
		0x16,                                                 // ldc.i4.0
		0x45, 0x01, 0x00, 0x00, 0x00, 0xF6, 0xFF, 0xFF, 0xFF, // switch (-10)
		0x2A, // ret
	}
	got, err := Disassemble(code, nil)
	if err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	want := "IL_0000: ldarg.0\n" +
		"IL_0001: brfalse.s IL_0006\n" +
		"IL_0003: ldarg.1\n" +
		"IL_0004: br.s IL_0007\n" +
		"IL_0006: ldc.i4.0\n" +
		"IL_0007: switch (IL_0006)\n" +
		"IL_0010: ret\n"
	if got != want {
		t.Fatalf("disassembly:\n%s\nwant:\n%s", got, want)
	}
}

func TestDecodeRejectsTruncatedOperands(t *testing.T) {
	if _, err := Decode([]byte{0x20, 0x01}); err == nil {
		t.Fatalf("expected an error for a truncated ldc.i4")
	}
	if _, err := Decode([]byte{0xFE, 0x08}); err == nil {
		t.Fatalf("expected an error for an unassigned opcode")
	}
}
