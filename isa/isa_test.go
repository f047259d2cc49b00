package isa

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestByMnemonicByOpcodeAgree(t *testing.T) {
	for mnemonic, def := range ByMnemonic {
		got, ok := ByOpcode[def.Opcode]
		assert(t, ok, "opcode %#x for %s missing from ByOpcode", def.Opcode, mnemonic)
		assert(t, got.Opcode == def.Opcode, "opcode mismatch for %s", mnemonic)
	}
}

func TestHLTIsHaltAlias(t *testing.T) {
	hlt, ok := ByMnemonic["HLT"]
	assert(t, ok, "HLT should be registered")
	halt, ok := ByMnemonic["HALT"]
	assert(t, ok, "HALT should be registered")
	assert(t, hlt.Opcode == halt.Opcode, "HLT should alias HALT's opcode")
}

func TestSizeIncludesOpcodeByte(t *testing.T) {
	cases := []struct {
		mnemonic string
		wantSize int
	}{
		{"RET", 1},
		{"HALT", 1},
		{"INC", 2},
		{"OUT", 2},
		{"CALL", 2},
		{"JMP", 2},
		{"MOV", 3},
		{"LOAD", 3},
		{"STORE", 3},
		{"ADD", 3},
		{"CMP", 3},
	}

	for _, c := range cases {
		def, ok := ByMnemonic[c.mnemonic]
		assert(t, ok, "missing def for %s", c.mnemonic)
		assert(t, def.Size() == c.wantSize, "%s: got size %d, want %d", c.mnemonic, def.Size(), c.wantSize)
	}
}
