package asm

import "testing"

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestLexBlankAndComment(t *testing.T) {
	for _, src := range []string{"", "   ", "; just a comment", "   ; leading ws then comment"} {
		l, err := lexLine(src, 1)
		assert(t, err == nil, "unexpected error for %q: %v", src, err)
		assert(t, l.Kind == LineBlank, "expected blank line for %q, got %v", src, l.Kind)
	}
}

func TestLexLabel(t *testing.T) {
	l, err := lexLine("loop:", 1)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, l.Kind == LineLabel, "expected label, got %v", l.Kind)
	assert(t, l.Label == "loop", "expected label 'loop', got %q", l.Label)
}

func TestLexLabelRejectsInvalidName(t *testing.T) {
	_, err := lexLine("9bad:", 1)
	assert(t, err != nil, "expected error for label starting with a digit")
}

func TestLexInstructionSplitsOnCommasAndSpaces(t *testing.T) {
	l, err := lexLine("mov r0, 5", 1)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, l.Kind == LineInstruction, "expected instruction, got %v", l.Kind)
	assert(t, l.Instr.Mnemonic == "MOV", "expected upper-cased mnemonic, got %q", l.Instr.Mnemonic)
	assert(t, len(l.Instr.Operands) == 2, "expected 2 operands, got %d", len(l.Instr.Operands))
	assert(t, l.Instr.Operands[0] == "r0", "expected r0, got %q", l.Instr.Operands[0])
	assert(t, l.Instr.Operands[1] == "5", "expected 5, got %q", l.Instr.Operands[1])
}

func TestLexInstructionStripsTrailingComment(t *testing.T) {
	l, err := lexLine("INC r0 ; bump the counter", 1)
	assert(t, err == nil, "unexpected error: %v", err)
	assert(t, l.Instr.Mnemonic == "INC", "got mnemonic %q", l.Instr.Mnemonic)
	assert(t, len(l.Instr.Operands) == 1 && l.Instr.Operands[0] == "r0", "got operands %v", l.Instr.Operands)
}

func TestIsRegisterToken(t *testing.T) {
	cases := []struct {
		tok     string
		wantIdx int
		wantOK  bool
	}{
		{"r0", 0, true},
		{"r7", 7, true},
		{"r8", 0, false},
		{"R0", 0, false},
		{"x0", 0, false},
	}
	for _, c := range cases {
		idx, ok := isRegisterToken(c.tok)
		assert(t, ok == c.wantOK, "isRegisterToken(%q) ok = %v, want %v", c.tok, ok, c.wantOK)
		if ok {
			assert(t, idx == c.wantIdx, "isRegisterToken(%q) = %d, want %d", c.tok, idx, c.wantIdx)
		}
	}
}

func TestIsNumericToken(t *testing.T) {
	cases := []struct {
		tok    string
		want   int
		wantOK bool
	}{
		{"42", 42, true},
		{"0", 0, true},
		{"0x2A", 42, true},
		{"0xff", 255, true},
		{"label", 0, false},
		{"-1", 0, false},
	}
	for _, c := range cases {
		v, ok := isNumericToken(c.tok)
		assert(t, ok == c.wantOK, "isNumericToken(%q) ok = %v, want %v", c.tok, ok, c.wantOK)
		if ok {
			assert(t, v == c.want, "isNumericToken(%q) = %d, want %d", c.tok, v, c.want)
		}
	}
}
