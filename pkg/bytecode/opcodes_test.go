package bytecode

import "testing"

func TestOpcodeNames(t *testing.T) {
	cases := map[Opcode]string{
		OpPush:         "push",
		OpRet:          "ret",
		OpAllocTensor:  "alloc_tensor",
		OpInvokePacked: "invoke_packed",
		OpIf:           "if",
		OpInvoke:       "invoke",
	}
	for op, want := range cases {
		if got := op.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", op, got, want)
		}
	}
}

func TestStackEffect(t *testing.T) {
	cases := []struct {
		op    Opcode
		delta int
	}{
		{OpPush, 1},
		{OpAllocTensor, 1},
		{OpIf, -1},
		{OpRet, 0},
		{OpInvoke, 0},
	}
	for _, c := range cases {
		delta, dependent := c.op.StackEffect()
		if dependent {
			t.Errorf("%v: unexpectedly opcode-dependent", c.op)
			continue
		}
		if delta != c.delta {
			t.Errorf("%v.StackEffect() = %d, want %d", c.op, delta, c.delta)
		}
	}

	if _, dependent := OpInvokePacked.StackEffect(); !dependent {
		t.Error("OpInvokePacked.StackEffect() should be opcode-dependent (net -(n-1))")
	}
}
