package bytecode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arborlang/tvmcore/pkg/ir"
)

// Disassemble renders instr in the textual form used for diagnostics:
//
//	push <s>
//	ret
//	alloc_tensor(<d0>, <d1>, …) <dtype>
//	invoke_packed <i> <n>
//	if <t> <f>
//	invoke <i>
func Disassemble(instr Instruction) string {
	switch instr.Op {
	case OpPush:
		return fmt.Sprintf("push %d", instr.Slot)
	case OpRet:
		return "ret"
	case OpAllocTensor:
		dims := make([]string, len(instr.Shape))
		for i, d := range instr.Shape {
			dims[i] = strconv.FormatInt(d, 10)
		}
		return fmt.Sprintf("alloc_tensor(%s) %s", strings.Join(dims, ", "), instr.DType)
	case OpInvokePacked:
		return fmt.Sprintf("invoke_packed %d %d", instr.PackedIndex, instr.Arity)
	case OpIf:
		return fmt.Sprintf("if %d %d", instr.TrueOffset, instr.FalseOffset)
	case OpInvoke:
		return fmt.Sprintf("invoke %d", instr.FuncIndex)
	default:
		return fmt.Sprintf("<unknown opcode %v>", instr.Op)
	}
}

// ParseInstruction parses the textual form Disassemble produces, back into
// an Instruction. It exists for the round-trip property test: opcode and
// operand fields must survive Disassemble followed by ParseInstruction
// unchanged.
func ParseInstruction(text string) (Instruction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Instruction{}, fmt.Errorf("bytecode: empty instruction text")
	}
	if strings.HasPrefix(text, "alloc_tensor(") {
		return parseAllocTensor(text)
	}

	fields := strings.Fields(text)
	switch fields[0] {
	case "push":
		slot, err := strconv.Atoi(fields[1])
		if err != nil {
			return Instruction{}, fmt.Errorf("bytecode: parsing push slot: %w", err)
		}
		return Push(slot), nil

	case "ret":
		return Ret(), nil

	case "invoke_packed":
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return Instruction{}, fmt.Errorf("bytecode: parsing invoke_packed index: %w", err)
		}
		arity, err := strconv.Atoi(fields[2])
		if err != nil {
			return Instruction{}, fmt.Errorf("bytecode: parsing invoke_packed arity: %w", err)
		}
		return InvokePacked(idx, arity), nil

	case "if":
		t, err := strconv.Atoi(fields[1])
		if err != nil {
			return Instruction{}, fmt.Errorf("bytecode: parsing if true_offset: %w", err)
		}
		f, err := strconv.Atoi(fields[2])
		if err != nil {
			return Instruction{}, fmt.Errorf("bytecode: parsing if false_offset: %w", err)
		}
		return If(t, f), nil

	case "invoke":
		idx, err := strconv.Atoi(fields[1])
		if err != nil {
			return Instruction{}, fmt.Errorf("bytecode: parsing invoke index: %w", err)
		}
		return Invoke(idx), nil

	default:
		return Instruction{}, fmt.Errorf("bytecode: unrecognized instruction text %q", text)
	}
}

// parseAllocTensor parses the whole "alloc_tensor(<d0>, <d1>, …) <dtype>"
// text by locating the parenthesized shape span directly, rather than
// splitting on whitespace first: Disassemble joins shape dimensions with
// ", ", so a shape of two or more dimensions contains spaces of its own
// and cannot be recovered from strings.Fields.
func parseAllocTensor(text string) (Instruction, error) {
	open := strings.IndexByte(text, '(')
	close := strings.IndexByte(text, ')')
	if open < 0 || close < 0 || close < open {
		return Instruction{}, fmt.Errorf("bytecode: malformed alloc_tensor text %q", text)
	}
	inner := text[open+1 : close]
	dtypeField := strings.TrimSpace(text[close+1:])

	var shape []int64
	if inner != "" {
		for _, part := range strings.Split(inner, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			d, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return Instruction{}, fmt.Errorf("bytecode: parsing alloc_tensor dim %q: %w", part, err)
			}
			shape = append(shape, d)
		}
	}
	dtype, err := parseDType(dtypeField)
	if err != nil {
		return Instruction{}, err
	}
	return AllocTensor(shape, dtype), nil
}

func parseDType(s string) (ir.DType, error) {
	lanes := uint16(1)
	if idx := strings.IndexByte(s, 'x'); idx >= 0 {
		n, err := strconv.ParseUint(s[idx+1:], 10, 16)
		if err != nil {
			return ir.DType{}, fmt.Errorf("bytecode: parsing dtype lanes %q: %w", s, err)
		}
		lanes = uint16(n)
		s = s[:idx]
	}

	splitAt := len(s)
	for splitAt > 0 && s[splitAt-1] >= '0' && s[splitAt-1] <= '9' {
		splitAt--
	}
	codeName, bitsText := s[:splitAt], s[splitAt:]

	bits, err := strconv.ParseUint(bitsText, 10, 8)
	if err != nil {
		return ir.DType{}, fmt.Errorf("bytecode: parsing dtype bits %q: %w", s, err)
	}

	var code ir.DTypeCode
	switch codeName {
	case "int":
		code = ir.DTypeInt
	case "uint":
		code = ir.DTypeUInt
	case "float":
		code = ir.DTypeFloat
	case "bool":
		code = ir.DTypeBool
	default:
		return ir.DType{}, fmt.Errorf("bytecode: unrecognized dtype code %q", codeName)
	}

	return ir.DType{Code: code, Bits: uint8(bits), Lanes: lanes}, nil
}

// DisassembleFunction renders every instruction in fn, one per line,
// prefixed with its offset.
func DisassembleFunction(fn *Function) string {
	var b strings.Builder
	for pc, instr := range fn.Code {
		fmt.Fprintf(&b, "%4d  %s\n", pc, Disassemble(instr))
	}
	return b.String()
}
