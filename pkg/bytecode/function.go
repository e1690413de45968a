package bytecode

// Function is a compiled VM function: a parameter count plus an immutable
// instruction sequence. Once returned from Compile it is never mutated;
// the interpreter only reads Code by index.
type Function struct {
	ParamCount int
	Code       []Instruction
}
