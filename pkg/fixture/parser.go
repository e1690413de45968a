package fixture

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/arborlang/tvmcore/pkg/ir"
)

// Parse reads one function definition in the fixture notation.
func Parse(src string) (*ir.Function, error) {
	p := &parser{toks: tokenize(src)}
	fn, err := p.parseFunction()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("fixture: unexpected trailing input at token %q", p.toks[p.pos])
	}
	return fn, nil
}

type parser struct {
	toks []string
	pos  int
	// scope maps a source-level name to the Variable it was bound to,
	// innermost first; parseIdent resolves against it.
	scope []map[string]ir.Variable
}

func tokenize(src string) []string {
	var toks []string
	runes := []rune(src)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case strings.ContainsRune("(){},;=", r):
			toks = append(toks, string(r))
			i++
		default:
			j := i
			for j < len(runes) && !unicode.IsSpace(runes[j]) && !strings.ContainsRune("(){},;=", runes[j]) {
				j++
			}
			toks = append(toks, string(runes[i:j]))
			i = j
		}
	}
	return toks
}

func (p *parser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *parser) next() (string, error) {
	if p.pos >= len(p.toks) {
		return "", fmt.Errorf("fixture: unexpected end of input")
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

func (p *parser) expect(tok string) error {
	got, err := p.next()
	if err != nil {
		return err
	}
	if got != tok {
		return fmt.Errorf("fixture: expected %q, got %q", tok, got)
	}
	return nil
}

func (p *parser) parseFunction() (*ir.Function, error) {
	if err := p.expect("fn"); err != nil {
		return nil, err
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}

	frame := map[string]ir.Variable{}
	var params []ir.Variable
	for p.peek() != ")" {
		name, err := p.next()
		if err != nil {
			return nil, err
		}
		v := ir.NewVariable(name)
		frame[name] = v
		params = append(params, v)
		if p.peek() == "," {
			p.pos++
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if err := p.expect("{"); err != nil {
		return nil, err
	}

	p.scope = append(p.scope, frame)
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.scope = p.scope[:len(p.scope)-1]

	if err := p.expect("}"); err != nil {
		return nil, err
	}

	return &ir.Function{Params: params, Body: body, Ret: ir.TensorType{DType: ir.Float32}}, nil
}

func (p *parser) resolve(name string) (ir.Variable, bool) {
	for i := len(p.scope) - 1; i >= 0; i-- {
		if v, ok := p.scope[i][name]; ok {
			return v, true
		}
	}
	return ir.Variable{}, false
}

func (p *parser) parseExpr() (ir.Expr, error) {
	switch p.peek() {
	case "let":
		return p.parseLet()
	case "if":
		return p.parseIf()
	default:
		return p.parseCallOrVar()
	}
}

func (p *parser) parseLet() (ir.Expr, error) {
	p.pos++ // "let"
	name, err := p.next()
	if err != nil {
		return nil, err
	}
	if err := p.expect("="); err != nil {
		return nil, err
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}

	v := ir.NewVariable(name)
	p.scope = append(p.scope, map[string]ir.Variable{name: v})
	body, err := p.parseExpr()
	p.scope = p.scope[:len(p.scope)-1]
	if err != nil {
		return nil, err
	}

	return ir.Let{Var: v, Value: value, Body: body}, nil
}

func (p *parser) parseIf() (ir.Expr, error) {
	p.pos++ // "if"
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect("then"); err != nil {
		return nil, err
	}
	trueBranch, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect("else"); err != nil {
		return nil, err
	}
	falseBranch, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return ir.If{Cond: cond, True: trueBranch, False: falseBranch}, nil
}

func (p *parser) parseCallOrVar() (ir.Expr, error) {
	name, err := p.next()
	if err != nil {
		return nil, err
	}

	if p.peek() != "(" {
		v, ok := p.resolve(name)
		if !ok {
			return nil, fmt.Errorf("fixture: unbound variable %q", name)
		}
		return ir.VarExpr{Var: v}, nil
	}

	p.pos++ // "("
	var args []ir.Expr
	for p.peek() != ")" {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.peek() == "," {
			p.pos++
		}
	}
	p.pos++ // ")"

	op, err := p.callOperator(name, len(args))
	if err != nil {
		return nil, err
	}
	return ir.Call{Op: op, Args: args, Checked: ir.TensorType{DType: ir.Float32}}, nil
}

// callOperator resolves name at a call site: a bound variable is used as-is
// (this fixture notation never binds a variable to a function value, so the
// result is a variable in operator position, which the compiler rejects);
// an unbound name becomes a fresh primitive tagged with an "op" attribute,
// one input parameter per argument.
func (p *parser) callOperator(name string, arity int) (ir.Expr, error) {
	if v, ok := p.resolve(name); ok {
		return ir.VarExpr{Var: v}, nil
	}

	params := make([]ir.Variable, arity)
	for i := range params {
		params[i] = ir.NewVariable(fmt.Sprintf("%s.p%d", name, i))
	}
	attrs, err := ir.NewAttrs(map[string]any{"op": name})
	if err != nil {
		return nil, err
	}
	return &ir.Function{
		Params:    params,
		Ret:       ir.TensorType{DType: ir.Float32},
		Primitive: true,
		Attrs:     attrs,
	}, nil
}
