package compiler

// Parser consumes the token list produced by Tokenize and builds the AST.
//
// Grammar (loosest binding first):
//
//	program        = statement* EOF
//	statement      = expression ";"
//	expression     = assignment
//	assignment     = equality ("=" assignment)?
//	equality       = relational (("==" | "!=") relational)*
//	relational     = additive (("<" | "<=" | ">" | ">=") additive)*
//	additive       = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/") unary)*
//	unary          = ("+" | "-")? unary | primary
//	primary        = NUMBER | IDENTIFIER | "(" expression ")"
type Parser struct {
	tok *Token // cursor; only ever moves forward
}

func NewParser(tok *Token) *Parser {
	return &Parser{tok: tok}
}

// advance consumes the current token and returns it.
func (p *Parser) advance() *Token {
	tok := p.tok
	if tok.Next != nil {
		p.tok = tok.Next
	}
	return tok
}

// consume advances past the current token if it is the reserved symbol op.
func (p *Parser) consume(op string) (*Token, bool) {
	if !p.tok.is(op) {
		return nil, false
	}
	return p.advance(), true
}

// expect consumes the reserved symbol op or fails with a parse error.
func (p *Parser) expect(op string) error {
	if _, ok := p.consume(op); !ok {
		return errorAt(ParseError, p.tok.Pos, "expected '%s', found %s", op, p.tok.describe())
	}
	return nil
}

func (p *Parser) atEOF() bool {
	return p.tok.Kind == EOF
}

func newBinary(kind NodeKind, lhs, rhs *Node, pos int) *Node {
	return &Node{Kind: kind, Lhs: lhs, Rhs: rhs, Pos: pos}
}

func newNum(val int32, pos int) *Node {
	return &Node{Kind: ND_NUM, Val: val, Pos: pos}
}

// binaryOp maps a reserved symbol to the node it builds. swap marks ">" and
// ">=", which reuse ND_LT / ND_LE with operands reversed.
type binaryOp struct {
	op   string
	kind NodeKind
	swap bool
}

var (
	equalityOps       = []binaryOp{{"==", ND_EQ, false}, {"!=", ND_NE, false}}
	relationalOps     = []binaryOp{{"<", ND_LT, false}, {"<=", ND_LE, false}, {">", ND_LT, true}, {">=", ND_LE, true}}
	additiveOps       = []binaryOp{{"+", ND_ADD, false}, {"-", ND_SUB, false}}
	multiplicativeOps = []binaryOp{{"*", ND_MUL, false}, {"/", ND_DIV, false}}
)

// parseLeftAssoc parses operand (op operand)* for one precedence level.
func (p *Parser) parseLeftAssoc(ops []binaryOp, operand func() (*Node, error)) (*Node, error) {
	node, err := operand()
	if err != nil {
		return nil, err
	}

next:
	for {
		for _, bo := range ops {
			tok, ok := p.consume(bo.op)
			if !ok {
				continue
			}
			rhs, err := operand()
			if err != nil {
				return nil, err
			}
			if bo.swap {
				node = newBinary(bo.kind, rhs, node, tok.Pos)
			} else {
				node = newBinary(bo.kind, node, rhs, tok.Pos)
			}
			continue next
		}
		return node, nil
	}
}

// parseProgram parses statements until EOF.
func (p *Parser) parseProgram() (*Program, error) {
	prog := &Program{}
	for !p.atEOF() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, stmt)
	}
	return prog, nil
}

// parseStatement handles expression ";"
func (p *Parser) parseStatement() (*Node, error) {
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	return node, nil
}

// parseExpression is the entry point for expression parsing.
func (p *Parser) parseExpression() (*Node, error) {
	return p.parseAssignment()
}

// parseAssignment handles "=", recursing on the right for right associativity.
func (p *Parser) parseAssignment() (*Node, error) {
	node, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	if tok, ok := p.consume("="); ok {
		rhs, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		node = newBinary(ND_ASSIGN, node, rhs, tok.Pos)
	}
	return node, nil
}

// parseEquality handles == and !=
func (p *Parser) parseEquality() (*Node, error) {
	return p.parseLeftAssoc(equalityOps, p.parseRelational)
}

// parseRelational handles < <= > >=
func (p *Parser) parseRelational() (*Node, error) {
	return p.parseLeftAssoc(relationalOps, p.parseAdditive)
}

// parseAdditive handles + and -
func (p *Parser) parseAdditive() (*Node, error) {
	return p.parseLeftAssoc(additiveOps, p.parseMultiplicative)
}

// parseMultiplicative handles * and /
func (p *Parser) parseMultiplicative() (*Node, error) {
	return p.parseLeftAssoc(multiplicativeOps, p.parseUnary)
}

// parseUnary handles a leading sign. -x is lowered to 0 - x.
func (p *Parser) parseUnary() (*Node, error) {
	if _, ok := p.consume("+"); ok {
		return p.parseUnary()
	}
	if tok, ok := p.consume("-"); ok {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return newBinary(ND_SUB, newNum(0, tok.Pos), operand, tok.Pos), nil
	}
	return p.parsePrimary()
}

// parsePrimary handles literals, variables and parenthesised expressions.
func (p *Parser) parsePrimary() (*Node, error) {
	if _, ok := p.consume("("); ok {
		node, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return node, nil
	}

	tok := p.tok
	switch tok.Kind {
	case IDENT:
		r := []rune(tok.Text)[0]
		if r < 'a' || r > 'z' {
			return nil, errorAt(ParseError, tok.Pos, "'%s' is not a variable name (a-z)", tok.Text)
		}
		p.advance()
		return &Node{Kind: ND_VAR, Offset: int(r - 'a'), Pos: tok.Pos}, nil
	case NUM:
		p.advance()
		return newNum(tok.Val, tok.Pos), nil
	}

	return nil, errorAt(ParseError, tok.Pos, "expected a number, found %s", tok.describe())
}

// Parse consumes the whole token list as a sequence of ";"-terminated
// statements.
func Parse(tok *Token) (*Program, error) {
	return NewParser(tok).parseProgram()
}

// ParseExpr consumes the whole token list as a single bare expression.
func ParseExpr(tok *Token) (*Node, error) {
	p := NewParser(tok)
	node, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if !p.atEOF() {
		return nil, errorAt(ParseError, p.tok.Pos, "expected end of input, found %s", p.tok.describe())
	}
	return node, nil
}
