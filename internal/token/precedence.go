package token

// Binding tiers for binary operators, lowest first. Unary, postfix and
// member/call expressions bind tighter than every tier listed here and are
// handled by dedicated parser productions.
const (
	LowestPrec      = 0
	CommaPrec       = 1
	AssignPrec      = 2
	ConditionalPrec = 3
	PipelinePrec    = 4
	NullishPrec     = 5
	OrPrec          = 6
	AndPrec         = 7
	BitOrPrec       = 8
	BitXorPrec      = 9
	BitAndPrec      = 10
	EqualityPrec    = 11
	RelationalPrec  = 12
	ShiftPrec       = 13
	AdditivePrec    = 14
	MultiplyPrec    = 15
	ExponentPrec    = 16
)

// Precedence returns the binary binding tier of t, or LowestPrec if t is not
// a binary operator handled by precedence climbing.
func (t Token) Precedence() int {
	switch t {
	case NULLISH:
		return NullishPrec
	case LOR:
		return OrPrec
	case LAND:
		return AndPrec
	case OR:
		return BitOrPrec
	case XOR:
		return BitXorPrec
	case AND:
		return BitAndPrec
	case EQ, NE, STRICT_EQ, STRICT_NE:
		return EqualityPrec
	case LESS, LTE, GREATER, GTE, IN, INSTANCEOF:
		return RelationalPrec
	case SHL, SHR, USHR:
		return ShiftPrec
	case ADD, SUB:
		return AdditivePrec
	case MUL, DIV, MOD:
		return MultiplyPrec
	case POW:
		return ExponentPrec
	}
	return LowestPrec
}

// IsRightAssoc reports whether a binary operator groups right to left.
func (t Token) IsRightAssoc() bool {
	return t == POW
}

// IsLogical reports whether t is a short-circuiting binary operator.
func (t Token) IsLogical() bool {
	return t == LAND || t == LOR || t == NULLISH
}

// BinaryOf maps a compound assignment operator to the binary operator it
// applies. The second result is false for "=" and the extended operators
// that have no binary form (%%=, >?=, <?=).
func BinaryOf(assign Token) (Token, bool) {
	switch assign {
	case ADD_ASSIGN:
		return ADD, true
	case SUB_ASSIGN:
		return SUB, true
	case MUL_ASSIGN:
		return MUL, true
	case DIV_ASSIGN:
		return DIV, true
	case MOD_ASSIGN:
		return MOD, true
	case POW_ASSIGN:
		return POW, true
	case AND_ASSIGN:
		return AND, true
	case OR_ASSIGN:
		return OR, true
	case XOR_ASSIGN:
		return XOR, true
	case SHL_ASSIGN:
		return SHL, true
	case SHR_ASSIGN:
		return SHR, true
	case USHR_ASSIGN:
		return USHR, true
	case LAND_ASSIGN:
		return LAND, true
	case LOR_ASSIGN:
		return LOR, true
	case NULLISH_ASSIGN:
		return NULLISH, true
	}
	return ILLEGAL, false
}

// Lookup returns the operator token spelled s, or ILLEGAL. It is used when
// decoding serialized trees.
func Lookup(s string) Token {
	if tok, ok := operators[s]; ok {
		return tok
	}
	if tok, ok := keywords[s]; ok {
		return tok
	}
	return ILLEGAL
}

var operators = map[string]Token{}

func init() {
	for t := operatorStart + 1; t < operatorEnd; t++ {
		operators[names[t]] = t
	}
}
