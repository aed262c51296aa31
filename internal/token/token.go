// Package token defines lexical tokens and operator precedence for the
// JavaScript expression subset.
package token

// Token represents a lexical token type.
type Token uint8

const (
	// Special tokens
	ILLEGAL Token = iota // <illegal>
	EOF                  // EOF

	// Literals
	literalStart
	IDENT    // identifier
	NUMBER   // number
	BIGINT   // bigint
	STRING   // string
	TEMPLATE // template
	REGEX    // regex
	literalEnd

	// Operators and delimiters
	operatorStart
	ADD // +
	SUB // -
	MUL // *
	DIV // /
	MOD // %
	POW // **

	AND     // &
	OR      // |
	XOR     // ^
	SHL     // <<
	SHR     // >>
	USHR    // >>>
	LAND    // &&
	LOR     // ||
	NULLISH // ??

	ADD_ASSIGN     // +=
	SUB_ASSIGN     // -=
	MUL_ASSIGN     // *=
	DIV_ASSIGN     // /=
	MOD_ASSIGN     // %=
	FMOD_ASSIGN    // %%=
	POW_ASSIGN     // **=
	AND_ASSIGN     // &=
	OR_ASSIGN      // |=
	XOR_ASSIGN     // ^=
	SHL_ASSIGN     // <<=
	SHR_ASSIGN     // >>=
	USHR_ASSIGN    // >>>=
	LAND_ASSIGN    // &&=
	LOR_ASSIGN     // ||=
	NULLISH_ASSIGN // ??=
	MAX_ASSIGN     // >?=
	MIN_ASSIGN     // <?=

	ASSIGN     // =
	EQ         // ==
	NE         // !=
	STRICT_EQ  // ===
	STRICT_NE  // !==
	LESS       // <
	LTE        // <=
	GREATER    // >
	GTE        // >=
	NOT        // !
	BITNOT     // ~
	INC        // ++
	DEC        // --
	ARROW      // =>
	PIPELINE   // |>
	OPTIONAL   // ?.
	ELLIPSIS   // ...
	PERIOD     // .
	LPAREN     // (
	RPAREN     // )
	LBRACE     // {
	RBRACE     // }
	LBRACKET   // [
	RBRACKET   // ]
	COMMA      // ,
	SEMICOLON  // ;
	COLON      // :
	QUESTION   // ?
	HASH       // #
	AT         // @
	operatorEnd

	// Keywords
	keywordStart
	AWAIT      // await
	ASYNC      // async
	BREAK      // break
	CASE       // case
	CATCH      // catch
	CLASS      // class
	CONST      // const
	CONTINUE   // continue
	DEBUGGER   // debugger
	DEFAULT    // default
	DELETE     // delete
	DO         // do
	ELSE       // else
	EXPORT     // export
	EXTENDS    // extends
	FALSE      // false
	FINALLY    // finally
	FOR        // for
	FUNCTION   // function
	IF         // if
	IMPORT     // import
	IN         // in
	INSTANCEOF // instanceof
	LET        // let
	NEW        // new
	NULL       // null
	OF         // of
	RETURN     // return
	SUPER      // super
	SWITCH     // switch
	THIS       // this
	THROW      // throw
	TRUE       // true
	TRY        // try
	TYPEOF     // typeof
	UNDEFINED  // undefined
	VAR        // var
	VOID       // void
	WHILE      // while
	WITH       // with
	YIELD      // yield
	keywordEnd
)

var names = [...]string{
	ILLEGAL:  "<illegal>",
	EOF:      "EOF",
	IDENT:    "identifier",
	NUMBER:   "number",
	BIGINT:   "bigint",
	STRING:   "string",
	TEMPLATE: "template",
	REGEX:    "regex",

	ADD:     "+",
	SUB:     "-",
	MUL:     "*",
	DIV:     "/",
	MOD:     "%",
	POW:     "**",
	AND:     "&",
	OR:      "|",
	XOR:     "^",
	SHL:     "<<",
	SHR:     ">>",
	USHR:    ">>>",
	LAND:    "&&",
	LOR:     "||",
	NULLISH: "??",

	ADD_ASSIGN:     "+=",
	SUB_ASSIGN:     "-=",
	MUL_ASSIGN:     "*=",
	DIV_ASSIGN:     "/=",
	MOD_ASSIGN:     "%=",
	FMOD_ASSIGN:    "%%=",
	POW_ASSIGN:     "**=",
	AND_ASSIGN:     "&=",
	OR_ASSIGN:      "|=",
	XOR_ASSIGN:     "^=",
	SHL_ASSIGN:     "<<=",
	SHR_ASSIGN:     ">>=",
	USHR_ASSIGN:    ">>>=",
	LAND_ASSIGN:    "&&=",
	LOR_ASSIGN:     "||=",
	NULLISH_ASSIGN: "??=",
	MAX_ASSIGN:     ">?=",
	MIN_ASSIGN:     "<?=",

	ASSIGN:    "=",
	EQ:        "==",
	NE:        "!=",
	STRICT_EQ: "===",
	STRICT_NE: "!==",
	LESS:      "<",
	LTE:       "<=",
	GREATER:   ">",
	GTE:       ">=",
	NOT:       "!",
	BITNOT:    "~",
	INC:       "++",
	DEC:       "--",
	ARROW:     "=>",
	PIPELINE:  "|>",
	OPTIONAL:  "?.",
	ELLIPSIS:  "...",
	PERIOD:    ".",
	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	LBRACKET:  "[",
	RBRACKET:  "]",
	COMMA:     ",",
	SEMICOLON: ";",
	COLON:     ":",
	QUESTION:  "?",
	HASH:      "#",
	AT:        "@",

	AWAIT:      "await",
	ASYNC:      "async",
	BREAK:      "break",
	CASE:       "case",
	CATCH:      "catch",
	CLASS:      "class",
	CONST:      "const",
	CONTINUE:   "continue",
	DEBUGGER:   "debugger",
	DEFAULT:    "default",
	DELETE:     "delete",
	DO:         "do",
	ELSE:       "else",
	EXPORT:     "export",
	EXTENDS:    "extends",
	FALSE:      "false",
	FINALLY:    "finally",
	FOR:        "for",
	FUNCTION:   "function",
	IF:         "if",
	IMPORT:     "import",
	IN:         "in",
	INSTANCEOF: "instanceof",
	LET:        "let",
	NEW:        "new",
	NULL:       "null",
	OF:         "of",
	RETURN:     "return",
	SUPER:      "super",
	SWITCH:     "switch",
	THIS:       "this",
	THROW:      "throw",
	TRUE:       "true",
	TRY:        "try",
	TYPEOF:     "typeof",
	UNDEFINED:  "undefined",
	VAR:        "var",
	VOID:       "void",
	WHILE:      "while",
	WITH:       "with",
	YIELD:      "yield",
}

// String returns the source spelling of operators and keywords and a
// descriptive name for the other tokens.
func (t Token) String() string {
	if int(t) < len(names) && names[t] != "" {
		return names[t]
	}
	return "<illegal>"
}

// IsOperator returns true if the token is an operator or delimiter.
func (t Token) IsOperator() bool {
	return t > operatorStart && t < operatorEnd
}

// IsKeyword returns true if the token is a keyword.
func (t Token) IsKeyword() bool {
	return t > keywordStart && t < keywordEnd
}

// IsLiteral returns true if the token carries a literal value.
func (t Token) IsLiteral() bool {
	return t > literalStart && t < literalEnd
}

// IsAssign returns true for "=" and every compound assignment operator.
func (t Token) IsAssign() bool {
	return t == ASSIGN || (t >= ADD_ASSIGN && t <= MIN_ASSIGN)
}

// IsLogicalAssign returns true for the short-circuiting assignments.
func (t Token) IsLogicalAssign() bool {
	return t == LAND_ASSIGN || t == LOR_ASSIGN || t == NULLISH_ASSIGN
}

// keywords maps keyword strings to their token types. "of" and "async" are
// contextual and stay usable as identifiers; the parser decides.
var keywords = map[string]Token{}

func init() {
	for t := keywordStart + 1; t < keywordEnd; t++ {
		keywords[names[t]] = t
	}
}

// LookupIdent returns the token type for a given identifier.
// Returns a keyword token if found, otherwise IDENT.
func LookupIdent(ident string) Token {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsContextual reports whether the keyword may also be used as a plain
// identifier (binding names, property names after a dot).
func (t Token) IsContextual() bool {
	switch t {
	case OF, ASYNC, UNDEFINED:
		return true
	}
	return false
}
