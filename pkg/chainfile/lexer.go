package chainfile

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ChainLexer defines the lexical structure of chain description files: a
// small brace-and-semicolon language listing the devices of one scan chain
// in TDO-first order.
var ChainLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run to end of line
	{Name: "Comment", Pattern: `#[^\n]*`},

	// Whitespace
	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Keywords
	{Name: "KwChain", Pattern: `\bchain\b`},
	{Name: "KwDevice", Pattern: `\bdevice\b`},
	{Name: "KwIR", Pattern: `\bir\b`},
	{Name: "KwRouter", Pattern: `\brouter\b`},

	// Punctuation
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "Semicolon", Pattern: `;`},

	// Literals
	{Name: "Integer", Pattern: `[0-9]+`},

	// Identifiers (must come after keywords)
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_-]*`},
})
