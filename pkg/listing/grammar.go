package listing

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The grammar is line oriented. Keywords and mnemonics are ordinary words;
// their meaning depends on the enclosing class or method and is resolved
// by the builder.

type file struct {
	Lines []*line `parser:"EOL* ( @@ EOL+ )*"`
}

type line struct {
	Pos   lexer.Position
	Label *string `parser:"  @Word ':'"`
	Words []*word `parser:"| @@+"`
}

type word struct {
	Pos    lexer.Position
	String *string `parser:"  @String"`
	Text   *string `parser:"| @Word"`
}

var lex = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "String", Pattern: `"(?:[^"\\]|\\.)*"`},
	{Name: "EOL", Pattern: `\r?\n`},
	{Name: "Whitespace", Pattern: `[ \t\r]+`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Word", Pattern: `[^\s"#:]+`},
})

var grammar = participle.MustBuild[file](
	participle.Lexer(lex),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)
