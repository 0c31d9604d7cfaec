package wiqlparse

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var wiqlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Field", Pattern: `\[[^\]]*\]`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.]*`},
	{Name: "Operator", Pattern: `<>|<=|>=|[=<>]`},
	{Name: "Punct", Pattern: `[(),]`},
	{Name: "whitespace", Pattern: `\s+`},
})

var options = []participle.Option{
	participle.Lexer(wiqlLexer),
	participle.CaseInsensitive("Ident"),
}

var (
	statementParser = participle.MustBuild[statement](options...)
	conditionParser = participle.MustBuild[orCond](options...)
)

type statement struct {
	Columns []*field     `"SELECT" @@ ( "," @@ )*`
	From    *source      `"FROM" @@`
	Where   *orCond      `( "WHERE" @@ )?`
	OrderBy []*orderTerm `( "ORDER" "BY" @@ ( "," @@ )* )?`
}

type field struct {
	Pos lexer.Position
	Ref string `@Field`
}

type source struct {
	Pos  lexer.Position
	Name string `@Ident`
}

type orderTerm struct {
	Field *field `@@`
	Desc  bool   `( @"DESC" | "ASC" )?`
}

type orCond struct {
	Terms []*andCond `@@ ( "OR" @@ )*`
}

type andCond struct {
	Terms []*unaryCond `@@ ( "AND" @@ )*`
}

type unaryCond struct {
	Not   *unaryCond `  "NOT" @@`
	Group *orCond    `| "(" @@ ")"`
	Term  *term      `| @@`
}

type term struct {
	Field *field `@@`
	Tail  *tail  `@@`
}

type tail struct {
	In      *inList  `  @@`
	Compare *compare `| @@`
}

type inList struct {
	Values []*literal `"IN" "(" @@ ( "," @@ )* ")"`
}

type compare struct {
	Op      string   `@( Operator | "CONTAINS" | "UNDER" )`
	Operand *operand `@@`
}

type operand struct {
	Field   *field   `  @@`
	Literal *literal `| @@`
}

type literal struct {
	Pos    lexer.Position
	String *string `  @String`
	Number *string `| @Number`
	Bool   *string `| @( "TRUE" | "FALSE" )`
}
