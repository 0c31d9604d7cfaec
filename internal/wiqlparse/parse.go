package wiqlparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"

	"github.com/roach88/qwiq/internal/ir"
)

// Error is a syntax error at a byte offset of the input.
type Error struct {
	Pos int
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d]%s", e.Pos, e.Msg)
}

func errorf(pos int, format string, args ...any) *Error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// syntaxError converts a lexer or parser error into an *Error.
func syntaxError(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		return &Error{Pos: perr.Position().Offset, Msg: perr.Message()}
	}
	return err
}

// Parse parses a complete SELECT statement.
func Parse(input string) (*Query, error) {
	stmt, err := statementParser.ParseString("", input)
	if err != nil {
		return nil, syntaxError(err)
	}
	if !strings.EqualFold(stmt.From.Name, "WorkItems") {
		return nil, errorf(stmt.From.Pos.Offset, "unsupported source %s", stmt.From.Name)
	}

	q := &Query{From: "WorkItems"}
	for _, f := range stmt.Columns {
		ref, err := f.ref()
		if err != nil {
			return nil, err
		}
		q.Columns = append(q.Columns, ref)
	}
	if stmt.Where != nil {
		if q.Where, err = stmt.Where.cond(); err != nil {
			return nil, err
		}
	}
	for _, o := range stmt.OrderBy {
		ref, err := o.Field.ref()
		if err != nil {
			return nil, err
		}
		q.OrderBy = append(q.OrderBy, OrderKey{Ref: ref, Desc: o.Desc})
	}
	return q, nil
}

// ParseCondition parses a bare condition, as found after WHERE.
func ParseCondition(input string) (Cond, error) {
	if strings.TrimSpace(input) == "" {
		return nil, errorf(len(input), "unexpected end of condition")
	}
	c, err := conditionParser.ParseString("", input)
	if err != nil {
		return nil, syntaxError(err)
	}
	return c.cond()
}

func (f *field) ref() (string, error) {
	ref := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(f.Ref, "["), "]"))
	if ref == "" {
		return "", errorf(f.Pos.Offset, "empty field reference")
	}
	return ref, nil
}

func (c *orCond) cond() (Cond, error) {
	terms := make([]Cond, 0, len(c.Terms))
	for _, t := range c.Terms {
		x, err := t.cond()
		if err != nil {
			return nil, err
		}
		terms = append(terms, x)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &Or{Terms: terms}, nil
}

func (c *andCond) cond() (Cond, error) {
	terms := make([]Cond, 0, len(c.Terms))
	for _, t := range c.Terms {
		x, err := t.cond()
		if err != nil {
			return nil, err
		}
		terms = append(terms, x)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return &And{Terms: terms}, nil
}

func (c *unaryCond) cond() (Cond, error) {
	switch {
	case c.Not != nil:
		inner, err := c.Not.cond()
		if err != nil {
			return nil, err
		}
		return &Not{Cond: inner}, nil
	case c.Group != nil:
		return c.Group.cond()
	}
	return c.Term.cond()
}

func (t *term) cond() (Cond, error) {
	ref, err := t.Field.ref()
	if err != nil {
		return nil, err
	}
	if in := t.Tail.In; in != nil {
		values := make([]ir.Value, 0, len(in.Values))
		for _, l := range in.Values {
			v, err := l.value()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return &In{Ref: ref, Values: values}, nil
	}

	cmp := &Comparison{Ref: ref, Op: strings.ToUpper(t.Tail.Compare.Op)}
	if f := t.Tail.Compare.Operand.Field; f != nil {
		if cmp.Operand.Ref, err = f.ref(); err != nil {
			return nil, err
		}
		return cmp, nil
	}
	if cmp.Operand.Value, err = t.Tail.Compare.Operand.Literal.value(); err != nil {
		return nil, err
	}
	return cmp, nil
}

func (l *literal) value() (ir.Value, error) {
	switch {
	case l.String != nil:
		s := *l.String
		return ir.String(strings.ReplaceAll(s[1:len(s)-1], "''", "'")), nil
	case l.Number != nil:
		if n, err := strconv.ParseInt(*l.Number, 10, 64); err == nil {
			return ir.Int(n), nil
		}
		f, err := strconv.ParseFloat(*l.Number, 64)
		if err != nil {
			return nil, errorf(l.Pos.Offset, "invalid number %s", *l.Number)
		}
		return ir.Double(f), nil
	}
	return ir.Bool(strings.EqualFold(*l.Bool, "True")), nil
}
