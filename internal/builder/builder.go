// Package builder runs the translation pipeline: validation, partial
// evaluation, rewriting and WIQL translation, in that order.
package builder

import (
	"context"

	"github.com/roach88/qwiq/internal/eval"
	"github.com/roach88/qwiq/internal/fieldmap"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
	"github.com/roach88/qwiq/internal/rewrite"
	"github.com/roach88/qwiq/internal/wiql"
)

// Rewriter canonicalizes an evaluated tree.
type Rewriter interface {
	Rewrite(n queryir.Node) (queryir.Node, error)
}

// Translator compiles a canonical tree to WIQL.
type Translator interface {
	Translate(ctx context.Context, n queryir.Node) (*wiql.Translation, error)
}

// Executable is a translated query ready for the store.
type Executable struct {
	// Query is the canonical tree the text was generated from.
	Query queryir.Node

	*wiql.Translation
}

// Builder assembles and runs the pipeline. It holds no per-query state and
// is safe for concurrent use when its field mapper is.
type Builder struct {
	evaluator  *eval.Evaluator
	rewriter   Rewriter
	translator Translator
}

type config struct {
	types wiql.TypeResolver
}

// Option configures a Builder.
type Option func(*config)

// WithRelatives enables relationship traversal. Related entities resolve
// their store type through types.
func WithRelatives(types wiql.TypeResolver) Option {
	return func(c *config) {
		c.types = types
	}
}

// New creates a Builder whose translators resolve properties through fields.
func New(fields fieldmap.Mapper, opts ...Option) *Builder {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	b := &Builder{evaluator: eval.New()}
	if cfg.types != nil {
		b.rewriter = rewrite.NewRelatives()
		b.translator = wiql.NewRelativesTranslator(fields, cfg.types)
	} else {
		b.rewriter = rewrite.New()
		b.translator = wiql.NewTranslator(fields)
	}
	return b
}

// Build runs each stage strictly in order and stops at the first error,
// which is returned unchanged.
func (b *Builder) Build(ctx context.Context, n queryir.Node) (*Executable, error) {
	if result := queryir.Validate(n); !result.Valid {
		return nil, qerr.NewInvalidOperationError("malformed query: %s", result)
	}

	evaluated, err := b.evaluator.Evaluate(n)
	if err != nil {
		return nil, err
	}

	rewritten, err := b.rewriter.Rewrite(evaluated)
	if err != nil {
		return nil, err
	}

	tr, err := b.translator.Translate(ctx, rewritten)
	if err != nil {
		return nil, err
	}

	return &Executable{Query: rewritten, Translation: tr}, nil
}
