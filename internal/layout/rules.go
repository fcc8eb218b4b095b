package layout

import (
	"fmt"

	"github.com/phyten/monostyle/internal/lint"
	"github.com/phyten/monostyle/internal/source"
)

const (
	defaultMinCount = 4
	defaultIndent   = 2
)

// Rule は Strategy を lint.Rule として公開します。
type Rule struct {
	name     string
	meta     lint.Meta
	strategy Strategy
	// minKey はしきい値オプションの名前です。空ならしきい値を持ちません。
	minKey string
}

func (r *Rule) Name() string   { return r.name }
func (r *Rule) Meta() lint.Meta { return r.meta }

// New はオプションを読み取り、検証済みの Checker を返します。
func (r *Rule) New(options map[string]any) (lint.Checker, error) {
	cfg, err := r.config(options)
	if err != nil {
		return nil, err
	}
	return &Checker{Strategy: r.strategy, Config: cfg}, nil
}

func (r *Rule) config(options map[string]any) (Config, error) {
	opts := lint.NewOptions(options)
	cfg := Config{Indent: opts.Int("indent", defaultIndent, "min=0")}
	if r.minKey != "" {
		cfg.MinCount = opts.Int(r.minKey, defaultMinCount, "min=0")
	}
	if err := opts.Err(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", r.name, err)
	}
	return cfg, nil
}

// NamedSpecifiersNewline は import / export の名前付き指定子を 1 行 1 つにそろえます。
func NamedSpecifiersNewline() *Rule {
	return &Rule{
		name:   "named-specifiers-newline",
		minKey: "minSpecifiers",
		meta: lint.Meta{
			Type:        "layout",
			Fixable:     true,
			Description: "Require one named import/export specifier per line once a list reaches the threshold",
			Messages: map[string]string{
				"multiline": "For {{kind}} with {{min}}+ specifiers, use multiline braces and one specifier per line.",
			},
			Defaults: map[string]any{"minSpecifiers": defaultMinCount, "indent": defaultIndent},
		},
		strategy: Strategy{
			Left:      "{",
			Right:     "}",
			Kinds:     []source.NodeKind{source.KindImportDeclaration, source.KindExportNamedDeclaration},
			Children:  namedSpecifiers,
			Threshold: true,
			Fix:       Replace,
			Data: func(n *source.Node, min int) map[string]string {
				kind := "import"
				if n.Kind == source.KindExportNamedDeclaration {
					kind = "export"
				}
				return map[string]string{"kind": kind, "min": lint.Itoa(min)}
			},
		},
	}
}

// MultilineArrayBrackets は複数行の配列リテラル・配列パターンで `[` の後と `]` の前に改行を求めます。
func MultilineArrayBrackets() *Rule {
	return &Rule{
		name: "multiline-array-brackets",
		meta: lint.Meta{
			Type:        "layout",
			Fixable:     true,
			Description: "Require newlines after `[` and before `]` in multiline arrays",
			Messages: map[string]string{
				"brackets": "Multiline arrays must have newlines after `[` and before `]`.",
			},
			Defaults: map[string]any{"indent": defaultIndent},
		},
		strategy: Strategy{
			Left:           "[",
			Right:          "]",
			Kinds:          []source.NodeKind{source.KindArrayExpression, source.KindArrayPattern},
			Children:       func(n *source.Node) []*source.Node { return n.Children },
			SkipSingleLine: true,
			Fix:            Insert,
		},
	}
}

// ObjectPatternNewline はオブジェクトの分割代入を 1 行 1 メンバーにそろえます。
func ObjectPatternNewline() *Rule {
	return &Rule{
		name:   "object-pattern-newline",
		minKey: "minProperties",
		meta: lint.Meta{
			Type:        "layout",
			Fixable:     true,
			Description: "Require one member per line in object destructuring patterns once they reach the threshold",
			Messages: map[string]string{
				"multiline": "For object patterns with {{min}}+ members, use multiline braces and one member per line.",
			},
			Defaults: map[string]any{"minProperties": defaultMinCount, "indent": defaultIndent},
		},
		strategy: Strategy{
			Left:      "{",
			Right:     "}",
			Kinds:     []source.NodeKind{source.KindObjectPattern},
			Children:  func(n *source.Node) []*source.Node { return n.Children },
			Threshold: true,
			Fix:       Replace,
			Trailing: func(children []*source.Node) string {
				// 空のパターンに "," を入れると構文エラーになる
				if len(children) == 0 || children[len(children)-1].Kind == source.KindRestElement {
					return ""
				}
				return ","
			},
			Data: func(_ *source.Node, min int) map[string]string {
				return map[string]string{"min": lint.Itoa(min)}
			},
		},
	}
}

// namedSpecifiers は default / namespace を除いた名前付き指定子だけを返します。
func namedSpecifiers(n *source.Node) []*source.Node {
	var out []*source.Node
	for _, child := range n.Children {
		if child.Kind == source.KindImportSpecifier || child.Kind == source.KindExportSpecifier {
			out = append(out, child)
		}
	}
	return out
}
