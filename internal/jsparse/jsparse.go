// Package jsparse は tree-sitter で JavaScript / TypeScript を解析し、
// ルールが読むトークン列（コメントを含む）と検査対象ノードを組み立てます。
//
// Parse は呼び出しごとに tree-sitter のパーサを作るため、複数の goroutine から同時に呼んで構いません。
package jsparse

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/phyten/monostyle/internal/detect"
	"github.com/phyten/monostyle/internal/source"
)

var (
	// ErrFileTooLarge は MaxBytes を超える入力です。
	ErrFileTooLarge = errors.New("file too large")
	// ErrInvalidContent は UTF-8 でない入力です。
	ErrInvalidContent = errors.New("invalid content")
	// ErrSyntax は構文エラーを含む入力です。ルールは実行されません。
	ErrSyntax = errors.New("syntax error")
	// ErrUnsupportedLanguage は解析できない言語です。
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// File は解析結果です。
type File struct {
	Path     string
	Language string
	Code     *source.Code
	Nodes    []*source.Node
}

// Options は Parse の挙動を調整します。
type Options struct {
	MaxBytes int // 0 なら無制限
}

// Parse は content を lang（detect の正規名またはエイリアス）として解析します。
// lang が空なら path の拡張子から判定します。
func Parse(ctx context.Context, path string, content []byte, lang string, opts Options) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}
	if opts.MaxBytes > 0 && len(content) > opts.MaxBytes {
		return nil, fmt.Errorf("%d bytes > %d: %w", len(content), opts.MaxBytes, ErrFileTooLarge)
	}
	if !utf8.Valid(content) {
		return nil, ErrInvalidContent
	}
	if lang == "" {
		lang = detect.FromPathAndContent(path, content).Name
	}
	lang = detect.NormalizeLangName(lang)
	grammar := grammarFor(lang)
	if grammar == nil {
		return nil, fmt.Errorf("%q: %w", lang, ErrUnsupportedLanguage)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		b := &builder{content: content}
		if bad := firstError(root); bad != nil {
			pt := bad.StartPoint()
			return nil, fmt.Errorf("%d:%d: %w", pt.Row+1, b.column(bad), ErrSyntax)
		}
		return nil, ErrSyntax
	}

	b := &builder{content: content}
	b.collectTokens(root)
	code := source.New(string(content), b.tokens)
	b.code = code
	b.collectNodes(root)

	return &File{Path: path, Language: lang, Code: code, Nodes: b.nodes}, nil
}

func grammarFor(lang string) *sitter.Language {
	switch lang {
	case detect.JavaScript, detect.JavaScriptReact:
		return javascript.GetLanguage()
	case detect.TypeScript:
		return typescript.GetLanguage()
	case detect.TypeScriptReact:
		return tsx.GetLanguage()
	}
	return nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.HasError() && !child.IsMissing() {
			continue
		}
		if bad := firstError(child); bad != nil {
			return bad
		}
	}
	return nil
}
