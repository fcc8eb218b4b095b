// Package textutil は表形式出力のセル幅を端末の表示幅で扱います。
package textutil

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// CSI と OSC（ハイパーリンクなど）のエスケープシーケンス
var ansiRe = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`)

// StripANSI removes terminal escape sequences.
func StripANSI(s string) string {
	if !strings.ContainsRune(s, 0x1b) {
		return s
	}
	return ansiRe.ReplaceAllString(s, "")
}

// graphemes は書記素クラスタごとの文字列と表示幅を返します。
func graphemes(s string) (segs []string, widths []int) {
	g := uniseg.NewGraphemes(StripANSI(s))
	for g.Next() {
		seg := g.Str()
		segs = append(segs, seg)
		widths = append(widths, runewidth.StringWidth(seg))
	}
	return segs, widths
}

// VisibleWidth は ANSI を除いた端末上の表示幅です。
func VisibleWidth(s string) int {
	if s == "" {
		return 0
	}
	_, widths := graphemes(s)
	total := 0
	for _, w := range widths {
		total += w
	}
	return total
}

// TruncateByWidth は書記素クラスタを分割せずに s を幅 w に収めます。
// 切り詰めたときは ellipsis が収まる範囲で末尾に付けます。結果から ANSI は除かれます。
func TruncateByWidth(s string, w int, ellipsis string) string {
	if s == "" || w <= 0 {
		return ""
	}
	if VisibleWidth(s) <= w {
		return s
	}
	segs, widths := graphemes(s)
	limit := w
	ellW := runewidth.StringWidth(ellipsis)
	if ellW > 0 && ellW <= w {
		limit = w - ellW
	} else {
		ellipsis = ""
	}
	used, cut := 0, 0
	for cut < len(segs) && used+widths[cut] <= limit {
		used += widths[cut]
		cut++
	}
	return strings.Join(segs[:cut], "") + ellipsis
}

// OneLine は CR/LF/TAB の連続を空白 1 つにまとめ、値が表の 1 セルに収まるようにします。
func OneLine(s string) string {
	if !strings.ContainsAny(s, "\r\n\t") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if r == '\r' || r == '\n' || r == '\t' {
			pending = true
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteRune(r)
	}
	if pending {
		b.WriteByte(' ')
	}
	return b.String()
}

// PadRight は表示幅が w になるまで右に空白を足します。
func PadRight(s string, w int) string {
	if pad := w - VisibleWidth(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}
