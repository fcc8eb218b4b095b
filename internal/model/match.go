package model

// Severity は診断の重大度です。
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Span は 1 件の診断範囲を行・桁・バイトオフセットで表します。
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
	ByteStart int `json:"byte_start"`
	ByteEnd   int `json:"byte_end"`
}

// Edit は [Start, End) を Text で置き換える編集です。Start == End なら挿入になります。
type Edit struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Fix は 1 件の診断に対する修正です。複数の Edit はまとめて 1 つの修正として適用されます。
type Fix struct {
	Edits []Edit `json:"edits"`
}

// Diagnostic は 1 つのルールが 1 つのノードまたはコメントに対して出した指摘です。
type Diagnostic struct {
	File      string            `json:"file"`
	Rule      string            `json:"rule"`
	MessageID string            `json:"message_id"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	Severity  Severity          `json:"severity"`
	Span      Span              `json:"span"`
	Fix       *Fix              `json:"fix,omitempty"`
}

// Fixable reports whether the diagnostic carries an automatic fix.
func (d Diagnostic) Fixable() bool {
	return d.Fix != nil && len(d.Fix.Edits) > 0
}
