package web

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"html/template"
	"net/http"
	"sync"

	"github.com/phyten/monostyle/internal/detect"
	"github.com/phyten/monostyle/internal/rules"
)

const (
	stylesPath = "/assets/styles.css"
	scriptPath = "/assets/ui.js"

	contentSecurityPolicy = "default-src 'none'; style-src 'self'; script-src 'self'; img-src 'self'; connect-src 'self'; form-action 'self'; base-uri 'none'"
)

var (
	//go:embed templates/index.html
	indexHTML string
	indexOnce sync.Once
	indexTmpl *template.Template

	//go:embed assets/styles.css
	stylesCSS []byte

	//go:embed assets/ui.js
	scriptJS []byte
)

// staticAsset は埋め込みファイルと、その内容から求めた ETag です。
type staticAsset struct {
	body        []byte
	contentType string
	etag        string
}

func newStaticAsset(body []byte, contentType string) staticAsset {
	sum := sha256.Sum256(body)
	return staticAsset{body: body, contentType: contentType, etag: `"` + hex.EncodeToString(sum[:8]) + `"`}
}

func (a staticAsset) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", a.contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("ETag", a.etag)
	if r.Header.Get("If-None-Match") == a.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	_, _ = w.Write(a.body)
}

type indexData struct {
	StylesPath string
	ScriptPath string
	Languages  []string
	Rules      []string
}

func registerAssets(mux *http.ServeMux) {
	mux.HandleFunc("/", indexHandler)
	mux.Handle(stylesPath, newStaticAsset(stylesCSS, "text/css; charset=utf-8"))
	mux.Handle(scriptPath, newStaticAsset(scriptJS, "application/javascript; charset=utf-8"))
}

// indexHandler はプレイグラウンドのページです。"/" 以外は 404 を返します。
func indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	data := indexData{
		StylesPath: stylesPath,
		ScriptPath: scriptPath,
		Languages:  detect.Languages(),
		Rules:      rules.Names(),
	}
	var buf bytes.Buffer
	if err := loadTemplate().Execute(&buf, data); err != nil {
		http.Error(w, "template rendering failed", http.StatusInternalServerError)
		return
	}
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Security-Policy", contentSecurityPolicy)
	_, _ = buf.WriteTo(w)
}

func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("X-Frame-Options", "DENY")
}

func loadTemplate() *template.Template {
	indexOnce.Do(func() {
		indexTmpl = template.Must(template.New("index").Parse(indexHTML))
	})
	return indexTmpl
}
