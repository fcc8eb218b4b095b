package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// Observer は進捗の通知先です。Publish は複数の goroutine から呼ばれます。
type Observer interface {
	Publish(Snapshot)
	Done(Snapshot)
}

type NoopObserver struct{}

func (NoopObserver) Publish(Snapshot) {}
func (NoopObserver) Done(Snapshot)    {}

// ObserverFunc は Publish だけを受け取る関数です。
type ObserverFunc func(Snapshot)

func (f ObserverFunc) Publish(s Snapshot) { f(s) }
func (ObserverFunc) Done(Snapshot)        {}

// ShouldShowProgress は --progress / --no-progress と stderr が端末かどうかから表示の要否を決めます。
func ShouldShowProgress(force, no bool) bool {
	if no {
		return false
	}
	if force {
		return true
	}
	return isTTY(os.Stderr)
}

// NewAutoObserver は w が端末なら 1 行を上書きする表示、それ以外は 1 通知 1 行の表示を返します。
func NewAutoObserver(w io.Writer) Observer {
	if w == nil {
		w = os.Stderr
	}
	if f, ok := w.(*os.File); ok && isTTY(f) {
		return NewTTYObserver(w)
	}
	return NewLineObserver(w)
}

type writerObserver struct {
	mu     sync.Mutex
	w      io.Writer
	render func(Snapshot) string
	tty    bool
}

func NewTTYObserver(w io.Writer) Observer {
	return &writerObserver{w: w, render: renderTTY, tty: true}
}

func NewLineObserver(w io.Writer) Observer {
	return &writerObserver{w: w, render: renderLine}
}

func (o *writerObserver) Publish(s Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.tty {
		_, _ = fmt.Fprintf(o.w, "\r\033[K%s", o.render(s))
		return
	}
	_, _ = fmt.Fprintln(o.w, o.render(s))
}

// Done は端末上の進捗行を消します。行表示では何もしません。
func (o *writerObserver) Done(Snapshot) {
	if !o.tty {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = io.WriteString(o.w, "\r\033[K")
}

func renderTTY(s Snapshot) string {
	rate, eta := "--/s", "--:--"
	if !s.Warmup {
		if s.Rate > 0 {
			rate = fmt.Sprintf("%.1f/s", s.Rate)
		}
		if s.ETA > 0 {
			eta = formatETA(s.ETA)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %3d%% %d/%d files", s.Stage, percent(s.Done, s.Total), s.Done, s.Total)
	if s.Problems > 0 {
		fmt.Fprintf(&b, ", %d problem%s", s.Problems, plural(s.Problems))
	}
	if s.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", s.Failed)
	}
	fmt.Fprintf(&b, " %s ETA %s", rate, eta)
	return b.String()
}

func renderLine(s Snapshot) string {
	eta := -1.0
	if s.ETA > 0 {
		eta = s.ETA.Seconds()
	}
	return fmt.Sprintf("progress stage=%s done=%d total=%d problems=%d failed=%d rate=%.3f eta=%g warmup=%t",
		s.Stage, s.Done, s.Total, s.Problems, s.Failed, s.Rate, eta, s.Warmup)
}

// formatETA は mm:ss、1 時間以上なら h:mm:ss です。
func formatETA(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 0 {
		secs = 0
	}
	if secs >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func percent(done, total int) int {
	if total <= 0 {
		if done > 0 {
			return 100
		}
		return 0
	}
	return min(max(done*100/total, 0), 100)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func isTTY(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}
