// Package progress は lint の進捗と残り時間の推定を扱います。
// 推定値は CLI の表示と serve の SSE の両方に流します。
package progress

import (
	"math"
	"sync"
	"time"
)

// Stage は進捗の段階です。
type Stage string

const (
	// StageList はファイル一覧の取得中
	StageList Stage = "list"
	// StageLint はファイルごとの検査中
	StageLint Stage = "lint"
)

// Outcome は 1 ファイル分の検査結果の要約です。
type Outcome struct {
	Problems int
	Failed   bool
}

// Snapshot はある時点の進捗です。ETA はウォームアップ中 0 です。
type Snapshot struct {
	Stage     Stage         `json:"stage"`
	Total     int           `json:"total"`
	Done      int           `json:"done"`
	Remaining int           `json:"remaining"`
	Problems  int           `json:"problems"`
	Failed    int           `json:"failed"`
	Rate      float64       `json:"files_per_sec"`
	ETA       time.Duration `json:"eta"`
	Warmup    bool          `json:"warmup"`
	StartedAt time.Time     `json:"started_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Config のゼロ値のフィールドは DefaultConfig の値になります。
type Config struct {
	Alpha          float64
	RingSize       int
	WarmupFiles    int
	WarmupDuration time.Duration
	NotifyInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Alpha:          0.3,
		RingSize:       32,
		WarmupFiles:    10,
		WarmupDuration: time.Second,
		NotifyInterval: 200 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Alpha > 0 && c.Alpha <= 1 {
		d.Alpha = c.Alpha
	}
	if c.RingSize > 0 {
		d.RingSize = c.RingSize
	}
	if c.WarmupFiles > 0 {
		d.WarmupFiles = c.WarmupFiles
	}
	if c.WarmupDuration > 0 {
		d.WarmupDuration = c.WarmupDuration
	}
	if c.NotifyInterval > 0 {
		d.NotifyInterval = c.NotifyInterval
	}
	return d
}

// Estimator は複数のワーカーから Record されても Done が 1 ずつ増えるよう排他します。
type Estimator struct {
	mu         sync.Mutex
	cfg        Config
	stage      Stage
	start      time.Time
	lastRecord time.Time
	lastNotify time.Time
	total      int
	done       int
	problems   int
	failed     int
	ema        float64
	rates      *rateRing
}

func NewEstimator(total int, cfg Config) *Estimator {
	cfg = cfg.withDefaults()
	now := time.Now()
	return &Estimator{
		cfg:        cfg,
		stage:      StageLint,
		start:      now,
		lastRecord: now,
		lastNotify: now,
		total:      total,
		rates:      newRateRing(cfg.RingSize),
	}
}

// Stage は段階を切り替えます。切り替わったときだけ 2 番目の戻り値が true です。
func (e *Estimator) Stage(stage Stage) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	if stage == e.stage {
		return e.snapshotLocked(now), false
	}
	e.stage = stage
	e.lastNotify = now
	return e.snapshotLocked(now), true
}

// Record は 1 ファイルの完了を記録します。
// 2 番目の戻り値は通知間隔を過ぎたか、最後の 1 件だったかどうかです。
func (e *Estimator) Record(o Outcome) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	if now.Before(e.lastRecord) {
		now = e.lastRecord
	}
	e.done++
	e.problems += max(o.Problems, 0)
	if o.Failed {
		e.failed++
	}

	dt := now.Sub(e.lastRecord).Seconds()
	if dt <= 0 {
		dt = 1e-6
	}
	instant := 1 / dt
	e.rates.push(instant)
	if e.ema == 0 {
		e.ema = instant
	} else {
		e.ema = e.cfg.Alpha*instant + (1-e.cfg.Alpha)*e.ema
	}
	e.lastRecord = now

	snap := e.snapshotLocked(now)
	notify := snap.Remaining == 0 || now.Sub(e.lastNotify) >= e.cfg.NotifyInterval
	if notify {
		e.lastNotify = now
	}
	return snap, notify
}

func (e *Estimator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(time.Now())
}

// Complete は残りを 0 として最終スナップショットを返します。キャンセル時も呼ばれます。
func (e *Estimator) Complete() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done < e.total {
		e.done = e.total
	}
	now := time.Now()
	e.lastNotify = now
	return e.snapshotLocked(now)
}

func (e *Estimator) snapshotLocked(now time.Time) Snapshot {
	elapsed := now.Sub(e.start)
	remaining := max(e.total-e.done, 0)
	warm := e.done >= e.cfg.WarmupFiles && elapsed >= e.cfg.WarmupDuration

	// 外れ値に引きずられないよう、中央値があればそちらを優先する
	rate := e.rates.median()
	if rate <= 0 {
		rate = e.ema
	}
	var eta time.Duration
	if warm && remaining > 0 {
		eta = etaFor(remaining, rate)
	}
	return Snapshot{
		Stage:     e.stage,
		Total:     e.total,
		Done:      e.done,
		Remaining: remaining,
		Problems:  e.problems,
		Failed:    e.failed,
		Rate:      rate,
		ETA:       eta,
		Warmup:    !warm,
		StartedAt: e.start,
		UpdatedAt: now,
		Elapsed:   elapsed,
	}
}

func etaFor(remaining int, rate float64) time.Duration {
	if rate <= 0 {
		return 0
	}
	seconds := float64(remaining) / rate
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0
	}
	if seconds > math.MaxInt64/float64(time.Second) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds * float64(time.Second))
}
