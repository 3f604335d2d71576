// Package reportlog appends every produced report to a daily JSON-lines
// file (IST calendar day) and gzips files past retention.
package reportlog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"market-advisor/internal/types"
)

var ist = time.FixedZone("IST", 19800)

type Log struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

func New(dir string) *Log {
	if dir == "" {
		dir = "logs/reports"
	}
	return &Log{dir: dir, now: time.Now}
}

// Entry is the per-report line. Indicator values and individual news items
// are left out; the full report output carries them.
type Entry struct {
	Time        string           `json:"time"`
	RequestID   string           `json:"request_id"`
	Symbol      string           `json:"symbol"`
	AssetClass  types.AssetClass `json:"asset_class"`
	Action      types.Action     `json:"action"`
	Score       float64          `json:"score"`
	Confidence  float64          `json:"confidence"`
	TargetPrice string           `json:"target_price,omitempty"`
	Factors     []types.Factor   `json:"factors"`
	Unavailable []string         `json:"unavailable,omitempty"`
	Sentiment   float64          `json:"sentiment"`
	NewsCount   int              `json:"news_count"`
}

func (l *Log) dailyFilepath(sub string, t time.Time) string {
	return filepath.Join(l.dir, sub, t.In(ist).Format(time.DateOnly)+".jsonl")
}

// Append writes one line for r.
func (l *Log) Append(r *types.Report) error {
	rec := r.Recommendation
	e := Entry{
		RequestID:  r.RequestID.String(),
		Symbol:     r.Symbol,
		AssetClass: r.AssetClass,
		Action:     rec.Action,
		Score:      rec.Score,
		Confidence: rec.Confidence,
		Factors:    rec.Factors,
		Sentiment:  r.Sentiment.Score,
		NewsCount:  r.Sentiment.ItemCount,
	}
	if !rec.TargetPrice.IsZero() {
		e.TargetPrice = rec.TargetPrice.StringFixed(2)
	}
	for _, u := range rec.Unavailable {
		e.Unavailable = append(e.Unavailable, string(u.Category))
	}
	return l.write("", func(now time.Time) any {
		e.Time = now.Format(time.DateTime)
		return e
	})
}

// AppendScreen writes a screen result to the screens/ sub-directory.
func (l *Log) AppendScreen(res *types.ScreenResult) error {
	return l.write("screens", func(time.Time) any { return res })
}

func (l *Log) write(sub string, line func(now time.Time) any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().In(ist)
	p := l.dailyFilepath(sub, now)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(line(now))
	if err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips .jsonl files last modified more than retentionDays
// ago and removes the originals. It returns how many files it compressed.
func (l *Log) CompressOlder(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().AddDate(0, 0, -retentionDays)
	compressed := 0
	err := filepath.WalkDir(l.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			return os.Remove(p)
		}
		if err := gzipFile(p, gz); err != nil {
			return fmt.Errorf("compress %s: %w", p, err)
		}
		compressed++
		return os.Remove(p)
	})
	return compressed, err
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
