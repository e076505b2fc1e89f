// Package tradelog keeps an append-only JSONL journal of order legs and chat
// commands, one file per UTC day. It is disabled until Init gets a directory.
package tradelog

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	mu   sync.Mutex
	dir  string
	now  = func() time.Time { return time.Now().UTC() }
	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Entry is one order leg as submitted to the gateway.
type Entry struct {
	Time       string  `json:"time"`
	Symbol     string  `json:"symbol"`
	Leg        string  `json:"leg"`
	Action     string  `json:"action"`
	Type       string  `json:"type"`
	OrderID    int64   `json:"order_id"`
	ParentID   int64   `json:"parent_id,omitempty"`
	Qty        int     `json:"qty"`
	LimitPrice float64 `json:"limit_price,omitempty"`
	StopPrice  float64 `json:"stop_price,omitempty"`
	Status     string  `json:"status"`
	Message    string  `json:"message,omitempty"`
}

// CommandEntry is one chat command and the reply it got.
type CommandEntry struct {
	Time    string   `json:"time"`
	Caller  string   `json:"caller"`
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
	Result  string   `json:"result"`
	Reply   string   `json:"reply"`
}

// Init sets the journal directory. An empty dir turns journaling off.
func Init(path string) {
	mu.Lock()
	defer mu.Unlock()
	dir = path
}

func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return dir != ""
}

func ordersFilepath(t time.Time) string {
	return filepath.Join(dir, t.Format("2006-01-02")+".txt")
}

func commandsFilepath(t time.Time) string {
	return filepath.Join(dir, "commands", t.Format("2006-01-02")+".txt")
}

func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	if dir == "" {
		return nil
	}
	t := now()
	e.Time = t.Format(timeLayout)
	return appendLine(ordersFilepath(t), e)
}

func AppendCommand(e CommandEntry) error {
	mu.Lock()
	defer mu.Unlock()
	if dir == "" {
		return nil
	}
	t := now()
	e.Time = t.Format(timeLayout)
	return appendLine(commandsFilepath(t), e)
}

// appendLine must be called with mu held.
func appendLine(p string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
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

// CompressOlder gzips journal files last written more than retentionDays
// ago and returns how many it compressed. Files it cannot read are skipped.
func CompressOlder(retentionDays int) (int, error) {
	mu.Lock()
	defer mu.Unlock()
	if retentionDays <= 0 || dir == "" {
		return 0, nil
	}
	cutoff := now().AddDate(0, 0, -retentionDays)
	compressed := 0
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".txt") {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if gzipFile(p, gz) == nil {
			_ = os.Remove(p)
			compressed++
		}
		return nil
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
	_, err = io.Copy(gw, in)
	if cerr := gw.Close(); err == nil {
		err = cerr
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
	}
	return err
}
