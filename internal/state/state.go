// Package state handles the daemon's on-disk persistence: open positions,
// the P&L ledger, and append-only JSONL journals for paper trades,
// backtests, and settlements. Everything is flat JSON/JSONL rather than a
// database: JSON files are rewritten whole (write-then-rename), JSONL
// journals are appended to.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Position is one open (or settled-but-not-yet-cleared) trade record.
type Position struct {
	Ticker          string                 `json:"ticker"`
	Side            string                 `json:"side"`
	Count           int                    `json:"count"`
	Price           int                    `json:"price"`
	Fair            int                    `json:"fair"`
	RawEdge         float64                `json:"raw_edge"`
	AdjustedEdge    float64                `json:"adjusted_edge"`
	Confidence      float64                `json:"confidence"`
	City            string                 `json:"city"`
	Forecast        float64                `json:"forecast"`
	EnsembleDetails map[string]any         `json:"ensemble_details,omitempty"`
	TradeTime       time.Time              `json:"trade_time"`
	CityDate        string                 `json:"city_date"`
	TargetDate      string                 `json:"target_date"`
	PaperTrade      bool                   `json:"paper_trade"`
}

// Daemon is the daemon's full working state, rewritten to disk every cycle.
type Daemon struct {
	Positions      []Position `json:"positions"`
	DailyTrades    int        `json:"daily_trades"`
	LastTradeDate  string     `json:"last_trade_date"`
	TotalPnLCents  int        `json:"total_pnl_cents"`
}

// Store reads and writes daemon state under a data directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir, creating it if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(name string) string { return filepath.Join(s.dir, name) }

// LoadDaemonState loads the daemon state file, returning a fresh zero-value
// state if it does not exist yet.
func (s *Store) LoadDaemonState() (*Daemon, error) {
	var d Daemon
	ok, err := readJSON(s.path("daemon_state.json"), &d)
	if err != nil {
		return nil, err
	}
	if !ok {
		d = Daemon{Positions: []Position{}, LastTradeDate: ""}
	}
	return &d, nil
}

// SaveDaemonState atomically rewrites the daemon state file.
func (s *Store) SaveDaemonState(d *Daemon) error {
	return writeJSONAtomic(s.path("daemon_state.json"), d)
}

// PnLBucket is one day's or one week's aggregated P&L.
type PnLBucket struct {
	PnLCents int `json:"pnl_cents"`
	Trades   int `json:"trades"`
	Wins     int `json:"wins"`
	Losses   int `json:"losses"`
}

// PnL is the full ledger, keyed by "YYYY-MM-DD" for daily and "YYYY-Www"
// for weekly buckets.
type PnL struct {
	Daily map[string]PnLBucket `json:"daily"`
	Weeks map[string]PnLBucket `json:"weeks"`
}

// LoadPnL loads the P&L ledger, returning an empty ledger if none exists.
func (s *Store) LoadPnL() (*PnL, error) {
	var p PnL
	ok, err := readJSON(s.path("pnl.json"), &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		p = PnL{Daily: map[string]PnLBucket{}, Weeks: map[string]PnLBucket{}}
	}
	if p.Daily == nil {
		p.Daily = map[string]PnLBucket{}
	}
	if p.Weeks == nil {
		p.Weeks = map[string]PnLBucket{}
	}
	return &p, nil
}

// SavePnL atomically rewrites the P&L ledger.
func (s *Store) SavePnL(p *PnL) error {
	return writeJSONAtomic(s.path("pnl.json"), p)
}

// RecordPnL records a settlement result in both the daily and ISO-week
// buckets for now, then persists the ledger.
func (s *Store) RecordPnL(amountCents int, now time.Time) error {
	p, err := s.LoadPnL()
	if err != nil {
		return err
	}

	day := now.Format("2006-01-02")
	_, week := now.ISOWeek()
	weekKey := now.Format("2006") + "-W" + itoa2(week)

	applyBucket := func(m map[string]PnLBucket, key string) {
		b := m[key]
		b.PnLCents += amountCents
		b.Trades++
		if amountCents > 0 {
			b.Wins++
		} else {
			b.Losses++
		}
		m[key] = b
	}

	applyBucket(p.Daily, day)
	applyBucket(p.Weeks, weekKey)

	return s.SavePnL(p)
}

func itoa2(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
