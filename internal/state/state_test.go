package state

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDaemonState_MissingReturnsZeroValue(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	d, err := s.LoadDaemonState()
	require.NoError(t, err)
	assert.Empty(t, d.Positions)
	assert.Equal(t, 0, d.DailyTrades)
}

func TestSaveAndLoadDaemonState_RoundTrips(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	d := &Daemon{
		Positions:     []Position{{Ticker: "KXHIGHTPHX-26Jul31-T90", Side: "yes", Count: 2, Price: 20}},
		DailyTrades:   3,
		LastTradeDate: "2026-07-30",
	}
	require.NoError(t, s.SaveDaemonState(d))

	loaded, err := s.LoadDaemonState()
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.DailyTrades)
	require.Len(t, loaded.Positions, 1)
	assert.Equal(t, "KXHIGHTPHX-26Jul31-T90", loaded.Positions[0].Ticker)
}

func TestRecordPnL_AccumulatesDailyAndWeekly(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	now := time.Date(2026, time.July, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordPnL(150, now))
	require.NoError(t, s.RecordPnL(-50, now))

	p, err := s.LoadPnL()
	require.NoError(t, err)

	day := p.Daily["2026-07-30"]
	assert.Equal(t, 100, day.PnLCents)
	assert.Equal(t, 2, day.Trades)
	assert.Equal(t, 1, day.Wins)
	assert.Equal(t, 1, day.Losses)
}

func TestRollingLog_TrimsToMaxLines(t *testing.T) {
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)

	rl := s.NewRollingLog(5)
	for i := 0; i < 10; i++ {
		require.NoError(t, rl.Write("line"))
	}

	data, err := s.LoadDaemonState() // ensures dir exists; separate read below
	require.NoError(t, err)
	_ = data

	lines, err := readLogLines(s.path("daemon.log"))
	require.NoError(t, err)
	assert.Len(t, lines, 5)
}

func readLogLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return splitLines(data), nil
}
