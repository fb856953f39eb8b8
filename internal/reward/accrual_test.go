package reward

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPending(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		amount string
		apy    string
		now    time.Time
		want   string
	}{
		{"full year", "1000", "10", start.Add(365 * 24 * time.Hour), "100"},
		{"half year", "1000", "10", start.Add(365 * 12 * time.Hour), "50"},
		{"one day", "36500", "12", start.Add(24 * time.Hour), "12"},
		{"sub-second ignored", "1000", "10", start.Add(500 * time.Millisecond), "0"},
		{"same instant", "1000", "10", start, "0"},
		{"clock behind", "1000", "10", start.Add(-time.Hour), "0"},
		{"zero apy", "1000", "0", start.Add(24 * time.Hour), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Pending(dec(t, tt.amount), dec(t, tt.apy), start, tt.now)
			assertDecimal(t, tt.want, got)
		})
	}
}

func TestEarlyExit(t *testing.T) {
	exit := EarlyExit(dec(t, "1000"), dec(t, "15"))
	assertDecimal(t, "150", exit.Penalty)
	assertDecimal(t, "850", exit.Payout)

	none := EarlyExit(dec(t, "0.5"), dec(t, "0"))
	assertDecimal(t, "0", none.Penalty)
	assertDecimal(t, "0.5", none.Payout)
}

func TestMaturity(t *testing.T) {
	start := time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2027, 1, 15, 9, 30, 0, 0, time.UTC), Maturity(start, 12))
	assert.Equal(t, time.Date(2026, 7, 15, 9, 30, 0, 0, time.UTC), Maturity(start, 6))

	assert.False(t, IsMature(start, 6, start.AddDate(0, 5, 30)))
	assert.True(t, IsMature(start, 6, time.Date(2026, 7, 15, 9, 30, 0, 0, time.UTC)))
	assert.True(t, IsMature(start, 6, start.AddDate(1, 0, 0)))
}
