package http

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ledger/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		query     string
		wantYear  int
		wantMonth int
		wantErr   bool
	}{
		{"defaults to current month", "", now.Year(), int(now.Month()), false},
		{"explicit", "year=2024&month=3", 2024, 3, false},
		{"out of range month passes through", "year=2024&month=13", 2024, 13, false},
		{"non numeric month", "month=march", 0, 0, true},
		{"non numeric year", "year=abc&month=1", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)
			got, err := ParseMonthParams(q)
			if tt.wantErr {
				require.True(t, errors.Is(err, errBadRequest))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantYear, got.Year)
			require.Equal(t, tt.wantMonth, got.Month)
		})
	}
}

func TestAmountInput(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{`12.5`, 1250, false},
		{`"12,34"`, 1234, false},
		{`"0.005"`, 1, false},
		{`0`, 0, true},
		{`-3`, 0, true},
		{`null`, 0, true},
		{`"abc"`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var a amountInput
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &a))
			m, err := a.Money()
			if tt.wantErr {
				require.ErrorIs(t, err, core.ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, m.Cents)
		})
	}
}

func TestParseDateDefaultsToToday(t *testing.T) {
	d, err := parseDate("  ")
	require.NoError(t, err)
	require.Equal(t, core.Today(), d)

	_, err = parseDate("2024-13-01")
	require.ErrorIs(t, err, core.ErrInvalidDate)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrDuplicateEntity, 409},
		{core.ErrUnknownPerson, 422},
		{core.ErrInvalidMonth, 422},
		{errBadRequest, 400},
		{core.ErrPersistence, 500},
		{errors.New("boom"), 500},
	}
	for _, tt := range tests {
		if got := StatusForError(tt.err); got != tt.want {
			t.Errorf("StatusForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
