package cw

import (
	"testing"
	"time"
)

// scenarioTiming uses the reference ceilings in milliseconds.
func scenarioTiming() Timing {
	return Timing{
		DotCeiling:   115 * time.Millisecond,
		DashCeiling:  315 * time.Millisecond,
		CharGap:      300 * time.Millisecond,
		WordGap:      700 * time.Millisecond,
		IdleTimeout:  2 * time.Second,
		PollInterval: 0,
	}
}

func TestDefaultTiming(t *testing.T) {
	got := DefaultTiming()
	want := scenarioTiming()
	want.PollInterval = DefaultPollInterval
	if got != want {
		t.Errorf("DefaultTiming() = %+v, want %+v", got, want)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("DefaultTiming().Validate() error = %v", err)
	}
}

func TestTiming_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Timing)
		want   error
	}{
		{"zero dot", func(t *Timing) { t.DotCeiling = 0 }, ErrInvalidDotCeiling},
		{"dash not above dot", func(t *Timing) { t.DashCeiling = t.DotCeiling }, ErrInvalidDashCeiling},
		{"zero char gap", func(t *Timing) { t.CharGap = 0 }, ErrInvalidCharGap},
		{"word not above char", func(t *Timing) { t.WordGap = t.CharGap }, ErrInvalidWordGap},
		{"idle not above word", func(t *Timing) { t.IdleTimeout = t.WordGap }, ErrInvalidIdleTimeout},
		{"negative poll", func(t *Timing) { t.PollInterval = -1 }, ErrInvalidPollInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timing := scenarioTiming()
			tt.mutate(&timing)
			if err := timing.Validate(); err != tt.want {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClassifyPress(t *testing.T) {
	timing := scenarioTiming()

	tests := []struct {
		ms   int
		want Token
	}{
		{0, TokenDot},
		{80, TokenDot},
		{115, TokenDot},
		{116, TokenDash},
		{250, TokenDash},
		{315, TokenDash},
		{316, TokenDropped},
		{400, TokenDropped},
		{5000, TokenDropped},
	}

	for _, tt := range tests {
		t.Run(time.Duration(tt.ms*int(time.Millisecond)).String(), func(t *testing.T) {
			d := time.Duration(tt.ms) * time.Millisecond
			if got := ClassifyPress(d, timing); got != tt.want {
				t.Errorf("ClassifyPress(%v) = %v, want %v", d, got, tt.want)
			}
		})
	}
}

func TestClassifyGap(t *testing.T) {
	timing := scenarioTiming()

	tests := []struct {
		ms   int
		want Token
	}{
		{0, TokenNone},
		{100, TokenNone},
		{300, TokenNone},
		{301, TokenCharGap},
		{350, TokenCharGap},
		{700, TokenCharGap},
		{701, TokenWordGap},
		{900, TokenWordGap},
	}

	for _, tt := range tests {
		t.Run(time.Duration(tt.ms*int(time.Millisecond)).String(), func(t *testing.T) {
			d := time.Duration(tt.ms) * time.Millisecond
			if got := ClassifyGap(d, timing); got != tt.want {
				t.Errorf("ClassifyGap(%v) = %v, want %v", d, got, tt.want)
			}
		})
	}
}

func TestClassify_Exhaustive(t *testing.T) {
	timing := scenarioTiming()
	for d := time.Duration(0); d < time.Second; d += time.Millisecond {
		switch ClassifyPress(d, timing) {
		case TokenDot, TokenDash, TokenDropped:
		default:
			t.Fatalf("ClassifyPress(%v) outside press buckets", d)
		}
		switch ClassifyGap(d, timing) {
		case TokenNone, TokenCharGap, TokenWordGap:
		default:
			t.Fatalf("ClassifyGap(%v) outside gap buckets", d)
		}
	}
}

func TestToken_Symbol(t *testing.T) {
	tests := map[Token]string{
		TokenNone:    "",
		TokenDot:     ".",
		TokenDash:    "-",
		TokenDropped: "",
		TokenCharGap: " ",
		TokenWordGap: "   ",
	}
	for tok, want := range tests {
		if got := tok.Symbol(); got != want {
			t.Errorf("%v.Symbol() = %q, want %q", tok, got, want)
		}
	}
}
