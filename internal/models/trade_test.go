package models

import "testing"

func TestParseTradeMode(t *testing.T) {
	tests := []struct {
		input   string
		want    TradeMode
		wantErr bool
	}{
		{"FOREX", ModeForex, false},
		{"binary", ModeBinary, false},
		{" live ", ModeLive, false},
		{"Scan", ModeScan, false},
		{"RADOM", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseTradeMode(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseTradeMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTradeMode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTradeMode_RequiresChart(t *testing.T) {
	for _, m := range TradeModes {
		want := m == ModeForex || m == ModeBinary
		if m.RequiresChart() != want {
			t.Errorf("%s.RequiresChart() = %v, want %v", m, m.RequiresChart(), want)
		}
	}
}

func TestSignal_IsValid(t *testing.T) {
	if !SignalBuy.IsValid() || !SignalSell.IsValid() {
		t.Error("BUY and SELL must be valid")
	}
	for _, s := range []Signal{"", "HOLD", "buy", "COMPRA"} {
		if s.IsValid() {
			t.Errorf("Signal(%q).IsValid() = true, want false", s)
		}
	}
}
