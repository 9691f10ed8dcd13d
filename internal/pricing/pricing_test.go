package pricing

import "testing"

func TestPerPage(t *testing.T) {
	cost := PerPage(0.001, "USD")

	a := cost(10)
	if a.Value != 0.01 || a.Currency != "USD" {
		t.Errorf("unexpected amount %+v", a)
	}

	if cost(0).Value != 0 {
		t.Error("expected zero cost for zero pages")
	}
	if cost(-5).Value != 0 {
		t.Error("expected negative counts to be clamped")
	}
}

func TestDefaultRate(t *testing.T) {
	a := Default()(1000)
	if a.Value != 1.0 || a.Currency != "USD" {
		t.Errorf("expected 1.0 USD per 1000 pages, got %+v", a)
	}
}

func TestAmountString(t *testing.T) {
	a := Amount{Value: 0.0123, Currency: "USD"}
	if a.String() != "0.0123 USD" {
		t.Errorf("unexpected string %q", a.String())
	}
}
