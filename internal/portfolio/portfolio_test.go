package portfolio

import (
	"math"
	"testing"
	"time"
)

var testDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestBuy(t *testing.T) {
	p := New(100000)

	ok := p.Buy("600000", testDate, 10.0, 1000, 0.0003)
	if !ok {
		t.Fatal("Buy should succeed with sufficient cash")
	}

	wantCash := 100000 - 10000 - 10000*0.0003
	if math.Abs(p.Cash()-wantCash) > 1e-9 {
		t.Errorf("Cash = %v, want %v", p.Cash(), wantCash)
	}
	if p.Position("600000") != 1000 {
		t.Errorf("Position = %d, want 1000", p.Position("600000"))
	}

	trades := p.Trades()
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	tr := trades[0]
	if tr.Action != ActionBuy || tr.Quantity != 1000 || tr.Price != 10.0 {
		t.Errorf("trade = %+v", tr)
	}
	if math.Abs(tr.Commission-3.0) > 1e-9 {
		t.Errorf("Commission = %v, want 3.0", tr.Commission)
	}
}

func TestBuyInsufficientCash(t *testing.T) {
	p := New(1000)

	ok := p.Buy("600000", testDate, 10.0, 1000, 0.0003)
	if ok {
		t.Fatal("Buy should fail when cash cannot cover cost plus commission")
	}

	// A failed buy changes nothing.
	if p.Cash() != 1000 {
		t.Errorf("Cash = %v, want untouched 1000", p.Cash())
	}
	if p.Position("600000") != 0 {
		t.Errorf("Position = %d, want 0", p.Position("600000"))
	}
	if len(p.Trades()) != 0 {
		t.Errorf("got %d trades, want 0", len(p.Trades()))
	}
}

func TestBuyCommissionPushesOverCash(t *testing.T) {
	// Cost alone fits exactly, cost plus commission does not.
	p := New(10000)
	if ok := p.Buy("600000", testDate, 10.0, 1000, 0.0003); ok {
		t.Error("Buy should fail when only the commission exceeds cash")
	}
}

func TestSell(t *testing.T) {
	p := New(100000)
	p.Buy("600000", testDate, 10.0, 1000, 0)

	ok := p.Sell("600000", testDate.AddDate(0, 0, 5), 11.0, 1000, 0.0013)
	if !ok {
		t.Fatal("Sell should succeed for held shares")
	}

	if p.Position("600000") != 0 {
		t.Errorf("Position = %d, want 0", p.Position("600000"))
	}
	if _, held := p.Positions()["600000"]; held {
		t.Error("fully sold symbol should leave the holdings map")
	}

	wantCash := 100000 - 10000 + 11000 - 11000*0.0013
	if math.Abs(p.Cash()-wantCash) > 1e-9 {
		t.Errorf("Cash = %v, want %v", p.Cash(), wantCash)
	}
}

func TestSellNotHeld(t *testing.T) {
	p := New(100000)

	if ok := p.Sell("600000", testDate, 10.0, 100, 0.0013); ok {
		t.Fatal("Sell of an unheld symbol should fail")
	}
	if p.Cash() != 100000 || len(p.Trades()) != 0 {
		t.Error("failed sell must change nothing")
	}
}

func TestSellMoreThanHeld(t *testing.T) {
	p := New(100000)
	p.Buy("600000", testDate, 10.0, 100, 0)

	if ok := p.Sell("600000", testDate, 10.0, 200, 0); ok {
		t.Fatal("Sell beyond held quantity should fail")
	}
	if p.Position("600000") != 100 {
		t.Errorf("Position = %d, want unchanged 100", p.Position("600000"))
	}
}

func TestPartialSellKeepsPosition(t *testing.T) {
	p := New(100000)
	p.Buy("600000", testDate, 10.0, 1000, 0)
	p.Sell("600000", testDate, 10.0, 400, 0)

	if p.Position("600000") != 600 {
		t.Errorf("Position = %d, want 600", p.Position("600000"))
	}
}

func TestUpdatePositionValues(t *testing.T) {
	p := New(100000)
	p.Buy("600000", testDate, 10.0, 1000, 0)
	p.Buy("000001", testDate, 20.0, 500, 0)

	total := p.UpdatePositionValues(map[string]float64{
		"600000": 12.0,
		"000001": 18.0,
	})

	wantCash := 100000.0 - 10000 - 10000
	want := wantCash + 12000 + 9000
	if math.Abs(total-want) > 1e-9 {
		t.Errorf("total = %v, want %v", total, want)
	}
}

func TestUpdatePositionValuesMissingPrice(t *testing.T) {
	p := New(100000)
	p.Buy("600000", testDate, 10.0, 1000, 0)

	// No price for the held symbol: it contributes nothing that day.
	total := p.UpdatePositionValues(map[string]float64{})
	if math.Abs(total-90000) > 1e-9 {
		t.Errorf("total = %v, want cash only 90000", total)
	}
}

func TestRecordDailySnapshot(t *testing.T) {
	p := New(100000)
	p.Buy("600000", testDate, 10.0, 1000, 0)
	total := p.UpdatePositionValues(map[string]float64{"600000": 10.0})
	p.RecordDailySnapshot(testDate, total)

	history := p.History()
	if len(history) != 1 {
		t.Fatalf("got %d snapshots, want 1", len(history))
	}
	snap := history[0]
	if snap.TotalValue != total {
		t.Errorf("TotalValue = %v, want %v", snap.TotalValue, total)
	}
	if snap.Positions["600000"] != 1000 {
		t.Errorf("snapshot Positions = %v", snap.Positions)
	}

	// The snapshot holds copies: later portfolio changes must not leak in.
	p.Sell("600000", testDate, 10.0, 1000, 0)
	if p.History()[0].Positions["600000"] != 1000 {
		t.Error("snapshot mutated by a later trade")
	}
}

func TestCashNeverNegative(t *testing.T) {
	p := New(5000)
	prices := []float64{9.8, 10.1, 10.4, 9.9}
	for i, price := range prices {
		p.Buy("600000", testDate.AddDate(0, 0, i), price, 300, 0.0003)
		if p.Cash() < 0 {
			t.Fatalf("cash went negative after buy %d: %v", i, p.Cash())
		}
	}
}
