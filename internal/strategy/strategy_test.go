package strategy

import (
	"errors"
	"testing"
	"time"

	"yupan/internal/domain"
	"yupan/internal/indicator"
)

// constPred always returns the same result and counts its calls.
type constPred struct {
	hit   bool
	desc  string
	calls int
}

func (p *constPred) Evaluate(_ *indicator.Row, _ *RunState) (bool, string) {
	p.calls++
	return p.hit, p.desc
}

func testRegistry() (*Registry, map[string]*constPred) {
	preds := map[string]*constPred{
		"1": {hit: true, desc: "one"},
		"2": {hit: false, desc: "two"},
		"3": {hit: true, desc: "three"},
		"4": {hit: false, desc: "four"},
	}
	m := make(map[string]Predicate, len(preds))
	for id, p := range preds {
		m[id] = p
	}
	return NewRegistry("test", m), preds
}

func TestRegistryGet(t *testing.T) {
	reg, _ := testRegistry()

	if _, ok := reg.Get("1"); !ok {
		t.Fatal("Get returned false for registered id")
	}
	if _, ok := reg.Get("nonexistent"); ok {
		t.Error("Get returned true for unregistered id")
	}
	var nilReg *Registry
	if _, ok := nilReg.Get("1"); ok {
		t.Error("nil registry Get returned true")
	}
}

func TestRegistryList(t *testing.T) {
	reg, _ := testRegistry()
	ids := reg.List()
	want := []string{"1", "2", "3", "4"}
	if len(ids) != len(want) {
		t.Fatalf("List returned %d ids, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestRegistryIsImmutable(t *testing.T) {
	src := map[string]Predicate{"1": PredicateFunc(func(*indicator.Row, *RunState) (bool, string) { return true, "" })}
	reg := NewRegistry("copy", src)
	delete(src, "1")
	if _, ok := reg.Get("1"); !ok {
		t.Error("registry changed after its source map was modified")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1", "1"},
		{" 1 ", "1"},
		{"1,2", "1,2"},
		{"1+2", "1+2"},
		{"1+2,3", "1+2,3"},
		{"1,2+3+4", "1,2+3+4"},
	}
	for _, tt := range tests {
		if got := Parse(tt.in).String(); got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	x, ok := Parse("1+2,3").(Or)
	if !ok || len(x) != 2 {
		t.Fatalf("Parse(1+2,3) = %#v, want Or of two", Parse("1+2,3"))
	}
	if _, ok := x[0].(And); !ok {
		t.Errorf("first alternative = %#v, want And", x[0])
	}
}

func TestEvaluateOrAnd(t *testing.T) {
	reg, _ := testRegistry()
	st := NewRunState(10000)
	row := &indicator.Row{}

	ids := []string{"1", "2", "3", "4", "missing"}
	for _, a := range ids {
		for _, b := range ids {
			ha, _ := Evaluate(Parse(a), row, st, reg)
			hb, _ := Evaluate(Parse(b), row, st, reg)

			if got, _ := Evaluate(Parse(a+","+b), row, st, reg); got != (ha || hb) {
				t.Errorf("%s,%s = %v, want %v", a, b, got, ha || hb)
			}
			if got, _ := Evaluate(Parse(a+"+"+b), row, st, reg); got != (ha && hb) {
				t.Errorf("%s+%s = %v, want %v", a, b, got, ha && hb)
			}
		}
	}
}

func TestEvaluateDescriptions(t *testing.T) {
	reg, _ := testRegistry()
	st := NewRunState(10000)
	row := &indicator.Row{}

	if _, desc := Evaluate(Parse("2,3,1"), row, st, reg); desc != "three" {
		t.Errorf("OR desc = %q, want first hit %q", desc, "three")
	}
	if hit, desc := Evaluate(Parse("1+3"), row, st, reg); !hit || desc != "one AND three" {
		t.Errorf("AND = %v %q, want true %q", hit, desc, "one AND three")
	}
	if hit, desc := Evaluate(Parse("2,4"), row, st, reg); hit || desc != "" {
		t.Errorf("OR miss = %v %q, want false \"\"", hit, desc)
	}
	// A missed AND still reports the descriptions of the terms that hit.
	if hit, desc := Evaluate(Parse("1+2"), row, st, reg); hit || desc != "one" {
		t.Errorf("AND miss = %v %q, want false %q", hit, desc, "one")
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	reg, preds := testRegistry()
	st := NewRunState(10000)
	row := &indicator.Row{}

	Evaluate(Parse("1,3"), row, st, reg)
	if preds["3"].calls != 0 {
		t.Errorf("OR evaluated %d terms after the first hit", preds["3"].calls)
	}

	Evaluate(Parse("2+3"), row, st, reg)
	if preds["3"].calls != 1 {
		t.Errorf("AND evaluated term 3 %d times, want 1", preds["3"].calls)
	}
}

func TestUnknownLeafIsMiss(t *testing.T) {
	reg, _ := testRegistry()
	hit, desc := Evaluate(Parse("zz"), &indicator.Row{}, NewRunState(0), reg)
	if hit || desc != "" {
		t.Errorf("unknown leaf = %v %q, want miss", hit, desc)
	}
	if hit, _ := Evaluate(nil, &indicator.Row{}, NewRunState(0), reg); hit {
		t.Error("nil expression hit")
	}
}

func TestFirstMatch(t *testing.T) {
	reg, preds := testRegistry()
	hit, desc := FirstMatch([]string{"2", "3", "1"}, &indicator.Row{}, NewRunState(0), reg)
	if !hit || desc != "three" {
		t.Errorf("FirstMatch = %v %q, want true three", hit, desc)
	}
	if preds["1"].calls != 0 {
		t.Error("FirstMatch kept evaluating after a hit")
	}
}

func TestCompile(t *testing.T) {
	reg, _ := testRegistry()
	st := NewRunState(0)
	row := &indicator.Row{}

	if hit, _ := Compile("1+2", reg, CompositionExpression).Eval(row, st); hit {
		t.Error("expression 1+2 should miss")
	}
	// First-match splits on commas only.
	if hit, _ := Compile("2, 1", reg, CompositionFirstMatch).Eval(row, st); !hit {
		t.Error("first-match 2,1 should hit on 1")
	}
	var nilRule *Rule
	if hit, _ := nilRule.Eval(row, st); hit {
		t.Error("nil rule hit")
	}
}

func TestRunStateFlags(t *testing.T) {
	st := NewRunState(5000)
	if st.Cash != 5000 || st.Base != 5000 || st.Holding {
		t.Errorf("NewRunState = %+v", st)
	}
	if st.Flag("fish_tub") {
		t.Error("unset flag reported true")
	}
	st.SetFlag("fish_tub", true)
	if !st.Flag("fish_tub") {
		t.Error("SetFlag did not stick")
	}
	st.EntryPrice = 10
	if g := st.Gain(11); g < 0.0999 || g > 0.1001 {
		t.Errorf("Gain(11) = %v, want 0.1", g)
	}
}

func TestParseOperate(t *testing.T) {
	for _, s := range []string{"back_test", "buy", "sell"} {
		if _, err := ParseOperate(s); err != nil {
			t.Errorf("ParseOperate(%q): %v", s, err)
		}
	}
	if _, err := ParseOperate("hold"); err == nil {
		t.Error("ParseOperate(hold) should fail")
	}
}

func TestParsePolicies(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"", false},
		{"close", false},
		{"next_open", false},
		{"nextopen", true},
		{"Close", true},
		{"open", true},
	}
	for _, tt := range tests {
		got, err := ParseExecution(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExecution(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidPolicy) {
			t.Errorf("ParseExecution(%q) err = %v, want ErrInvalidPolicy", tt.in, err)
		}
		if err == nil && string(got) != tt.in {
			t.Errorf("ParseExecution(%q) = %q", tt.in, got)
		}
	}

	opens := []struct {
		in      string
		wantErr bool
	}{
		{"", false},
		{"mark_at_entry", false},
		{"exclude", false},
		{"force_close", false},
		{"forceclose", true},
		{"mark", true},
	}
	for _, tt := range opens {
		got, err := ParseOpenPosition(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOpenPosition(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidPolicy) {
			t.Errorf("ParseOpenPosition(%q) err = %v, want ErrInvalidPolicy", tt.in, err)
		}
		if err == nil && string(got) != tt.in {
			t.Errorf("ParseOpenPosition(%q) = %q", tt.in, got)
		}
	}
}

func testBars(n int) []domain.Bar {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, n)
	for i := range bars {
		c := 10 + float64(i)
		bars[i] = domain.Bar{Timestamp: start.AddDate(0, 0, i), Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	return bars
}

func TestModePrepare(t *testing.T) {
	var visited []int
	m := &Mode{
		Name: "prep",
		Pretreat: func(rows []indicator.Row, op Operate, tu indicator.Tuning) {
			for _, i := range Indexes(rows, op) {
				visited = append(visited, i)
				rows[i].SetFlag("seen", true)
			}
		},
		Policy: Policy{DefaultBuy: "1"},
	}

	rows, err := m.Prepare(testBars(30), OperateBuy, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(visited) != 1 || visited[0] != 29 {
		t.Errorf("buy pretreatment visited %v, want [29]", visited)
	}
	if !rows[29].Flag("seen") || rows[28].Flag("seen") {
		t.Error("flag placement wrong")
	}

	visited = nil
	if _, err := m.Prepare(testBars(30), OperateBacktest, ""); err != nil {
		t.Fatal(err)
	}
	if len(visited) != 30 {
		t.Errorf("back_test pretreatment visited %d rows, want 30", len(visited))
	}

	if _, err := m.Prepare(testBars(1), OperateBacktest, ""); !errors.Is(err, domain.ErrDataUnavailable) {
		t.Errorf("Prepare(1 bar) error = %v, want ErrDataUnavailable", err)
	}
	if m.BuyRule("").String() != "1" {
		t.Errorf("BuyRule default = %q, want 1", m.BuyRule("").String())
	}
}

func TestCatalog(t *testing.T) {
	c := NewCatalog(&Mode{Name: "beta"}, &Mode{Name: "alpha"})
	if got := c.List(); len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Errorf("List = %v, want [alpha beta]", got)
	}
	if _, err := c.Get("gamma"); err == nil {
		t.Error("Get(gamma) should fail")
	}
	if m, err := c.Get("alpha"); err != nil || m.Name != "alpha" {
		t.Errorf("Get(alpha) = %v, %v", m, err)
	}
}
