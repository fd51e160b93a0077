package results

import (
	"errors"
	"testing"
)

func entries(orf, n, ic float64) []AnalysisEntry {
	return []AnalysisEntry{
		{Label: ChannelORF1ab, Value: orf},
		{Label: ChannelNGene, Value: n},
		{Label: ChannelControl, Value: ic},
	}
}

func TestClassifyDecisionTable(t *testing.T) {
	cases := []struct {
		name string
		orf  float64
		n    float64
		want Result
	}{
		{"both targets amplified", 20, 22, ResultPositive},
		{"both at positive boundary", 35, 35, ResultPositive},
		{"only ORF1ab amplified", 28, 0, ResultPresumptivePositive},
		{"only N amplified", 0, 30, ResultPresumptivePositive},
		{"weak amplification", 36, 0, ResultPreliminaryPositive},
		{"weak on second target", 20, 38.5, ResultPreliminaryPositive},
		{"weak at detection boundary", 40, 0, ResultPreliminaryPositive},
		{"reading beyond detection range", 41, 0, ResultIndeterminate},
		{"nothing amplified", 0, 0, ResultNegative},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(entries(tc.orf, tc.n, 25))
			if got != tc.want {
				t.Fatalf("Classify(orf=%v, n=%v) = %s, want %s", tc.orf, tc.n, got, tc.want)
			}
		})
	}
}

func TestClassifyIgnoresControlChannel(t *testing.T) {
	// the IC reading gates validation, not classification
	if got := Classify(entries(0, 0, 39)); got != ResultNegative {
		t.Fatalf("got %s, want %s", got, ResultNegative)
	}
}

func TestValidatePayload(t *testing.T) {
	valid := ResultPayload{Analysis: entries(20, 22, 25)}
	if err := ValidatePayload(valid, DefaultControlCtLimit); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	cases := []struct {
		name    string
		payload ResultPayload
	}{
		{"no readings", ResultPayload{}},
		{"missing control channel", ResultPayload{Analysis: []AnalysisEntry{
			{Label: ChannelORF1ab, Value: 20}, {Label: ChannelNGene, Value: 22},
		}}},
		{"control never amplified", ResultPayload{Analysis: entries(20, 22, 0)}},
		{"control at limit", ResultPayload{Analysis: entries(20, 22, 40)}},
		{"negative reading", ResultPayload{Analysis: []AnalysisEntry{
			{Label: ChannelORF1ab, Value: -1}, {Label: ChannelControl, Value: 25},
		}}},
		{"unlabeled entry", ResultPayload{Analysis: []AnalysisEntry{
			{Value: 20}, {Label: ChannelControl, Value: 25},
		}}},
		{"unknown action", ResultPayload{Analysis: entries(20, 22, 25), Action: "retest"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayload(tc.payload, DefaultControlCtLimit)
			if !errors.Is(err, ErrBadRequest) {
				t.Fatalf("got %v, want bad request", err)
			}
		})
	}
}

func TestFinalize(t *testing.T) {
	for action, want := range map[string]Result{
		ConfirmPositive:      ResultPositive,
		ConfirmNegative:      ResultNegative,
		ConfirmInconclusive:  ResultInconclusive,
		ConfirmIndeterminate: ResultIndeterminate,
	} {
		got, ok := Finalize(action)
		if !ok || got != want {
			t.Fatalf("Finalize(%q) = %s, %v", action, got, ok)
		}
	}
	if _, ok := Finalize("approve"); ok {
		t.Fatal("unknown action accepted")
	}
}
