package results

// Assay channel labels reported by the instrument.
const (
	ChannelORF1ab  = "ORF1ab"
	ChannelNGene   = "N"
	ChannelControl = "IC"
)

// Cycle-threshold boundaries for the decision table. A reading of zero means
// the channel never amplified.
const (
	positiveCtMax  = 35
	detectionCtMax = 40
)

// DefaultControlCtLimit is the ceiling the internal-control channel must
// stay under for a payload to be accepted at all.
const DefaultControlCtLimit = 40

// channelValue returns the reading for label, zero if absent.
func channelValue(analysis []AnalysisEntry, label string) (float64, bool) {
	for _, e := range analysis {
		if e.Label == label {
			return e.Value, true
		}
	}
	return 0, false
}

// ValidatePayload applies the business constraints a submission must meet
// before classification. It returns a bad-request error describing the first
// violation found.
func ValidatePayload(p ResultPayload, controlCtLimit float64) error {
	if controlCtLimit <= 0 {
		controlCtLimit = DefaultControlCtLimit
	}
	if len(p.Analysis) == 0 {
		return badRequestf("analysis readings are required")
	}
	for _, e := range p.Analysis {
		if e.Label == "" {
			return badRequestf("analysis entry missing label")
		}
		if e.Value < 0 {
			return badRequestf("channel %s: negative reading %v", e.Label, e.Value)
		}
	}
	ic, ok := channelValue(p.Analysis, ChannelControl)
	if !ok {
		return badRequestf("internal control channel %s is required", ChannelControl)
	}
	if ic <= 0 || ic >= controlCtLimit {
		return badRequestf("internal control ct %v outside (0, %v)", ic, controlCtLimit)
	}
	switch p.Action {
	case ActionNone, ActionReRun, ActionReSample:
	default:
		return badRequestf("unknown action %q", p.Action)
	}
	return nil
}

// Classify maps raw channel readings to a result classification. Pure; the
// full decision table:
//
//	both targets ct in (0, 35]        -> Positive
//	one target in (0, 35], other 0    -> PresumptivePositive (confirm)
//	any target in (35, 40]            -> PreliminaryPositive (confirm)
//	any target above 40               -> Indeterminate
//	no target amplified               -> Negative
func Classify(analysis []AnalysisEntry) Result {
	orf, _ := channelValue(analysis, ChannelORF1ab)
	n, _ := channelValue(analysis, ChannelNGene)

	if orf > detectionCtMax || n > detectionCtMax {
		return ResultIndeterminate
	}
	if orf > positiveCtMax || n > positiveCtMax {
		return ResultPreliminaryPositive
	}

	orfDetected := orf > 0
	nDetected := n > 0
	switch {
	case orfDetected && nDetected:
		return ResultPositive
	case orfDetected || nDetected:
		return ResultPresumptivePositive
	default:
		return ResultNegative
	}
}

// Confirmation actions accepted by ConfirmResult.
const (
	ConfirmPositive      = "positive"
	ConfirmNegative      = "negative"
	ConfirmInconclusive  = "inconclusive"
	ConfirmIndeterminate = "indeterminate"
)

var confirmActions = map[string]Result{
	ConfirmPositive:      ResultPositive,
	ConfirmNegative:      ResultNegative,
	ConfirmInconclusive:  ResultInconclusive,
	ConfirmIndeterminate: ResultIndeterminate,
}

// Finalize maps a confirmation action to its final classification.
func Finalize(action string) (Result, bool) {
	r, ok := confirmActions[action]
	return r, ok
}
