package ledger

// holdingsState is FLAT when no shares are held and OPEN otherwise. For buys
// it is evaluated before the trade, for sells after it.
type holdingsState uint8

const (
	stateOpen holdingsState = iota
	stateFlat
)

// detailKind is the T-trade kind completed by a transaction, or none.
type detailKind uint8

const (
	kindNone detailKind = iota
	kindStandard
	kindReverse
)

type tagKey struct {
	state       holdingsState
	side        TransactionType
	kind        detailKind
	participant bool
}

type tagDecision struct {
	tag        PositionTag
	startCycle bool
}

// cycleTags is the decision table for position cycle boundaries. Keys that
// are absent leave the transaction untagged.
//
// A reopening buy that completes a reverse T-trade continues the cycle that
// its paired sell interrupted, and that sell is not a close either.
var cycleTags = map[tagKey]tagDecision{
	{stateFlat, Buy, kindNone, false}:     {tag: TagOpen, startCycle: true},
	{stateFlat, Buy, kindNone, true}:      {tag: TagOpen, startCycle: true},
	{stateFlat, Buy, kindStandard, false}: {tag: TagOpen, startCycle: true},
	{stateFlat, Buy, kindStandard, true}:  {tag: TagOpen, startCycle: true},

	{stateFlat, Sell, kindNone, false}:     {tag: TagClose},
	{stateFlat, Sell, kindStandard, false}: {tag: TagClose},
	{stateFlat, Sell, kindStandard, true}:  {tag: TagClose},
	{stateFlat, Sell, kindReverse, false}:  {tag: TagClose},
	{stateFlat, Sell, kindReverse, true}:   {tag: TagClose},
}

func decideTag(state holdingsState, side TransactionType, detail *TTradeDetail, participant bool) tagDecision {
	kind := kindNone
	if detail != nil {
		kind = kindStandard
		if detail.Kind == TTradeReverse {
			kind = kindReverse
		}
	}
	return cycleTags[tagKey{state: state, side: side, kind: kind, participant: participant}]
}
