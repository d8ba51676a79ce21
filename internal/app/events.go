package app

import (
	"sort"

	abci "github.com/cometbft/cometbft/abci/types"
)

// eventLog collects the events of one transaction in emission order.
type eventLog struct {
	events []abci.Event
}

func (l *eventLog) Emit(typ string, attrs map[string]string) {
	l.events = append(l.events, newEvent(typ, attrs))
}

func newEvent(typ string, attrs map[string]string) abci.Event {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return ev
}
