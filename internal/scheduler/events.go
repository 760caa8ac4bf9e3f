package scheduler

import "time"

// Event is a single entry in the observability stream (spec §5): ordered,
// monotonic-timestamped, tagged with the frame it occurred in. Grounded on
// hector's reasoning/extension_service.go event-emission shape, generalized
// from a fixed set of extension events to the open Type vocabulary spec §4.4
// requires (frame:render, node:execute:start, node:execute:end, control:stop,
// control:human, control:abort, state:change, callback:invoked,
// loop:terminated, and the provider events of §4.9).
type Event struct {
	Type      string
	Frame     int
	Timestamp time.Time
	NodePath  string
	Data      map[string]any
}

// emitter wraps an EventSink with the DebugConfig's type filter, so the
// scheduler can call emit unconditionally and let the sink decide nothing
// when debugging isn't enabled or the type isn't of interest.
type emitter struct {
	sink   EventSink
	cfg    DebugConfig
	frame  int
}

func (e *emitter) emit(typ, nodePath string, data map[string]any) {
	if e.sink == nil || !e.cfg.Enabled {
		return
	}
	if len(e.cfg.EventTypes) > 0 && !contains(e.cfg.EventTypes, typ) {
		return
	}
	e.sink.Emit(Event{
		Type:      typ,
		Frame:     e.frame,
		Timestamp: time.Now(),
		NodePath:  nodePath,
		Data:      data,
	})
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
