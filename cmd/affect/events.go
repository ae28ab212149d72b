package main

import (
	"github.com/normanking/cortexaffect/internal/bus"
	"github.com/normanking/cortexaffect/internal/logging"
)

var sessionEvents = []bus.EventType{
	bus.EventTypeSessionCreated,
	bus.EventTypeSessionReset,
	bus.EventTypeSessionDeleted,
	bus.EventTypeEmotionChanged,
}

// logEvents records bus traffic in the log file and the in-memory history.
func logEvents(events *bus.EventBus, l *logging.Logger) {
	events.SubscribeMultiple(sessionEvents, func(e bus.Event) {
		l.Info("session", string(e.Type), eventData(e))
	})

	events.Subscribe(bus.EventTypePackageReady, func(e bus.Event) {
		l.Debug("pipeline", string(e.Type), eventData(e))
	})

	events.Subscribe(bus.EventTypeRendererError, func(e bus.Event) {
		msg, _ := e.Data["error"].(string)
		l.Warn("renderer", string(e.Type), map[string]interface{}{"error": msg})
	})
}

func eventData(e bus.Event) map[string]interface{} {
	data := make(map[string]interface{}, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	if e.SessionID != "" {
		data["session"] = e.SessionID
	}
	return data
}

// logFailure records a failed command before the process exits.
func logFailure(l *logging.Logger, cmd string, err error) {
	if l == nil || err == nil {
		return
	}
	l.Error("cli", "command failed", err, map[string]interface{}{"command": cmd})
	l.Close()
}
