package rationsmart

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/davecgh/go-spew/spew"
)

// DebugDump logs a deep dump of v, tagged with the caller's location. It is a
// no-op unless enabled, since dumps can contain full upstream payloads.
func DebugDump(enabled bool, label string, v any) {
	if !enabled {
		return
	}
	_, file, line, _ := runtime.Caller(1)
	slog.Debug("DEBUG: "+label, "at", fmt.Sprintf("%s:%d", file, line), "dump", spew.Sdump(v))
}
