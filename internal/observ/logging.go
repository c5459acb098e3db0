package observ

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

var (
	outMu sync.Mutex
	out   io.Writer = os.Stdout
)

// SetOutput redirects event lines; it returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	outMu.Lock()
	defer outMu.Unlock()
	prev := out
	out = w
	return prev
}

// Log writes one JSON line per event with "ts" and "event" keys added.
func Log(event string, kv map[string]any) {
	if kv == nil {
		kv = map[string]any{}
	}
	kv["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	kv["event"] = event
	b, err := json.Marshal(kv)
	if err != nil {
		b, _ = json.Marshal(map[string]any{"ts": kv["ts"], "event": event, "log_error": err.Error()})
	}
	outMu.Lock()
	defer outMu.Unlock()
	fmt.Fprintln(out, string(b))
}
