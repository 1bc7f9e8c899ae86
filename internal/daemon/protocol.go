package daemon

// Request is one newline-delimited JSON request on the daemon socket. Args
// carries the same keys as the apply command (target, emojis, mode,
// pane_id, tab_index) or info=true.
type Request struct {
	ID   string            `json:"id"`
	Args map[string]string `json:"args"`
}

// Response answers the Request with the same ID. Output is "ok" after a
// successful decoration, the JSON state dump for info requests, and the
// failure message otherwise.
type Response struct {
	ID     string `json:"id"`
	OK     bool   `json:"ok"`
	Output string `json:"output"`
}

// ReplyOK is the output of a successful decoration.
const ReplyOK = "ok"

// maxLineBytes bounds a single request line.
const maxLineBytes = 64 * 1024
