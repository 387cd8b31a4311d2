package eventloop

// ClientMessage is the decoded form of a client-to-server JSON text frame
// (spec.md §6). Every message except "ping" carries PaneID.
type ClientMessage struct {
	Type   string `json:"type"`
	PaneID uint16 `json:"paneId"`

	// key
	Key       string `json:"key,omitempty"`
	Code      string `json:"code,omitempty"`
	KeyCode   int    `json:"keyCode,omitempty"`
	State     string `json:"state,omitempty"` // "down" | "up"
	Modifiers int    `json:"modifiers,omitempty"`
	Repeat    bool   `json:"repeat,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`

	// text
	Data string `json:"data,omitempty"`

	// resize
	Cols int `json:"cols,omitempty"`
	Rows int `json:"rows,omitempty"`

	// scroll
	Delta int `json:"delta,omitempty"`

	// sync
	Gen      uint64 `json:"gen,omitempty"`
	MinRowID uint64 `json:"minRowId,omitempty"`

	// hello
	ThemeName string `json:"themeName,omitempty"`
	ThemeFg   string `json:"themeFg,omitempty"`
	ThemeBg   string `json:"themeBg,omitempty"`
}

// Client-to-server message types (spec.md §6). IsMutating reports which
// of them require master status (spec.md §4.4).
const (
	TypeKey           = "key"
	TypeText          = "text"
	TypeResize        = "resize"
	TypeScroll        = "scroll"
	TypeSync          = "sync"
	TypeResync        = "resync"
	TypeFocus         = "focus"
	TypeHello         = "hello"
	TypePing          = "ping"
	TypeRequestMaster = "requestMaster"
	TypeReleaseMaster = "releaseMaster"
)

// IsMutating reports whether a message type requires master status.
func IsMutating(msgType string) bool {
	switch msgType {
	case TypeKey, TypeText, TypeResize, TypeScroll:
		return true
	default:
		return false
	}
}
