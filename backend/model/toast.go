package model

import "time"

// ToastPreviewLen bounds the message preview shown in a toast.
const ToastPreviewLen = 80

// ToastEntry is one out-of-focus chat alert. Entries are immutable after
// creation and removed either by the auto-dismiss timer or explicitly.
type ToastEntry struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
}

// TruncatePreview shortens body to the toast preview length, appending an
// ellipsis when anything was cut.
func TruncatePreview(body string) string {
	runes := []rune(body)
	if len(runes) <= ToastPreviewLen {
		return body
	}
	return string(runes[:ToastPreviewLen]) + "…"
}
