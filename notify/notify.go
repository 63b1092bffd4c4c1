// Package notify queues toast notifications per client until the next
// response can deliver them.
package notify

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Color is a notification accent
type Color string

const (
	Red    Color = "red"
	Yellow Color = "yellow"
	Green  Color = "green"
)

// TriggerEvent is the client side event name notifications are sent under
const TriggerEvent = "notify"

const maxQueued = 20

// Notification is one toast
type Notification struct {
	Color   Color  `json:"color"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Notifier holds pending notifications per client
type Notifier struct {
	mu      sync.Mutex
	pending map[string][]Notification
}

func New() *Notifier {
	return &Notifier{pending: make(map[string][]Notification)}
}

// Push queues n for clientID. The oldest notification is dropped once the
// queue is full.
func (n *Notifier) Push(clientID string, note Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	q := append(n.pending[clientID], note)
	if len(q) > maxQueued {
		q = q[len(q)-maxQueued:]
	}
	n.pending[clientID] = q
}

// Drain returns and clears the pending notifications for clientID
func (n *Notifier) Drain(clientID string) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	q := n.pending[clientID]
	delete(n.pending, clientID)
	return q
}

// Trigger encodes notes as an HX-Trigger header value
func Trigger(notes []Notification) (string, error) {
	data, err := json.Marshal(map[string][]Notification{TriggerEvent: notes})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Flush drains clientID's queue into the HX-Trigger header of w. It must be
// called before the header is written.
func (n *Notifier) Flush(w http.ResponseWriter, clientID string) error {
	notes := n.Drain(clientID)
	if len(notes) == 0 {
		return nil
	}
	value, err := Trigger(notes)
	if err != nil {
		return err
	}
	w.Header().Set("HX-Trigger", value)
	return nil
}
