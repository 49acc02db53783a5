package ws

import "encoding/json"

// PropsHub fans prop line changes out to connected boards. Premium
// connections get the full event payload; free connections only get a
// ping telling them the board changed.
type PropsHub struct {
	*Hub
}

func NewPropsHub() *PropsHub {
	return &PropsHub{Hub: NewHub()}
}

type PropEvent struct {
	Type string      `json:"type"` // prop_created | prop_updated | prop_settled
	Prop interface{} `json:"prop,omitempty"`
}

func (h *PropsHub) BroadcastPropEvent(ev PropEvent) {
	full, _ := json.Marshal(ev)
	ping, _ := json.Marshal(map[string]string{"type": "board_changed"})

	h.Hub.mu.RLock()
	clients := make([]*Client, 0, len(h.Hub.clients))
	for c := range h.Hub.clients {
		clients = append(clients, c)
	}
	h.Hub.mu.RUnlock()

	for _, c := range clients {
		msg := ping
		if c.IsPremium {
			msg = full
		}
		select {
		case c.Send <- msg:
		default:
		}
	}
}
