package ws

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans board events out to subscribers keyed by feed (the board
// owner's account id).
type Hub struct {
	feeds     map[string]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan message
}

// message couples payload with its feed.
type message struct {
	feed    string
	payload []byte
}

// subscription defines register/unregister requests.
type subscription struct {
	feed   string
	client Subscriber
}

// NewHub creates an initialized Hub. buffer caps how many pending board
// events may queue before publishers block.
func NewHub(buffer int) *Hub {
	if buffer < 0 {
		buffer = 0
	}
	h := &Hub{
		feeds:     make(map[string]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan message, buffer),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.feeds[sub.feed]; !ok {
				h.feeds[sub.feed] = make(map[Subscriber]struct{})
			}
			h.feeds[sub.feed][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.feeds[sub.feed]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.feeds, sub.feed)
				}
			}
		case msg := <-h.broadcast:
			if clients, ok := h.feeds[msg.feed]; ok {
				for c := range clients {
					if err := c.Send(msg.payload); err != nil {
						c.Close()
						delete(clients, c)
					}
				}
				if len(clients) == 0 {
					delete(h.feeds, msg.feed)
				}
			}
		}
	}
}

// Register adds a client to a board feed.
func (h *Hub) Register(feed string, client Subscriber) {
	h.register <- subscription{feed: feed, client: client}
}

// Unregister removes a client.
func (h *Hub) Unregister(feed string, client Subscriber) {
	h.unreg <- subscription{feed: feed, client: client}
}

// Broadcast sends payload to all feed subscribers.
func (h *Hub) Broadcast(feed string, payload []byte) {
	h.broadcast <- message{feed: feed, payload: payload}
}
