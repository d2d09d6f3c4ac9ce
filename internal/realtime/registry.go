package realtime

import "sync"

// Conn is one live client connection as the router sees it.
type Conn interface {
	Send(Event) error
}

type binding struct {
	userRoom string
	seller   bool
}

// Registry tracks which connection sits in which room. Membership lives for
// the duration of a connection and nowhere else; only the owning
// connection's bind/unbind calls mutate it.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{}
	conns map[Conn]*binding
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[Conn]struct{}),
		conns: make(map[Conn]*binding),
	}
}

// Register adds a fresh connection to the broadcast room. Bind calls on an
// unregistered connection register it implicitly.
func (g *Registry) Register(c Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ensure(c)
}

func (g *Registry) ensure(c Conn) *binding {
	b, ok := g.conns[c]
	if !ok {
		b = &binding{}
		g.conns[c] = b
		g.join(RoomBroadcast, c)
	}
	return b
}

// BindUser puts the connection into its private user room. A connection
// holds at most one user room; rebinding moves it.
func (g *Registry) BindUser(c Conn, userID string) {
	room := UserRoom(userID)
	g.mu.Lock()
	defer g.mu.Unlock()
	b := g.ensure(c)
	if b.userRoom == room {
		return
	}
	if b.userRoom != "" {
		g.leave(b.userRoom, c)
	}
	b.userRoom = room
	g.join(room, c)
}

// BindSellerRole adds the connection to the shared seller broadcast group.
func (g *Registry) BindSellerRole(c Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := g.ensure(c)
	if b.seller {
		return
	}
	b.seller = true
	g.join(RoomSellers, c)
}

// Unbind removes the connection from every room. It is idempotent and must
// run on every disconnect path.
func (g *Registry) Unbind(c Conn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.conns[c]
	if !ok {
		return
	}
	g.leave(RoomBroadcast, c)
	if b.userRoom != "" {
		g.leave(b.userRoom, c)
	}
	if b.seller {
		g.leave(RoomSellers, c)
	}
	delete(g.conns, c)
}

// MembersOf returns a snapshot of the room's current connections.
func (g *Registry) MembersOf(room string) []Conn {
	g.mu.RLock()
	defer g.mu.RUnlock()
	set := g.rooms[room]
	out := make([]Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

func (g *Registry) join(room string, c Conn) {
	set := g.rooms[room]
	if set == nil {
		set = make(map[Conn]struct{})
		g.rooms[room] = set
	}
	set[c] = struct{}{}
}

func (g *Registry) leave(room string, c Conn) {
	set := g.rooms[room]
	if set == nil {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(g.rooms, room)
	}
}
