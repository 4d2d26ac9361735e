package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"knkt-backend/application/ports"
	"knkt-backend/domain/chat"
	"knkt-backend/domain/connection"
	"knkt-backend/domain/events"
	"knkt-backend/domain/profile"
)

// In-memory stand-ins for the ports, honoring the same contracts the
// DynamoDB implementations do: (nil, nil) for absence, conditional
// writes for contended mutations.

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*profile.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*profile.Profile)}
}

func (r *fakeProfileRepo) Save(_ context.Context, p *profile.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.profiles[p.UID] = &cp
	return nil
}

func (r *fakeProfileRepo) GetByUID(_ context.Context, uid string) (*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) ListAll(_ context.Context) ([]*profile.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*profile.Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

func (r *fakeProfileRepo) Delete(_ context.Context, uid string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[uid]; !ok {
		return false, nil
	}
	delete(r.profiles, uid)
	return true, nil
}

func (r *fakeProfileRepo) SetDeviceToken(_ context.Context, uid, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[uid]
	if !ok {
		return fmt.Errorf("profile not stored: %s", uid)
	}
	p.DeviceToken = token
	return nil
}

type fakeConnRepo struct {
	mu    sync.Mutex
	conns map[string]*connection.Connection
}

func newFakeConnRepo() *fakeConnRepo {
	return &fakeConnRepo{conns: make(map[string]*connection.Connection)}
}

func cloneConn(c *connection.Connection) *connection.Connection {
	cp := *c
	return &cp
}

func (r *fakeConnRepo) InsertIfAbsent(_ context.Context, conn *connection.Connection) (bool, *connection.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.conns[conn.ConnectionID]; ok {
		return false, cloneConn(existing), nil
	}
	r.conns[conn.ConnectionID] = cloneConn(conn)
	return true, cloneConn(conn), nil
}

func (r *fakeConnRepo) GetByID(_ context.Context, connectionID string) (*connection.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connectionID]
	if !ok {
		return nil, nil
	}
	return cloneConn(c), nil
}

func (r *fakeConnRepo) ListForUser(_ context.Context, uid string) ([]*connection.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*connection.Connection
	for _, c := range r.conns {
		if c.IsParticipant(uid) {
			out = append(out, cloneConn(c))
		}
	}
	return out, nil
}

func (r *fakeConnRepo) ListAcceptedForUser(_ context.Context, uid string) ([]*connection.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*connection.Connection
	for _, c := range r.conns {
		if c.IsParticipant(uid) && c.State() == connection.StateComplete {
			out = append(out, cloneConn(c))
		}
	}
	return out, nil
}

func (r *fakeConnRepo) SetAccepted(_ context.Context, connectionID, field string, now time.Time) (*connection.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connectionID]
	if !ok {
		return nil, nil
	}
	switch field {
	case "uid1_accepted":
		c.UID1Accepted = true
	case "uid2_accepted":
		c.UID2Accepted = true
	default:
		return nil, fmt.Errorf("unknown acceptance field: %s", field)
	}
	c.UpdatedAt = &now
	return cloneConn(c), nil
}

func (r *fakeConnRepo) AttachSummaries(_ context.Context, connectionID string, uid1Summary, uid2Summary, notification *string, now time.Time) (*connection.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connectionID]
	if !ok {
		return nil, nil
	}
	c.UID1Summary = uid1Summary
	c.UID2Summary = uid2Summary
	c.NotificationMessage = notification
	c.UpdatedAt = &now
	return cloneConn(c), nil
}

func (r *fakeConnRepo) SetNearbyNotifiedAt(_ context.Context, connectionID string, previous *time.Time, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[connectionID]
	if !ok {
		return false, nil
	}
	switch {
	case previous == nil && c.LastNearbyNotifiedAt != nil:
		return false, nil
	case previous != nil && (c.LastNearbyNotifiedAt == nil || !c.LastNearbyNotifiedAt.Equal(*previous)):
		return false, nil
	}
	c.LastNearbyNotifiedAt = &now
	return true, nil
}

func (r *fakeConnRepo) DeleteForUser(_ context.Context, uid string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, c := range r.conns {
		if c.IsParticipant(uid) {
			delete(r.conns, id)
			removed++
		}
	}
	return removed, nil
}

type fakeRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*chat.Room
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: make(map[string]*chat.Room)}
}

func cloneRoom(room *chat.Room) *chat.Room {
	cp := *room
	cp.Participants = append([]string(nil), room.Participants...)
	return &cp
}

func (r *fakeRoomRepo) InsertIfAbsent(_ context.Context, room *chat.Room) (bool, *chat.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rooms[room.RoomID]; ok {
		return false, cloneRoom(existing), nil
	}
	r.rooms[room.RoomID] = cloneRoom(room)
	return true, cloneRoom(room), nil
}

func (r *fakeRoomRepo) GetByID(_ context.Context, roomID string) (*chat.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, nil
	}
	return cloneRoom(room), nil
}

func (r *fakeRoomRepo) ListForUser(_ context.Context, uid string) ([]*chat.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*chat.Room
	for _, room := range r.rooms {
		if room.HasParticipant(uid) {
			out = append(out, cloneRoom(room))
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) TouchUpdatedAt(_ context.Context, roomID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return fmt.Errorf("room not stored: %s", roomID)
	}
	room.UpdatedAt = &now
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*chat.Message
}

func (r *fakeMessageRepo) Append(_ context.Context, msg *chat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *msg
	r.messages = append(r.messages, &cp)
	return nil
}

func (r *fakeMessageRepo) List(_ context.Context, roomID string, limit int, before *time.Time) ([]*chat.Message, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*chat.Message
	for _, m := range r.messages {
		if m.RoomID == roomID {
			cp := *m
			all = append(all, &cp)
		}
	}
	total := len(all)

	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })
	var page []*chat.Message
	for _, m := range all {
		if before != nil && !m.Timestamp.Before(*before) {
			continue
		}
		page = append(page, m)
		if len(page) == limit {
			break
		}
	}
	return page, total, nil
}

type capturedNotification struct {
	uid   string
	title string
	body  string
	data  map[string]string
}

type fakeNotifier struct {
	mu        sync.Mutex
	delivered bool
	sent      []capturedNotification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{delivered: true}
}

func (n *fakeNotifier) NotifyUser(_ context.Context, uid, title, body string, data map[string]string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, capturedNotification{uid: uid, title: title, body: body, data: data})
	return n.delivered
}

func (n *fakeNotifier) uids() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.uid)
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.GetEventType())
	}
	return out
}

type stubEmbedder struct {
	vec   profile.Vector
	err   error
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) (profile.Vector, error) {
	e.calls++
	if e.err != nil {
		return profile.Vector{}, e.err
	}
	return e.vec, nil
}

type stubSummarizer struct {
	mu    sync.Mutex
	out   ports.ConnectionSummaries
	calls int
}

func (s *stubSummarizer) Summarize(_ context.Context, _, _ *profile.Profile, _ float64) ports.ConnectionSummaries {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.out
}

func (s *stubSummarizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
