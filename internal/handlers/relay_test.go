package handlers

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mlashkov/wavechat/internal/database"
	"github.com/mlashkov/wavechat/internal/handlers/dto"
	"github.com/mlashkov/wavechat/internal/models"
	ws "github.com/mlashkov/wavechat/internal/websocket"
)

// fakeRelayStore — хранилище в памяти, подставляется вместо Postgres
type fakeRelayStore struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*models.Message
	saveErr  error
}

var _ database.RelayStore = (*fakeRelayStore)(nil)

func newFakeRelayStore() *fakeRelayStore {
	return &fakeRelayStore{messages: make(map[uuid.UUID]*models.Message)}
}

func (s *fakeRelayStore) SaveMessage(m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Now()
	stored := *m
	s.messages[m.ID] = &stored
	return nil
}

func (s *fakeRelayStore) GetMessage(id string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, gorm.ErrRecordNotFound
	}
	m, ok := s.messages[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *m
	return &copied, nil
}

func (s *fakeRelayStore) GetMessageResolved(id string) (*models.Message, error) {
	m, err := s.GetMessage(id)
	if err != nil {
		return nil, err
	}

	m.Sender = models.User{ID: m.SenderID, Name: "user-" + m.SenderID.String()[:8]}
	if m.ReceiverID != nil {
		m.Receiver = &models.User{ID: *m.ReceiverID, Name: "user-" + m.ReceiverID.String()[:8]}
	}
	if m.GroupID != nil {
		m.Group = &models.Group{ID: *m.GroupID, Name: "group"}
	}
	for i := range m.Reactions {
		m.Reactions[i].User = models.User{ID: m.Reactions[i].UserID, Name: "user"}
	}
	return m, nil
}

func (s *fakeRelayStore) MarkMessageRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	parsed, _ := uuid.Parse(id)
	m, ok := s.messages[parsed]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.Read = true
	return nil
}

func (s *fakeRelayStore) ToggleReaction(messageID, userID uuid.UUID, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[messageID]
	if !ok {
		return gorm.ErrRecordNotFound
	}

	for i, r := range m.Reactions {
		if r.UserID == userID && r.Emoji == emoji {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
			return nil
		}
	}

	m.Reactions = append(m.Reactions, models.Reaction{
		ID:        uuid.New(),
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
	})
	return nil
}

func (s *fakeRelayStore) seedDirect(sender, receiver uuid.UUID, content string) *models.Message {
	m := &models.Message{SenderID: sender, ReceiverID: &receiver, Content: content, Type: "text"}
	s.SaveMessage(m)
	return m
}

type noopPresenceStore struct{}

func (noopPresenceStore) SetOnline(string, bool) error { return nil }

func newTestRelay(t *testing.T) (*Relay, *fakeRelayStore, *ws.Hub) {
	t.Helper()
	hub := ws.NewHub(ws.NewMemoryTracker(noopPresenceStore{}))
	go hub.Run()
	t.Cleanup(hub.Stop)

	store := newFakeRelayStore()
	return NewRelay(store, hub), store, hub
}

func connect(t *testing.T, hub *ws.Hub, userID uuid.UUID, rooms ...string) *ws.Client {
	t.Helper()
	client := ws.NewClient(hub, nil, userID, "user", rooms)
	hub.Register(client)

	// Первое событие любого соединения — снимок онлайна
	ev := recvEvent(t, client)
	require.Equal(t, ws.TypeInitialOnlineUsers, ev.Type)
	return client
}

func recvEvent(t *testing.T, c *ws.Client) ws.Event {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var ev ws.Event
		require.NoError(t, json.Unmarshal(raw, &ev))
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return ws.Event{}
}

// recvEventOfType пропускает дельты присутствия, которые зависят от порядка подключений
func recvEventOfType(t *testing.T, c *ws.Client, want ws.EventType) ws.Event {
	t.Helper()
	for i := 0; i < 10; i++ {
		ev := recvEvent(t, c)
		if ev.Type == want {
			return ev
		}
		if ev.Type == ws.TypeUserOnline || ev.Type == ws.TypeUserOffline {
			continue
		}
		t.Fatalf("expected %s, got %s", want, ev.Type)
	}
	t.Fatalf("no %s event received", want)
	return ws.Event{}
}

func assertNoDomainEvent(t *testing.T, c *ws.Client) {
	t.Helper()
	for {
		select {
		case raw, ok := <-c.Send:
			if !ok {
				return
			}
			var ev ws.Event
			require.NoError(t, json.Unmarshal(raw, &ev))
			if ev.Type == ws.TypeUserOnline || ev.Type == ws.TypeUserOffline || ev.Type == ws.TypePing {
				continue
			}
			t.Fatalf("unexpected event: %s", ev.Type)
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}

func mkEvent(t *testing.T, evType ws.EventType, payload interface{}) *ws.Event {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &ws.Event{Type: evType, Data: raw, Timestamp: time.Now()}
}

func decodeMessage(t *testing.T, ev ws.Event) dto.MessageResponse {
	t.Helper()
	var m dto.MessageResponse
	require.NoError(t, json.Unmarshal(ev.Data, &m))
	return m
}

func TestSendDirectMessage(t *testing.T) {
	relay, store, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())
	b := connect(t, hub, uuid.New())

	err := relay.HandleEvent(a, mkEvent(t, ws.TypeSendMessage, dto.SendMessagePayload{
		ReceiverID: &b.UserID,
		Content:    "hi",
	}))
	require.NoError(t, err)

	received := decodeMessage(t, recvEventOfType(t, b, ws.TypeReceiveMessage))
	assert.Equal(t, "hi", received.Content)
	assert.Equal(t, a.UserID, received.Sender.ID)
	assert.Equal(t, "text", received.Type)
	assert.True(t, received.Delivered, "socket path marks delivery immediately")

	sent := decodeMessage(t, recvEventOfType(t, a, ws.TypeMessageSent))
	assert.Equal(t, received.ID, sent.ID)

	assert.Len(t, store.messages, 1)
}

func TestSendMessageInvalidTarget(t *testing.T) {
	relay, store, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())
	b := connect(t, hub, uuid.New())

	// Ни одного адресата
	err := relay.HandleEvent(a, mkEvent(t, ws.TypeSendMessage, dto.SendMessagePayload{Content: "hi"}))
	assert.ErrorIs(t, err, ws.ErrInvalidTarget)

	// Оба адресата сразу
	groupID := uuid.New()
	err = relay.HandleEvent(a, mkEvent(t, ws.TypeSendMessage, dto.SendMessagePayload{
		ReceiverID: &b.UserID,
		GroupID:    &groupID,
		Content:    "hi",
	}))
	assert.ErrorIs(t, err, ws.ErrInvalidTarget)

	assert.Empty(t, store.messages, "invalid send must not be persisted")
	assertNoDomainEvent(t, b)
}

func TestSendGroupMessageFanout(t *testing.T) {
	relay, _, hub := newTestRelay(t)

	groupID := uuid.New()
	room := ws.GroupRoom(groupID)
	a := connect(t, hub, uuid.New(), room)
	b := connect(t, hub, uuid.New(), room)
	c := connect(t, hub, uuid.New(), room)

	err := relay.HandleEvent(a, mkEvent(t, ws.TypeSendMessage, dto.SendMessagePayload{
		GroupID: &groupID,
		Content: "all hands",
	}))
	require.NoError(t, err)

	for _, member := range []*ws.Client{b, c} {
		received := decodeMessage(t, recvEventOfType(t, member, ws.TypeReceiveMessage))
		assert.Equal(t, "all hands", received.Content)
		require.NotNil(t, received.Group)
		assert.Equal(t, groupID, received.Group.ID)
	}

	// Отправитель видит одну message-sent и ни одной копии из комнаты группы
	recvEventOfType(t, a, ws.TypeMessageSent)
	assertNoDomainEvent(t, a)
	assertNoDomainEvent(t, b)
	assertNoDomainEvent(t, c)
}

func TestSendMessagePersistenceFailure(t *testing.T) {
	relay, store, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())
	b := connect(t, hub, uuid.New())

	store.saveErr = errors.New("storage outage")

	err := relay.HandleEvent(a, mkEvent(t, ws.TypeSendMessage, dto.SendMessagePayload{
		ReceiverID: &b.UserID,
		Content:    "hi",
	}))
	require.Error(t, err)

	// Никому ничего не доставлено, состояние комнат не тронуто
	assertNoDomainEvent(t, a)
	assertNoDomainEvent(t, b)
	assert.Empty(t, store.messages)
}

func TestReactionTogglePair(t *testing.T) {
	relay, store, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())
	b := connect(t, hub, uuid.New())
	message := store.seedDirect(a.UserID, b.UserID, "react to me")

	react := mkEvent(t, ws.TypeMessageReaction, dto.ReactionPayload{MessageID: message.ID, Emoji: "👍"})

	require.NoError(t, relay.HandleEvent(a, react))
	updated := decodeMessage(t, recvEventOfType(t, b, ws.TypeMessageReactionUpdated))
	require.Len(t, updated.Reactions, 1)
	assert.Equal(t, "👍", updated.Reactions[0].Emoji)
	require.Len(t, updated.Reactions[0].Users, 1)
	assert.Equal(t, a.UserID, updated.Reactions[0].Users[0].ID)

	// Повторная реакция тем же эмодзи снимает ее: состояние вернулось к исходному
	require.NoError(t, relay.HandleEvent(a, react))
	updated = decodeMessage(t, recvEventOfType(t, b, ws.TypeMessageReactionUpdated))
	assert.Empty(t, updated.Reactions, "no emoji entry may survive with an empty user set")

	assert.Empty(t, store.messages[message.ID].Reactions)

	// Обе стороны диалога получили оба обновления
	recvEventOfType(t, a, ws.TypeMessageReactionUpdated)
	recvEventOfType(t, a, ws.TypeMessageReactionUpdated)
}

func TestReactionKeepsOtherEmojis(t *testing.T) {
	relay, store, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())
	b := connect(t, hub, uuid.New())
	message := store.seedDirect(a.UserID, b.UserID, "react to me")

	require.NoError(t, relay.HandleEvent(a, mkEvent(t, ws.TypeMessageReaction,
		dto.ReactionPayload{MessageID: message.ID, Emoji: "👍"})))
	require.NoError(t, relay.HandleEvent(a, mkEvent(t, ws.TypeMessageReaction,
		dto.ReactionPayload{MessageID: message.ID, Emoji: "🔥"})))

	// Политика per-emoji: вторая реакция не вытесняет первую
	reactions := store.messages[message.ID].Reactions
	require.Len(t, reactions, 2)
	assert.Equal(t, "👍", reactions[0].Emoji)
	assert.Equal(t, "🔥", reactions[1].Emoji)
}

func TestReactionMissingMessageIsNoop(t *testing.T) {
	relay, _, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())
	b := connect(t, hub, uuid.New())

	err := relay.HandleEvent(a, mkEvent(t, ws.TypeMessageReaction,
		dto.ReactionPayload{MessageID: uuid.New(), Emoji: "👍"}))
	assert.NoError(t, err)
	assertNoDomainEvent(t, a)
	assertNoDomainEvent(t, b)
}

func TestMarkRead(t *testing.T) {
	relay, store, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())
	b := connect(t, hub, uuid.New())
	message := store.seedDirect(a.UserID, b.UserID, "read me")

	err := relay.HandleEvent(b, mkEvent(t, ws.TypeMarkRead, dto.MarkReadPayload{MessageID: message.ID}))
	require.NoError(t, err)

	assert.True(t, store.messages[message.ID].Read)

	// Эхо читателю
	var echo dto.ReadNotice
	ev := recvEventOfType(t, b, ws.TypeMessageRead)
	require.NoError(t, json.Unmarshal(ev.Data, &echo))
	assert.Equal(t, message.ID, echo.MessageID)
	assert.Nil(t, echo.Reader)

	// И уведомление отправителю с указанием, кто прочитал
	var notice dto.ReadNotice
	ev = recvEventOfType(t, a, ws.TypeMessageRead)
	require.NoError(t, json.Unmarshal(ev.Data, &notice))
	assert.Equal(t, message.ID, notice.MessageID)
	require.NotNil(t, notice.Reader)
	assert.Equal(t, b.UserID, *notice.Reader)
}

func TestMarkReadMissingMessageIsNoop(t *testing.T) {
	relay, _, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())

	err := relay.HandleEvent(a, mkEvent(t, ws.TypeMarkRead, dto.MarkReadPayload{MessageID: uuid.New()}))
	assert.NoError(t, err)
	assertNoDomainEvent(t, a)
}

func TestTypingDirect(t *testing.T) {
	relay, _, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())
	b := connect(t, hub, uuid.New())

	err := relay.HandleEvent(a, mkEvent(t, ws.TypeTyping, dto.TargetPayload{ReceiverID: &b.UserID}))
	require.NoError(t, err)

	var notice dto.TypingNotice
	ev := recvEventOfType(t, b, ws.TypeUserTyping)
	require.NoError(t, json.Unmarshal(ev.Data, &notice))
	assert.Equal(t, a.UserID, notice.User)
	assert.Nil(t, notice.Group)

	err = relay.HandleEvent(a, mkEvent(t, ws.TypeStopTyping, dto.TargetPayload{ReceiverID: &b.UserID}))
	require.NoError(t, err)
	recvEventOfType(t, b, ws.TypeUserStopTyping)
}

func TestTypingGroupCarriesGroupID(t *testing.T) {
	relay, _, hub := newTestRelay(t)

	groupID := uuid.New()
	room := ws.GroupRoom(groupID)
	a := connect(t, hub, uuid.New(), room)
	b := connect(t, hub, uuid.New(), room)

	err := relay.HandleEvent(a, mkEvent(t, ws.TypeTyping, dto.TargetPayload{GroupID: &groupID}))
	require.NoError(t, err)

	var notice dto.TypingNotice
	ev := recvEventOfType(t, b, ws.TypeUserTyping)
	require.NoError(t, json.Unmarshal(ev.Data, &notice))
	assert.Equal(t, a.UserID, notice.User)
	require.NotNil(t, notice.Group)
	assert.Equal(t, groupID, *notice.Group)

	// Сам печатающий эхо не получает
	assertNoDomainEvent(t, a)
}

func TestCallSignalForwarding(t *testing.T) {
	relay, _, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())
	b := connect(t, hub, uuid.New())

	offer := json.RawMessage(`{"sdp":"v=0"}`)
	err := relay.HandleEvent(a, mkEvent(t, ws.TypeCallUser, dto.CallPayload{To: b.UserID, Offer: offer}))
	require.NoError(t, err)

	var incoming dto.CallNotice
	ev := recvEventOfType(t, b, ws.TypeIncomingCall)
	require.NoError(t, json.Unmarshal(ev.Data, &incoming))
	assert.Equal(t, a.UserID, incoming.From)
	assert.JSONEq(t, string(offer), string(incoming.Offer))

	answer := json.RawMessage(`{"sdp":"v=1"}`)
	err = relay.HandleEvent(b, mkEvent(t, ws.TypeCallAnswer, dto.CallPayload{To: a.UserID, Answer: answer}))
	require.NoError(t, err)
	ev = recvEventOfType(t, a, ws.TypeCallAnswered)
	require.NoError(t, json.Unmarshal(ev.Data, &incoming))
	assert.Equal(t, b.UserID, incoming.From)

	candidate := json.RawMessage(`{"candidate":"host"}`)
	err = relay.HandleEvent(a, mkEvent(t, ws.TypeICECandidate, dto.CallPayload{To: b.UserID, Candidate: candidate}))
	require.NoError(t, err)
	ev = recvEventOfType(t, b, ws.TypeICECandidate)
	require.NoError(t, json.Unmarshal(ev.Data, &incoming))
	assert.JSONEq(t, string(candidate), string(incoming.Candidate))

	err = relay.HandleEvent(a, mkEvent(t, ws.TypeEndCall, dto.CallPayload{To: b.UserID}))
	require.NoError(t, err)
	recvEventOfType(t, b, ws.TypeCallEnded)
}

func TestJoinGroupSubscribesLiveConnection(t *testing.T) {
	relay, _, hub := newTestRelay(t)

	groupID := uuid.New()
	room := ws.GroupRoom(groupID)
	a := connect(t, hub, uuid.New())
	b := connect(t, hub, uuid.New(), room)

	err := relay.HandleEvent(a, mkEvent(t, ws.TypeJoinGroup, dto.JoinGroupPayload{GroupID: groupID}))
	require.NoError(t, err)

	err = relay.HandleEvent(b, mkEvent(t, ws.TypeSendMessage, dto.SendMessagePayload{
		GroupID: &groupID,
		Content: "welcome",
	}))
	require.NoError(t, err)

	received := decodeMessage(t, recvEventOfType(t, a, ws.TypeReceiveMessage))
	assert.Equal(t, "welcome", received.Content)
}

func TestUnknownEventIgnored(t *testing.T) {
	relay, _, hub := newTestRelay(t)

	a := connect(t, hub, uuid.New())
	err := relay.HandleEvent(a, &ws.Event{Type: "no-such-event"})
	assert.NoError(t, err)
}
