package websocket

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// PresenceStore — персистентная часть статуса (is_online, last_seen)
type PresenceStore interface {
	SetOnline(id string, online bool) error
}

// Tracker отслеживает, кто сейчас онлайн. Живет столько же, сколько процесс,
// внедряется в Hub при сборке сервера.
type Tracker interface {
	// MarkOnline идемпотентно добавляет пользователя, возвращает true,
	// если он только что появился онлайн
	MarkOnline(userID uuid.UUID) bool

	// MarkOffline идемпотентно убирает пользователя, возвращает true,
	// если он только что ушел в оффлайн
	MarkOffline(userID uuid.UUID) bool

	// Snapshot — текущее множество онлайн-пользователей
	Snapshot() []uuid.UUID
}

type MemoryTracker struct {
	mu     sync.Mutex
	online map[uuid.UUID]struct{}
	store  PresenceStore
}

func NewMemoryTracker(store PresenceStore) *MemoryTracker {
	return &MemoryTracker{
		online: make(map[uuid.UUID]struct{}),
		store:  store,
	}
}

func (t *MemoryTracker) MarkOnline(userID uuid.UUID) bool {
	t.mu.Lock()
	_, existed := t.online[userID]
	t.online[userID] = struct{}{}
	t.mu.Unlock()

	// Ошибка записи статуса не должна ронять соединение
	if err := t.store.SetOnline(userID.String(), true); err != nil {
		log.Printf("Failed to persist online status for %s: %v", userID, err)
	}

	return !existed
}

func (t *MemoryTracker) MarkOffline(userID uuid.UUID) bool {
	t.mu.Lock()
	_, existed := t.online[userID]
	delete(t.online, userID)
	t.mu.Unlock()

	if err := t.store.SetOnline(userID.String(), false); err != nil {
		log.Printf("Failed to persist offline status for %s: %v", userID, err)
	}

	return existed
}

func (t *MemoryTracker) Snapshot() []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	users := make([]uuid.UUID, 0, len(t.online))
	for id := range t.online {
		users = append(users, id)
	}
	return users
}
