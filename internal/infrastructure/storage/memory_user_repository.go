package storage

import (
	"context"
	"sync"

	"agroscan/internal/domain/entity"
	"agroscan/internal/domain/port"
)

// MemoryUserRepository in-memory хранилище пользователей бота.
// Живёт только в рамках процесса, между перезапусками ничего не сохраняется.
type MemoryUserRepository struct {
	mu    sync.Mutex
	users map[int64]entity.User
}

// NewMemoryUserRepository создаёт новое in-memory хранилище
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users: make(map[int64]entity.User),
	}
}

// Get возвращает пользователя по ID, создаёт нового если не найден
func (r *MemoryUserRepository) Get(ctx context.Context, userID, chatID int64) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.loadLocked(userID, chatID)
	return &user, nil
}

// Save сохраняет пользователя
func (r *MemoryUserRepository) Save(ctx context.Context, user *entity.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.users[user.ID] = *user
	r.mu.Unlock()

	return nil
}

// Update применяет fn к пользователю под блокировкой
func (r *MemoryUserRepository) Update(ctx context.Context, userID, chatID int64, fn func(*entity.User)) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user := r.loadLocked(userID, chatID)
	fn(&user)
	r.users[userID] = user

	return &user, nil
}

// loadLocked возвращает копию пользователя; вызывать под r.mu
func (r *MemoryUserRepository) loadLocked(userID, chatID int64) entity.User {
	if user, ok := r.users[userID]; ok {
		return user
	}

	user := *entity.NewUser(userID, chatID)
	r.users[userID] = user
	return user
}

// Проверка реализации интерфейса
var _ port.UserRepository = (*MemoryUserRepository)(nil)
