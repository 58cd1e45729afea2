package loyalty

import "sync"

// userLocks сериализует мутации по одному пользователю.
// Операции разных пользователей не конкурируют между собой:
// глобальный мьютекс защищает только карту, не сами операции.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{
		locks: make(map[int64]*userLock),
	}
}

// Lock захватывает мьютекс пользователя и возвращает функцию освобождения
func (ul *userLocks) Lock(tgID int64) func() {
	ul.mu.Lock()
	lock, ok := ul.locks[tgID]
	if !ok {
		lock = &userLock{}
		ul.locks[tgID] = lock
	}
	lock.refs++
	ul.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		ul.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(ul.locks, tgID)
		}
		ul.mu.Unlock()
	}
}
