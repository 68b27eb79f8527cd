package store

import (
	"errors"
	"io/fs"
	"log/slog"
	"sort"
	"sync"

	"github.com/horobot/horobot/internal/model"
)

// ReminderStore は日次リマインダーを購読しているチャットの集合を管理する。
type ReminderStore struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	chats map[int64]struct{}
}

// NewReminderStore はファイルから購読者を読み込んでReminderStoreを生成する。
func NewReminderStore(path string, logger *slog.Logger) *ReminderStore {
	s := &ReminderStore{
		path:   path,
		logger: logger,
		chats:  make(map[int64]struct{}),
	}

	var loaded model.Reminders
	if err := readJSON(path, &loaded); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Error("リマインダー購読者の読み込みに失敗しました",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return s
	}
	for _, id := range loaded.Chats {
		s.chats[id] = struct{}{}
	}
	return s
}

// Add はチャットを購読者に追加する。既に購読済みの場合はfalseを返す。
// 保存に失敗した場合は追加を取り消してエラーを返す。
func (s *ReminderStore) Add(chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; ok {
		return false, nil
	}
	s.chats[chatID] = struct{}{}
	if err := s.persistLocked(); err != nil {
		delete(s.chats, chatID)
		return false, err
	}
	return true, nil
}

// Remove はチャットを購読者から外す。購読していなかった場合はfalseを返す。
// 保存に失敗した場合は購読状態を元に戻してエラーを返す。
func (s *ReminderStore) Remove(chatID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[chatID]; !ok {
		return false, nil
	}
	delete(s.chats, chatID)
	if err := s.persistLocked(); err != nil {
		s.chats[chatID] = struct{}{}
		return false, err
	}
	return true, nil
}

// List は購読中のチャットIDを昇順で返す。
func (s *ReminderStore) List() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *ReminderStore) sortedLocked() []int64 {
	ids := make([]int64, 0, len(s.chats))
	for id := range s.chats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *ReminderStore) persistLocked() error {
	if err := writeJSON(s.path, model.Reminders{Chats: s.sortedLocked()}); err != nil {
		s.logger.Error("リマインダー購読者の保存に失敗しました",
			slog.String("path", s.path),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
