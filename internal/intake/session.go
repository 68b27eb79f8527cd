package intake

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State は会話の現在位置。
type State int

const (
	StateStart State = iota
	StateName
	StateAge
	StateChooseScenario
	StateQuestion
	StateReflection
	StateExtraQuestion
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateName:
		return "name"
	case StateAge:
		return "age"
	case StateChooseScenario:
		return "choose_scenario"
	case StateQuestion:
		return "question"
	case StateReflection:
		return "reflection"
	case StateExtraQuestion:
		return "extra_question"
	default:
		return "unknown"
	}
}

// Contact は送信者の情報。
type Contact struct {
	ChatID   int64
	Username string
	FullName string
}

// Session は1チャット分の会話状態。永続化しない。
// Stepは質問と振り返りを通した通し番号で、減ることはない。
type Session struct {
	ID        string
	Contact   Contact
	State     State
	Name      string
	Age       int
	Scenario  Scenario
	Step      int
	Answers   []string
	StartedAt time.Time
}

func newSession(contact Contact, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Contact:   contact,
		State:     StateName,
		StartedAt: now,
	}
}

// SessionStore はチャットIDをキーにしたインメモリのセッションストア。
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewSessionStore はSessionStoreを生成する。
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*Session),
	}
}

// Get はチャットのセッションを返す。
func (s *SessionStore) Get(chatID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[chatID]
	return sess, ok
}

// Put はセッションを登録する。既存のセッションは置き換える。
func (s *SessionStore) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.Contact.ChatID] = sess
}

// Delete はチャットのセッションを破棄する。
func (s *SessionStore) Delete(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, chatID)
}

// Len は進行中のセッション数を返す。
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}
