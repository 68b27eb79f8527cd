// Package intake は名前・年齢・シナリオ・質問・振り返りの順に回答を集め、
// 最後にトランスクリプトをオペレーターへ届ける会話ステートマシンを提供する。
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/horobot/horobot/internal/metrics"
)

// メニューのボタン文言。
const (
	ButtonRestart = "🔄 Пройти заново"
	ButtonAsk     = "✉️ Задать вопрос"
)

const (
	msgGreeting      = "Здравствуйте! Я помогу вам подготовиться к консультации. Как вас зовут?"
	msgAskName       = "Пожалуйста, напишите ваше имя текстом."
	msgAskAge        = "Сколько вам лет?"
	msgBadAge        = "Пожалуйста, укажите возраст числом от 1 до 119."
	msgChoose        = "Выберите тему, которая вам ближе, или пройдите классическую анкету."
	msgBadChoice     = "Пожалуйста, выберите вариант с помощью кнопок ниже."
	msgEmptyAnswer   = "Ответ не должен быть пустым. Попробуйте ещё раз."
	msgCancelled     = "Диалог прерван. Чтобы начать заново, отправьте /start."
	msgNoSession     = "Чтобы начать, отправьте /start."
	msgAskExtra      = "Напишите ваш вопрос, и мы передадим его специалисту."
	msgExtraAccepted = "Спасибо! Ваш вопрос передан специалисту."
)

// Operator はオペレーターへの通知先。
type Operator interface {
	SendText(ctx context.Context, text string) error
	ForwardMedia(ctx context.Context, media MediaAnswer, caption string) error
}

// Reply はユーザーに返すメッセージ。Keyboardが空でRemoveKeyboardが偽なら表示中のキーボードを変えない。
type Reply struct {
	Text           string
	Keyboard       [][]string
	RemoveKeyboard bool
}

// Machine は会話ステートマシン。
// 同じチャットの更新は呼び出し側で直列化されている前提。
type Machine struct {
	scenarios []Scenario
	classic   Scenario
	sessions  *SessionStore
	operator  Operator
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	now       func() time.Time
}

// NewMachine はMachineを生成する。operatorがnilの場合は通知を行わずログだけ残す。
func NewMachine(
	scenarios []Scenario,
	classic Scenario,
	operator Operator,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Machine {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Machine{
		scenarios: scenarios,
		classic:   classic,
		sessions:  NewSessionStore(),
		operator:  operator,
		metrics:   collector,
		logger:    logger,
		now:       time.Now,
	}
}

// StateOf はチャットの現在の状態を返す。セッションが無ければStateStart。
func (m *Machine) StateOf(chatID int64) State {
	sess, ok := m.sessions.Get(chatID)
	if !ok {
		return StateStart
	}
	return sess.State
}

// Start は新しいセッションを開始する。進行中のセッションは破棄される。
func (m *Machine) Start(ctx context.Context, contact Contact) []Reply {
	sess := newSession(contact, m.now())
	m.sessions.Put(sess)

	m.logger.Info("アンケートを開始しました",
		slog.Int64("chat_id", contact.ChatID),
		slog.String("session_id", sess.ID),
	)
	return []Reply{{Text: msgGreeting, RemoveKeyboard: true}}
}

// Cancel はどの状態からでもセッションを破棄してSTARTに戻す。
func (m *Machine) Cancel(ctx context.Context, chatID int64) []Reply {
	if sess, ok := m.sessions.Get(chatID); ok {
		m.logger.Info("アンケートを中断しました",
			slog.Int64("chat_id", chatID),
			slog.String("session_id", sess.ID),
			slog.String("state", sess.State.String()),
		)
	}
	m.sessions.Delete(chatID)
	return []Reply{{Text: msgCancelled, Keyboard: menuKeyboard()}}
}

// Handle はユーザーの回答で状態を1つ進める。
func (m *Machine) Handle(ctx context.Context, contact Contact, answer Answer) []Reply {
	sess, ok := m.sessions.Get(contact.ChatID)
	if !ok {
		return m.handleIdle(ctx, contact, answer)
	}
	sess.Contact = contact

	switch sess.State {
	case StateName:
		return m.handleName(sess, answer)
	case StateAge:
		return m.handleAge(sess, answer)
	case StateChooseScenario:
		return m.handleChoice(sess, answer)
	case StateQuestion, StateReflection:
		return m.handleStep(ctx, sess, answer)
	case StateExtraQuestion:
		return m.handleExtra(ctx, sess, answer)
	default:
		m.sessions.Delete(contact.ChatID)
		return []Reply{{Text: msgNoSession}}
	}
}

// handleIdle はセッションが無いときのメニュー操作を扱う。
func (m *Machine) handleIdle(ctx context.Context, contact Contact, answer Answer) []Reply {
	text, ok := answer.(TextAnswer)
	if !ok {
		return []Reply{{Text: msgNoSession}}
	}
	switch strings.TrimSpace(text.Text) {
	case ButtonRestart:
		return m.Start(ctx, contact)
	case ButtonAsk:
		sess := newSession(contact, m.now())
		sess.State = StateExtraQuestion
		m.sessions.Put(sess)
		return []Reply{{Text: msgAskExtra, RemoveKeyboard: true}}
	default:
		return []Reply{{Text: msgNoSession, Keyboard: menuKeyboard()}}
	}
}

func (m *Machine) handleName(sess *Session, answer Answer) []Reply {
	text, ok := answer.(TextAnswer)
	name := ""
	if ok {
		name = strings.TrimSpace(text.Text)
	}
	if name == "" {
		return []Reply{{Text: msgAskName}}
	}

	sess.Name = name
	sess.State = StateAge
	return []Reply{{Text: msgAskAge}}
}

func (m *Machine) handleAge(sess *Session, answer Answer) []Reply {
	text, ok := answer.(TextAnswer)
	if !ok {
		return []Reply{{Text: msgBadAge}}
	}
	age, valid := parseAge(text.Text)
	if !valid {
		return []Reply{{Text: msgBadAge}}
	}

	sess.Age = age
	sess.State = StateChooseScenario
	return []Reply{{Text: msgChoose, Keyboard: m.scenarioKeyboard()}}
}

// parseAge は数字だけの文字列を(0, 120)の範囲の年齢として解釈する。
func parseAge(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	age, err := strconv.Atoi(s)
	if err != nil || age <= 0 || age >= 120 {
		return 0, false
	}
	return age, true
}

func (m *Machine) handleChoice(sess *Session, answer Answer) []Reply {
	text, ok := answer.(TextAnswer)
	if !ok {
		return []Reply{{Text: msgBadChoice, Keyboard: m.scenarioKeyboard()}}
	}
	scenario, found := m.lookupScenario(strings.TrimSpace(text.Text))
	if !found {
		return []Reply{{Text: msgBadChoice, Keyboard: m.scenarioKeyboard()}}
	}

	sess.Scenario = scenario
	sess.Step = 0
	sess.Answers = make([]string, 0, scenario.Steps())
	sess.State = StateQuestion

	m.logger.Info("シナリオが選択されました",
		slog.Int64("chat_id", sess.Contact.ChatID),
		slog.String("scenario", scenario.Key),
	)

	prompt, _ := scenario.Prompt(0)
	return []Reply{{Text: prompt, RemoveKeyboard: true}}
}

func (m *Machine) lookupScenario(label string) (Scenario, bool) {
	for _, s := range m.scenarios {
		if label == s.Button || label == s.Title {
			return s, true
		}
	}
	if label == m.classic.Button || label == m.classic.Title {
		return m.classic, true
	}
	return Scenario{}, false
}

// handleStep は質問と振り返りの回答を記録する。
// メディアは即座にオペレーターへ転送し、トランスクリプトにはラベルを残す。
func (m *Machine) handleStep(ctx context.Context, sess *Session, answer Answer) []Reply {
	prompt, _ := sess.Scenario.Prompt(sess.Step)

	var recorded string
	switch a := answer.(type) {
	case TextAnswer:
		recorded = strings.TrimSpace(a.Text)
		if recorded == "" {
			return []Reply{{Text: msgEmptyAnswer}}
		}
	case MediaAnswer:
		m.forwardMedia(ctx, sess, a, prompt)
		recorded = a.Kind.Placeholder()
	default:
		return []Reply{{Text: msgEmptyAnswer}}
	}

	sess.Answers = append(sess.Answers, recorded)
	sess.Step++

	if sess.Step >= sess.Scenario.Steps() {
		return m.finish(ctx, sess)
	}

	next, reflection := sess.Scenario.Prompt(sess.Step)
	if reflection {
		sess.State = StateReflection
	}
	return []Reply{{Text: next}}
}

func (m *Machine) handleExtra(ctx context.Context, sess *Session, answer Answer) []Reply {
	switch a := answer.(type) {
	case TextAnswer:
		text := strings.TrimSpace(a.Text)
		if text == "" {
			return []Reply{{Text: msgEmptyAnswer}}
		}
		m.notify(ctx, fmt.Sprintf("❓ Вопрос от %s:\n%s", sess.Contact.display(), text))
	case MediaAnswer:
		m.forwardMedia(ctx, sess, a, "Дополнительный вопрос")
	default:
		return []Reply{{Text: msgEmptyAnswer}}
	}
	m.notify(ctx, replyHint(sess.Contact.ChatID))

	m.sessions.Delete(sess.Contact.ChatID)
	return []Reply{{Text: msgExtraAccepted, Keyboard: menuKeyboard()}}
}

// finish はトランスクリプトと返信用ヒントをオペレーターへ送り、セッションを破棄する。
func (m *Machine) finish(ctx context.Context, sess *Session) []Reply {
	m.notify(ctx, Transcript(sess))
	m.notify(ctx, replyHint(sess.Contact.ChatID))

	m.sessions.Delete(sess.Contact.ChatID)
	m.metrics.RecordIntakeCompleted(sess.Scenario.Key)
	m.logger.Info("アンケートが完了しました",
		slog.Int64("chat_id", sess.Contact.ChatID),
		slog.String("session_id", sess.ID),
		slog.String("scenario", sess.Scenario.Key),
		slog.Duration("elapsed", m.now().Sub(sess.StartedAt)),
	)
	return []Reply{{Text: sess.Scenario.Closing, Keyboard: menuKeyboard()}}
}

// notify はオペレーターにテキストを送る。失敗はログに残すだけでユーザーの進行は止めない。
func (m *Machine) notify(ctx context.Context, text string) {
	if m.operator == nil {
		m.logger.Warn("オペレーターが未設定のため通知をスキップしました")
		return
	}
	if err := m.operator.SendText(ctx, text); err != nil {
		m.metrics.RecordOperatorFailure()
		m.logger.Error("オペレーターへの通知に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

func (m *Machine) forwardMedia(ctx context.Context, sess *Session, media MediaAnswer, question string) {
	if m.operator == nil {
		m.logger.Warn("オペレーターが未設定のためメディア転送をスキップしました")
		return
	}
	caption := fmt.Sprintf("Вопрос: %s\nОт: %s", question, sess.Contact.display())
	if err := m.operator.ForwardMedia(ctx, media, caption); err != nil {
		m.metrics.RecordOperatorFailure()
		m.logger.Error("オペレーターへのメディア転送に失敗しました",
			slog.String("kind", string(media.Kind)),
			slog.String("error", err.Error()),
		)
	}
}

func (m *Machine) scenarioKeyboard() [][]string {
	rows := make([][]string, 0, len(m.scenarios)+1)
	for _, s := range m.scenarios {
		rows = append(rows, []string{s.Button})
	}
	return append(rows, []string{m.classic.Button})
}

func menuKeyboard() [][]string {
	return [][]string{{ButtonRestart, ButtonAsk}}
}

// replyHint はオペレーターがそのまま/replyコマンドとして使える文字列を返す。
func replyHint(chatID int64) string {
	return fmt.Sprintf("/reply %d ", chatID)
}

func (c Contact) display() string {
	name := c.FullName
	if name == "" {
		name = "без имени"
	}
	if c.Username != "" {
		return fmt.Sprintf("%s (@%s, id %d)", name, c.Username, c.ChatID)
	}
	return fmt.Sprintf("%s (id %d)", name, c.ChatID)
}

// Transcript はオペレーター向けのアンケート全文を組み立てる。
func Transcript(sess *Session) string {
	var b strings.Builder
	b.WriteString("📝 Новая анкета\n")
	fmt.Fprintf(&b, "Имя: %s\n", sess.Name)
	fmt.Fprintf(&b, "Возраст: %d\n", sess.Age)
	fmt.Fprintf(&b, "Сценарий: %s\n", sess.Scenario.Title)
	fmt.Fprintf(&b, "От: %s\n", sess.Contact.display())
	fmt.Fprintf(&b, "Сессия: %s\n", sess.ID)

	questions := len(sess.Scenario.Questions)
	b.WriteString("\nВопросы:\n")
	for i, q := range sess.Scenario.Questions {
		fmt.Fprintf(&b, "%d. %s\nОтвет: %s\n", i+1, q, answerAt(sess, i))
	}
	b.WriteString("\nРефлексия:\n")
	for i, r := range sess.Scenario.Reflections {
		fmt.Fprintf(&b, "%d. %s\nОтвет: %s\n", i+1, r, answerAt(sess, questions+i))
	}
	return strings.TrimRight(b.String(), "\n")
}

func answerAt(sess *Session, i int) string {
	if i < len(sess.Answers) {
		return sess.Answers[i]
	}
	return "-"
}
