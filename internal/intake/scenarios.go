package intake

// Scenario は質問・振り返り・締めくくりのメッセージを持つ会話の分岐。
type Scenario struct {
	Key         string
	Title       string
	Button      string
	Questions   []string
	Reflections []string
	Closing     string
}

// Steps は質問と振り返りを合わせたステップ数。
func (s Scenario) Steps() int {
	return len(s.Questions) + len(s.Reflections)
}

// Prompt はステップ番号の質問文と、それが振り返りかどうかを返す。
func (s Scenario) Prompt(step int) (string, bool) {
	if step < len(s.Questions) {
		return s.Questions[step], false
	}
	return s.Reflections[step-len(s.Questions)], true
}

// DefaultScenarios は選択可能な名前付きシナリオを返す。
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Key:    "anxiety",
			Title:  "Тревога и беспокойство",
			Button: "😟 Тревога",
			Questions: []string{
				"Что сейчас вызывает у вас больше всего беспокойства?",
				"Как давно вы замечаете это состояние?",
				"Как тревога проявляется в теле: сон, аппетит, дыхание?",
				"Что обычно помогает вам хотя бы немного успокоиться?",
			},
			Reflections: []string{
				"Если бы тревога могла говорить, что бы она вам сказала?",
				"Какой маленький шаг заботы о себе вы готовы сделать сегодня?",
			},
			Closing: "Спасибо, что поделились. Тревога не делает вас слабее, это сигнал. Специалист свяжется с вами в ближайшее время.",
		},
		{
			Key:    "relationships",
			Title:  "Отношения",
			Button: "💞 Отношения",
			Questions: []string{
				"О каких отношениях пойдёт речь: партнёр, семья, друзья, коллеги?",
				"Что в этих отношениях сейчас беспокоит вас сильнее всего?",
				"Как вы обычно реагируете, когда возникает напряжение?",
				"Чего вам не хватает в этих отношениях?",
			},
			Reflections: []string{
				"Какими вы хотели бы видеть эти отношения через полгода?",
				"Что из этого зависит именно от вас?",
			},
			Closing: "Спасибо за доверие. Мы прочитаем ваши ответы и вернёмся с обратной связью.",
		},
		{
			Key:    "burnout",
			Title:  "Усталость и выгорание",
			Button: "🔋 Выгорание",
			Questions: []string{
				"Чем вы занимаетесь большую часть дня?",
				"Когда вы в последний раз по-настоящему отдыхали?",
				"Что забирает у вас больше всего сил?",
				"Что раньше приносило радость, а сейчас не радует?",
			},
			Reflections: []string{
				"Что бы вы сказали близкому человеку в таком же состоянии?",
				"От чего вы могли бы отказаться на этой неделе, чтобы стало легче?",
			},
			Closing: "Спасибо, что нашли на это силы. Берегите себя, мы скоро напишем вам.",
		},
	}
}

// ClassicScenario はシナリオを選ばなかった場合の固定の6問コース。
func ClassicScenario() Scenario {
	return Scenario{
		Key:    "classic",
		Title:  "Классическая анкета",
		Button: "📋 Без сценария",
		Questions: []string{
			"С каким запросом вы пришли?",
			"Как давно это вас беспокоит?",
			"Как это влияет на вашу повседневную жизнь?",
			"Обращались ли вы раньше к психологу?",
			"Кто или что вас сейчас поддерживает?",
			"Чего вы ждёте от работы со специалистом?",
		},
		Reflections: []string{
			"Оглядываясь на свои ответы, что вы замечаете?",
			"Что вы чувствуете прямо сейчас, после этих вопросов?",
		},
		Closing: "Спасибо! Ваша анкета передана специалисту. Мы свяжемся с вами в ближайшее время.",
	}
}
