package i18n

var dialogs = map[string]map[string]string{
	UA: {
		Start:      "Привіт! Я робот та можу допомогти тобі знайти твої іграшки.\nНапиши своє ім'я.",
		AskName:    "Як тебе звати?",
		AskPetName: ", тепер напиши мені им'я твоєї іграшки чи вихованця.",
		WrongName:  "В імені не повинно бути цифр. Спробуй ще раз.",
		Search:     "Шукаю, зачекай трохи...",
		Found:      ", знайшов! Ось, лист для тебе.",
		Personal: "Будь ласка, не плачь і не хвилюйся.\n" +
			"Я подорожую, хочу подивитися світ.\n" +
			"Буду тобі писати про свої пригоди.\n" +
			"А коли зустрінемося, розкажеш мені все цікаве.",
		Busy:           "Привіт! Я зараз в одному цікавому місці, напишу тобі пізніше. Як справи, чим займаєшся?",
		NoArticles:     "В мене немає для тебе новин. Напиши мені як твої справи.",
		OutOfService:   "Робот втомився і спить :-( \nСпробуй пізніше.",
		UnknownCommand: "Я тебе не розумію.",
	},
	RU: {
		Start:      "Привет! Я робот и могу помочь тебе найти твои игрушки.\nНапиши как тебя зовут.",
		AskName:    "Как тебя зовут?",
		AskPetName: ", теперь напиши мне имя твоей игрушки или питомца.",
		WrongName:  "В имени не должно быть цифр. Попробуй еще раз.",
		Search:     "Ищу, подожди немного...",
		Found:      ", нашел! Вот, письмо для тебя.",
		Personal: "Пожалуйста, не плачь и не волнуйся.\n" +
			"Я путешествую, хочу посмотреть мир.\n" +
			"Буду тебе писать о своих приключениях.\n" +
			"А когда встретимся, расскажешь мне все интересное.",
		Busy:           "Привет! Я сейчас в очень интересном месте, напишу тебе позже. Как у тебя дела, чем занимаешься?",
		NoArticles:     "У меня пока нет для тебя новостей. Напиши мне как твои дела.",
		OutOfService:   "Робот устал и спит :-( \nПопробуй позже.",
		UnknownCommand: "Я тебя не понимаю. Напиши по другому.",
	},
	EN: {
		Start:      "Hi! I'm a robot and I'll help you to find your toys.\nWhat is your name?",
		Intro:      "Hello! I can speak English, Ukrainian and Russian languages.",
		AskLang:    "What language will we talk?",
		ChooseLang: "Please, choose your language using buttons below.",
		AskName:    "What is your name?",
		AskPetName: ", write me your toy's or pet's name.",
		WrongName:  "Name must not contain digits. Try again.",
		Search:     "Searching, wait a while...",
		Found:      ", I've found! Here is a letter for you.",
		Personal: "Please don't cry and don't worry.\n" +
			"I'm traveling now, I want to see the world.\n" +
			"I'll write to you about my adventures.\n" +
			"And when you meet me, you can tell me all the interesting things.",
		Busy:           "Hi! I'm in a very interesting place now, I'll text to you later. How are you doing?",
		NoArticles:     "I have no any news for you yet. Write me how are you doing.",
		OutOfService:   "Bot is sleeping now :-( \nTry again later.",
		UnknownCommand: "I don't understand you.",
	},
}
