package bot

import "blucoach/core/telegram/keyboard"

const (
	welcomeText = "سلام! 👋 من «بلو» هستم، مربی کسب‌وکارت.\n" +
		"هر سوالی درباره‌ی فروش، محتوا یا مدیریت کسب‌وکارت داری همین‌جا بپرس.\n" +
		"با /options می‌تونی امکانات رو ببینی."

	helpText = "دستورها:\n" +
		"/new_chat — شروع گفتگوی تازه\n" +
		"/history — نمایش تاریخچه‌ی همین گفتگو\n" +
		"/settings — لحن و اطلاعات کسب‌وکار\n" +
		"/options — میانبرهای کاربردی\n" +
		"/about — درباره‌ی بلو"

	aboutText = "🤖 بلو — مربی کسب‌وکار فارسی‌زبان\nنسخه: %s"

	settingsText = "⚙️ تنظیمات فعلی\nلحن: %s\nاطلاعات کسب‌وکار: %s"

	noProfileText  = "ثبت نشده"
	emptyHistory   = "هنوز پیامی در این گفتگو ثبت نشده."
	historyHeader  = "🗂 تاریخچه‌ی این گفتگو:"
	rateLimitText  = "⏳ یواش‌تر! چند لحظه صبر کن و دوباره بفرست."
	optionsText    = "چه کاری برات انجام بدم؟"
	toneMenuText   = "لحن پاسخ‌ها رو انتخاب کن یا لحن دلخواهت رو بنویس:"
	unknownCbText  = "این دکمه دیگه فعال نیست."
	docTooBigText   = "فایل خیلی بزرگه. لطفاً متن رو مستقیم بفرست."
	docNotTextText  = "فقط فایل‌های متنی ساده رو می‌تونم بخونم."
	photoTooBigText = "این عکس خیلی بزرگه. یک نسخه‌ی کوچیک‌تر بفرست."
)

// tonePresets are offered as buttons; the last choice arms free-text
// capture instead.
var tonePresets = []string{"دوستانه", "رسمی", "حرفه‌ای", "صمیمی"}

// quickPrompts map option-menu actions to the turn text sent to the
// model on the user's behalf.
var quickPrompts = map[string]string{
	"daily_tasks": "برای امروز سه کار مشخص و قابل اجرا برای رشد کسب‌وکارم پیشنهاد بده.",
	"story_idea":  "یک ایده‌ی استوری جذاب برای شبکه‌های اجتماعی کسب‌وکارم بده، با متن پیشنهادی.",
	"chat_report": "از گفتگوی ما تا این‌جا یک جمع‌بندی کوتاه با نکات کلیدی و قدم‌های بعدی بنویس.",
}

var quickLabels = []keyboard.InlineBtn{
	{Text: "✅ کارهای امروز", Unique: cbQuick, Data: "daily_tasks"},
	{Text: "💡 ایده‌ی استوری", Unique: cbQuick, Data: "story_idea"},
	{Text: "📋 گزارش گفتگو", Unique: cbQuick, Data: "chat_report"},
	{Text: "🎨 تغییر لحن", Unique: cbToneMenu, Data: "open"},
	{Text: "🏪 اطلاعات کسب‌وکار", Unique: cbBizInfo, Data: "open"},
}
