package coach

// Texts are the user-facing strings the dispatcher emits. They are a
// struct so a deployment can rebrand without forking the package.
type Texts struct {
	Apology           string
	TonePrompt        string
	ToneInvalid       string
	ToneConfirmed     string // fmt verb: tone
	BusinessPrompt    string
	BusinessChoice    string
	BusinessInvalid   string
	BusinessConfirmed string // fmt verb: stored summary
	Cancelled         string
	NewSession        string
	MediaUnsupported  string
}

// DefaultTexts returns the stock Persian strings.
func DefaultTexts() Texts {
	return Texts{
		Apology:           "🙏 متاسفم، الان نمی‌تونم پاسخ بدم. لطفاً کمی بعد دوباره تلاش کن.",
		TonePrompt:        "لحن مورد نظرت رو بنویس یا یکی از گزینه‌ها رو انتخاب کن.",
		ToneInvalid:       "لحن ارسالی خیلی کوتاهه. لطفاً یک لحن معتبر بنویس.",
		ToneConfirmed:     "✅ لحن پاسخ‌ها به «%s» تغییر کرد.",
		BusinessPrompt:    "لطفاً اطلاعات کسب‌وکارت رو در یک پیام بفرست.",
		BusinessChoice:    "برای کسب‌وکارت قبلاً اطلاعاتی ثبت شده. جایگزین بشه یا به اطلاعات قبلی اضافه بشه؟",
		BusinessInvalid:   "متن ارسالی خیلی کوتاهه. لطفاً اطلاعات کامل‌تری بفرست.",
		BusinessConfirmed: "✅ اطلاعات کسب‌وکارت ذخیره شد.\n\n🔍 خلاصه نهایی:\n%s",
		Cancelled:         "باشه، لغو شد.",
		NewSession:        "🆕 گفتگوی جدید شروع شد. سابقه قبلی کنار گذاشته شد.",
		MediaUnsupported:  "فعلاً فقط پیام متنی یا عکس رو می‌تونم پردازش کنم.",
	}
}
