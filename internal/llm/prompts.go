package llm

import (
	"fmt"
	"strings"

	"lernabenteuer/internal/models"
)

// SystemInstruction gibt Rolle und Ton für alle Inhalte vor
const SystemInstruction = "أنت مرشد تعليمي مبدع وساحر، متخصص في جعل التعلم مغامرة شيقة لطلاب الصف الثاني الابتدائي في تونس. مهمتك هي صياغة دروس وتمارين تتبع المنهج الرسمي التونسي، لكن بأسلوب قصصي يأسر الخيال. حول كل درس إلى حكاية ممتعة، وكل تمرين إلى تحدٍ ممتع. عند إنشاء الدروس، لا تكتفِ بدمج أسئلة بسيطة، بل اقترح أيضًا أنشطة عملية بسيطة يمكن للطالب القيام بها في المنزل (مثل رسم، تجربة بسيطة، أو لعبة حركية). يجب أن تكون لغتك العربية الفصحى بسيطة ومفعمة بالحياة. كن دائمًا شخصية إيجابية، مشجعة، وملهمة."

// formatInstruction erzwingt die Mikrosyntax für Quizblöcke
const formatInstruction = `تعليمات التنسيق (إلزامية):
- افصل بين كل فقرة وأخرى بسطر فارغ.
- اكتب كل سؤال اختيار من متعدد في كتلة مستقلة: السطر الأول هو نص السؤال بين نجمتين مزدوجتين هكذا: **نص السؤال**
- اكتب كل خيار في سطر مستقل يبدأ بشرطة: - نص الخيار
- أضف العلامة [correct] في نهاية الخيار الصحيح فقط، وخيار واحد صحيح فقط لكل سؤال.
- لا تستخدم النجمتين المزدوجتين في السطر الأول من أي فقرة ليست سؤالًا.`

const imageSummaryInstruction = "أنت مساعد يكتب أوصافًا قصيرة للرسامين."

const imageSummaryPrompt = "لخص النص التالي في جملة وصفية واحدة فقط تصلح لرسم صورة توضيحية ملونة ومرحة للأطفال. لا تكتب أي شيء آخر غير الجملة.\n\nالنص:\n%s"

const imageStyleSuffix = ", colorful children's book illustration, friendly, no text"

var prompts = map[models.SubjectID]map[models.ActivityType]string{
	models.SubjectArabic: {
		models.ActivityLesson:   "بصفتك حكواتي ماهر ومعلم لغة عربية، اروِ قصة قصيرة وممتعة تشرح من خلالها درسًا في اللغة العربية. اجعل الشخصيات والأحداث هي التي توضح المفهوم (مثلاً، قصة عن 'التاء المربوطة' الحزينة التي تبحث عن صديقتها 'التاء المفتوحة').",
		models.ActivityExercise: "صمم 5 تحديات لغوية ممتعة على شكل ألغاز أو ألعاب كلمات (مثل: 'ابحث عن الكلمة المختبئة' أو 'أكمل القصة بكلمة مناسبة'). يجب أن تكون التمارين جزءًا من مغامرة لغوية.",
	},
	models.SubjectMath: {
		models.ActivityLesson:   "أنت قائد مغامرة الأرقام. قدم درس رياضيات على شكل رحلة استكشافية. على سبيل المثال، اشرح الجمع والطرح كرحلة لجمع الكنوز أو فقدانها في جزيرة الأرقام. استخدم قصة بسيطة وأبطالًا أرقامًا.",
		models.ActivityExercise: "ابتكر 5 مهام رياضية ضمن 'مهمة سرية لإنقاذ عالم الأرقام'. يجب أن تكون كل مهمة لغزًا رياضيًا يتطلب من البطل الصغير (الطالب) استخدام مهاراته لحلها.",
	},
	models.SubjectScience: {
		models.ActivityLesson:   "أنت مستكشف الطبيعة العظيم. اروِ قصة عن مغامرتك في استكشاف موضوع علمي (مثل دورة حياة الفراشة). في نهاية القصة، اقترح نشاطًا عمليًا بسيطًا جدًا يمكن للطفل القيام به، مثل رسم مراحل الدورة أو محاولة زراعة بذرة.",
		models.ActivityExercise: "صمم 5 'تجارب فكرية' أو أسئلة تحفيزية تشجع الطفل على أن يكون عالمًا صغيرًا. اطلب منه أن يلاحظ شيئًا في بيئته، أو يتخيل 'ماذا سيحدث لو...؟' بناءً على الدرس.",
	},
	models.SubjectHistory: {
		models.ActivityLesson:   "أنت مسافر عبر الزمن. اروِ قصة وكأنك قابلت شخصية تاريخية تونسية أو شهدت حدثًا تاريخيًا بنفسك. صف الأماكن والملابس والأصوات لجعل القصة حية. اقترح على الطفل أن يرسم مشهدًا من القصة.",
		models.ActivityExercise: "ابتكر 5 'مهام للمؤرخ الصغير'. يمكن أن تكون المهام عبارة عن أسئلة تحقيقية بسيطة (مثل: 'لماذا تعتقد أنهم بنوا هذا؟') أو نشاطًا إبداعيًا مثل تصميم عملة قديمة.",
	},
	models.SubjectArt: {
		models.ActivityLesson:   "أنت فنان ساحر تستخدم الألوان والخطوط لسرد الحكايات. اشرح مفهومًا فنيًا من خلال قصة خيالية (مثلاً، قصة الألوان الثلاثة الأساسية التي اجتمعت لتكوين أصدقاء جدد). ادعُ الطفل في نهاية الدرس لتجربة ما تعلمه بنفسه فورًا.",
		models.ActivityExercise: "قدم 5 'تحديات فنية' إبداعية. كل تحدٍ يبدأ بـ 'تخيل أنك...' (مثل: 'تخيل أنك تستطيع الطيران، ماذا سترى في الأسفل؟ ارسمه!') لتحفيز الخيال وليس فقط المهارة.",
	},
	models.SubjectGeography: {
		models.ActivityLesson:   "أنت رحالة يجوب العالم على بساط سحري. اروِ قصة رحلة قصيرة تكتشف فيها قارة أو بلدًا أو نهرًا أو جبلًا (مثلاً، رحلة من تونس عبر البحر الأبيض المتوسط). صف ما تراه من تضاريس ومناخ وعادات، واقترح على الطفل أن يرسم خريطة صغيرة لرحلتك.",
		models.ActivityExercise: "صمم 5 'ألغاز المستكشف الصغير' عن القارات والبلدان والتضاريس. يجب أن يكون كل لغز محطة في رحلة حول العالم يحتاج فيها الطالب إلى معلومة جغرافية ليتابع المسير.",
	},
}

var difficultyInstructions = map[models.Difficulty]string{
	models.DifficultyEasy:   "اجعل المحتوى سهلًا جدًا ومناسبًا للمبتدئين تمامًا.",
	models.DifficultyMedium: "قدم محتوى بمستوى صعوبة متوسط، به بعض التحدي البسيط.",
	models.DifficultyHard:   "صمم محتوى متقدمًا به تحدي واضح ومناسب للطلاب المتميزين.",
}

// BuildPrompt setzt Grundprompt, Schwierigkeitshinweis und Formatvorgaben zusammen
func BuildPrompt(subject models.SubjectID, activity models.ActivityType, difficulty models.Difficulty) (string, error) {
	base, ok := prompts[subject][activity]
	if !ok || base == "" {
		return "", fmt.Errorf("%w: %s/%s", ErrNoPromptTemplate, subject, activity)
	}
	modifier, ok := difficultyInstructions[difficulty]
	if !ok {
		return "", fmt.Errorf("%w: schwierigkeit %s", ErrNoPromptTemplate, difficulty)
	}

	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\nتوجيه إضافي بخصوص مستوى الصعوبة: ")
	sb.WriteString(modifier)
	sb.WriteString("\n\n")
	if activity == models.ActivityExercise {
		sb.WriteString("اجعل كل مهمة سؤال اختيار من متعدد بثلاثة أو أربعة خيارات.\n\n")
	}
	sb.WriteString(formatInstruction)
	return sb.String(), nil
}

// WithCurriculum hängt einen Lehrplanauszug als Kontext an
func WithCurriculum(prompt, excerpt string) string {
	excerpt = strings.TrimSpace(excerpt)
	if excerpt == "" {
		return prompt
	}
	return prompt + "\n\nاستعن بالمقتطف التالي من المنهج الرسمي كمرجع:\n" + excerpt
}

// ImageSummaryPrompt fordert eine einzeilige Bildbeschreibung an
func ImageSummaryPrompt(text string) (prompt, systemInstruction string) {
	return fmt.Sprintf(imageSummaryPrompt, text), imageSummaryInstruction
}

// ImagePrompt macht aus der Zusammenfassung einen Bildprompt
func ImagePrompt(summary string) string {
	summary = strings.TrimSpace(summary)
	if i := strings.IndexByte(summary, '\n'); i >= 0 {
		summary = strings.TrimSpace(summary[:i])
	}
	if summary == "" {
		return ""
	}
	return summary + imageStyleSuffix
}
