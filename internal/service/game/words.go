package game

import "sort"

// WORD_CATEGORIES 是按语言、类别划分的静态词库
var WORD_CATEGORIES = map[string]map[string][]string{
	"en": {
		"food":    {"Pizza", "Sushi", "Burger", "Taco", "Pasta", "Ice Cream", "Chocolate", "Steak", "Salad", "Soup", "Sandwich", "Pancake", "Donut", "Popcorn", "Cheese"},
		"animals": {"Dog", "Cat", "Elephant", "Lion", "Penguin", "Dolphin", "Eagle", "Snake", "Rabbit", "Tiger", "Bear", "Monkey", "Giraffe", "Wolf", "Owl"},
		"movies":  {"Titanic", "Avatar", "Inception", "Frozen", "Jaws", "Matrix", "Shrek", "Batman", "Joker", "Alien", "Rocky", "Gladiator", "Up", "Coco", "Moana"},
		"places":  {"Beach", "Mountain", "Paris", "Hospital", "School", "Airport", "Museum", "Library", "Restaurant", "Zoo", "Stadium", "Castle", "Desert", "Forest", "Island"},
		"sports":  {"Soccer", "Basketball", "Tennis", "Swimming", "Golf", "Baseball", "Hockey", "Boxing", "Skiing", "Surfing", "Cycling", "Wrestling", "Volleyball", "Rugby", "Cricket"},
		"objects": {"Phone", "Guitar", "Clock", "Mirror", "Umbrella", "Candle", "Camera", "Scissors", "Balloon", "Ladder", "Hammer", "Pillow", "Backpack", "Glasses", "Key"},
	},
	"ar": {
		"food":    {"بيتزا", "سوشي", "برجر", "تاكو", "باستا", "آيس كريم", "شوكولاتة", "ستيك", "سلطة", "شوربة", "ساندويتش", "فطيرة", "دونات", "فشار", "جبن"},
		"animals": {"كلب", "قطة", "فيل", "أسد", "بطريق", "دولفين", "نسر", "ثعبان", "أرنب", "نمر", "دب", "قرد", "زرافة", "ذئب", "بومة"},
		"movies":  {"تايتانيك", "أفاتار", "إنسبشن", "فروزن", "جوز", "ماتريكس", "شريك", "باتمان", "جوكر", "إليين", "روكي", "جلادياتور", "أب", "كوكو", "موانا"},
		"places":  {"شاطئ", "جبل", "باريس", "مستشفى", "مدرسة", "مطار", "متحف", "مكتبة", "مطعم", "حديقة حيوان", "ملعب", "قصر", "صحراء", "غابة", "جزيرة"},
		"sports":  {"كرة قدم", "كرة سلة", "تنس", "سباحة", "جولف", "بيسبول", "هوكي", "ملاكمة", "تزلج", "ركوب أمواج", "دراجات", "مصارعة", "كرة طائرة", "رجبي", "كريكيت"},
		"objects": {"هاتف", "جيتار", "ساعة", "مرآة", "مظلة", "شمعة", "كاميرا", "مقص", "بالون", "سلم", "مطرقة", "وسادة", "حقيبة ظهر", "نظارات", "مفتاح"},
	},
}

var CATEGORY_NAMES = map[string]map[string]string{
	"en": {"food": "Food", "animals": "Animals", "movies": "Movies", "places": "Places", "sports": "Sports", "objects": "Objects"},
	"ar": {"food": "طعام", "animals": "حيوانات", "movies": "أفلام", "places": "أماكن", "sports": "رياضة", "objects": "أشياء"},
}

// LookupWords 返回某语言某类别的词表，不存在时返回 nil
func LookupWords(language, category string) []string {
	return WORD_CATEGORIES[language][category]
}

type Category struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// ListCategories 按 key 排序返回某语言下的全部类别
func ListCategories(language string) []Category {
	cats := make([]Category, 0, len(WORD_CATEGORIES[language]))
	for key := range WORD_CATEGORIES[language] {
		name := CATEGORY_NAMES[language][key]
		if name == "" {
			name = key
		}

		cats = append(cats, Category{Key: key, Name: name})
	}

	sort.Slice(cats, func(i, j int) bool {
		return cats[i].Key < cats[j].Key
	})

	return cats
}

// pickWord 从词表中选一个词，尽量避开 used 中已经用过的词
func pickWord(rt Runtime, settings Settings, used []string) (string, error) {
	words := LookupWords(settings.Language, settings.Category)

	fresh := make([]string, 0, len(words))
	for _, w := range words {
		if !contains(used, w) {
			fresh = append(fresh, w)
		}
	}

	if len(fresh) > 0 {
		return PickRandom(rt, fresh)
	}

	return PickRandom(rt, words)
}
