package language

import "strings"

// routingKeywords lists common phrases per language. Order matters: on a
// tie the earlier language wins. Russian, Chinese, and Japanese use
// romanized forms because probe transcripts often come back transliterated.
var routingKeywords = []struct {
	code     string
	keywords []string
}{
	{"pt", []string{
		"obrigado", "obrigada", "obrigado pela", "isto é", "um teste",
		"gravação", "atenção", "alô", "olá", "sim", "não", "por favor",
		"muito obrigado", "bom dia", "boa tarde", "boa noite", "tchau",
		"desculpe", "com licença", "tudo bem", "de nada",
	}},
	{"es", []string{
		"gracias", "por favor", "hola", "adiós", "sí", "no",
		"muchas gracias", "esto es", "una prueba", "grabación", "atención",
		"buenos días", "buenas tardes", "buenas noches", "perdón",
		"con permiso", "de nada", "hasta luego",
	}},
	{"en", []string{
		"thank you", "thanks", "hello", "hi", "goodbye", "yes", "no",
		"please", "this is", "a test", "recording", "attention",
		"good morning", "good afternoon", "good evening", "sorry",
		"excuse me", "you're welcome", "see you",
	}},
	{"fr", []string{
		"merci", "bonjour", "au revoir", "oui", "non", "s'il vous plaît",
		"ceci est", "un test", "enregistrement", "attention",
		"bonne journée", "bonsoir", "pardon", "excusez-moi",
		"de rien", "à bientôt", "salut",
	}},
	{"de", []string{
		"danke", "hallo", "auf wiedersehen", "ja", "nein", "bitte",
		"das ist", "ein test", "aufnahme", "aufmerksamkeit",
		"guten morgen", "guten tag", "guten abend", "entschuldigung",
		"tschüss", "bis bald",
	}},
	{"it", []string{
		"grazie", "ciao", "arrivederci", "sì", "no", "per favore",
		"questo è", "un test", "registrazione", "attenzione",
		"buongiorno", "buonasera", "scusa", "prego", "a presto",
	}},
	{"nl", []string{
		"dank je", "dank u", "hallo", "dag", "ja", "nee", "alstublieft",
		"dit is", "een test", "opname", "aandacht",
		"goedemorgen", "goedemiddag", "goedenavond", "sorry",
		"tot ziens", "graag gedaan",
	}},
	{"ru", []string{
		"spasibo", "privet", "do svidaniya", "da", "net", "pozhaluysta",
		"eto", "test", "zapis", "vnimanie",
	}},
	{"zh", []string{
		"xiexie", "nihao", "zaijian", "shi", "bu", "qing",
		"zhe shi", "ceshi", "luyin", "zhuyi",
	}},
	{"ja", []string{
		"arigatou", "konnichiwa", "sayonara", "hai", "iie", "onegai",
		"kore wa", "tesuto", "rokuga", "chuui",
	}},
}

// Score counts how many keywords of each routing language occur in text.
// Matching is by case-insensitive substring. Languages without hits are
// omitted.
func Score(text string) map[string]int {
	lowered := strings.ToLower(text)
	scores := make(map[string]int)
	for _, lang := range routingKeywords {
		n := 0
		for _, kw := range lang.keywords {
			if strings.Contains(lowered, kw) {
				n++
			}
		}
		if n > 0 {
			scores[lang.code] = n
		}
	}
	return scores
}

// Detect returns the ISO 639-1 code of the best-scoring routing language and
// its score, or "" and 0 when no keyword matched.
func Detect(text string) (string, int) {
	scores := Score(text)
	best, bestScore := "", 0
	for _, lang := range routingKeywords {
		if s := scores[lang.code]; s > bestScore {
			best, bestScore = lang.code, s
		}
	}
	return best, bestScore
}

// RoutingLanguages lists the codes Detect can return, in tie-break order.
func RoutingLanguages() []string {
	codes := make([]string, 0, len(routingKeywords))
	for _, lang := range routingKeywords {
		codes = append(codes, lang.code)
	}
	return codes
}
