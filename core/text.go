package core

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// sentence upper-cases the first letter of the text and the first
// letter after each splitter.  Other letters are lower-cased.
func (e *Engine) sentence(s string) string {
	var (
		upper  = cases.Upper(e.lang)
		lower  = cases.Lower(e.lang)
		acc    strings.Builder
		change = true
	)
	for _, r := range strings.TrimSpace(s) {
		ch := string(r)
		if e.isSplitter(ch) {
			change = true
		}
		if !unicode.IsLetter(r) {
			acc.WriteString(ch)
			continue
		}
		if change {
			acc.WriteString(upper.String(ch))
			change = false
		} else {
			acc.WriteString(lower.String(ch))
		}
	}
	return acc.String()
}

func (e *Engine) isSplitter(s string) bool {
	for _, sp := range e.conf.Splitters {
		if sp == s {
			return true
		}
	}
	return false
}

// digraphs are the consonant pairs that piglatin moves together.
var digraphs = map[string]bool{
	"ch": true,
	"gh": true,
	"kn": true,
	"ph": true,
	"qu": true,
	"sh": true,
	"th": true,
	"wh": true,
	"wr": true,
}

func piglatin(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = piglatinWord(w)
	}
	return strings.Join(words, " ")
}

func piglatinWord(w string) string {
	end := len(w)
	for 0 < end {
		r, size := utf8.DecodeLastRuneInString(w[:end])
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			break
		}
		end -= size
	}
	word, punct := strings.ToLower(w[:end]), w[end:]

	first, size := utf8.DecodeRuneInString(word)
	if word == "" || !unicode.IsLetter(first) {
		return w
	}
	if strings.ContainsRune("aeiou", first) {
		return word + "way" + punct
	}
	if 2 <= len(word) && digraphs[word[:2]] {
		size = 2
	}
	return word[size:] + word[:size] + "ay" + punct
}

// conditionPattern compiles a condition value.  A "*" matches one or
// more letters, digits, or spaces.  Matching is case-insensitive and
// covers the entire predicate value.
func conditionPattern(value string) (*regexp.Regexp, error) {
	var acc strings.Builder
	acc.WriteString(`(?i)^`)
	for _, r := range value {
		switch r {
		case '*':
			acc.WriteString(`[\sA-Z0-9]+`)
		case ' ':
			acc.WriteString(`\s`)
		default:
			acc.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	acc.WriteString(`$`)
	return regexp.Compile(acc.String())
}

// matches reports if the predicate value matches the condition value.
func (e *Engine) matches(actual, value string) bool {
	var re *regexp.Regexp
	if x, have := e.conditions.Load(value); have {
		re = x.(*regexp.Regexp)
	} else {
		var err error
		if re, err = conditionPattern(value); err != nil {
			e.logger.Warn("bad condition value",
				zap.String("value", value),
				zap.Error(err))
			return false
		}
		e.conditions.Store(value, re)
	}
	return re.MatchString(actual)
}

var (
	dateLocales = []language.Tag{
		language.AmericanEnglish,
		language.BritishEnglish,
		language.German,
		language.French,
		language.Spanish,
		language.Japanese,
	}

	dateLayouts = []string{
		"1/2/2006 3:04:05 PM",
		"02/01/2006 15:04:05",
		"02.01.2006 15:04:05",
		"02/01/2006 15:04:05",
		"02/01/2006 15:04:05",
		"2006/01/02 15:04:05",
	}

	dateMatcher = language.NewMatcher(dateLocales)
)

// dateLayout picks a time layout for the locale.
func dateLayout(tag language.Tag) string {
	_, i, _ := dateMatcher.Match(tag)
	if i < 0 || len(dateLayouts) <= i {
		i = 0
	}
	return dateLayouts[i]
}

// date renders the current time with the given layout or with the
// locale's layout.
func (e *Engine) date(layout string) string {
	if layout == "" {
		layout = dateLayout(e.lang)
	}
	return e.now().Format(layout)
}

func (e *Engine) intn(n int) int {
	e.randMu.Lock()
	defer e.randMu.Unlock()
	return e.rand.Intn(n)
}
