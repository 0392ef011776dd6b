// Package kana converts between Japanese scripts for lookup normalization:
// romaji to hiragana, katakana to hiragana, and fullwidth/halfwidth folding.
package kana

import (
	"strings"

	"golang.org/x/text/width"
)

// ToHiragana converts katakana runes to their hiragana equivalents.
// Other runes pass through unchanged.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// Normalize prepares raw query text for dictionary lookup. Halfwidth
// katakana and fullwidth latin are folded to their canonical widths, then
// any romaji segments are converted to hiragana. Text that is already kana
// or kanji passes through unchanged.
func Normalize(s string) string {
	return FromRomaji(width.Fold.String(s))
}

// FromRomaji converts romaji segments of s to hiragana. Kana, kanji and
// unrecognized characters are left as-is, so mixed romaji/kana input is
// handled naturally.
func FromRomaji(s string) string {
	orig := []rune(s)
	runes := []rune(strings.ToLower(s))
	if len(runes) != len(orig) {
		// Lowercasing changed rune counts (exotic input); leave untouched.
		return s
	}
	var out []rune

	for i := 0; i < len(runes); {
		r := runes[i]
		if r == '-' && len(out) > 0 && isKanaRune(out[len(out)-1]) {
			out = append(out, 'ー')
			i++
			continue
		}
		if !isRomajiLetter(r) {
			out = append(out, orig[i])
			i++
			continue
		}

		// Doubled consonant becomes a sokuon: "kitte" -> きって.
		if i+1 < len(runes) && r == runes[i+1] && r != 'n' && isConsonant(r) {
			out = append(out, 'っ')
			i++
			continue
		}

		// Syllabic n: "n" before a non-vowel consonant (except y), at end
		// of input, or disambiguated with an apostrophe.
		if r == 'n' {
			if i+1 >= len(runes) {
				out = append(out, 'ん')
				i++
				continue
			}
			next := runes[i+1]
			if next == '\'' {
				out = append(out, 'ん')
				i += 2
				continue
			}
			if isConsonant(next) && next != 'y' {
				out = append(out, 'ん')
				i++
				continue
			}
		}

		matched := false
		for l := 3; l >= 1; l-- {
			if i+l > len(runes) {
				continue
			}
			if h, ok := romajiTable[string(runes[i:i+l])]; ok {
				out = append(out, []rune(h)...)
				i += l
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, orig[i])
			i++
		}
	}
	return string(out)
}

func isRomajiLetter(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'i', 'u', 'e', 'o':
		return true
	}
	return false
}

func isConsonant(r rune) bool {
	return isRomajiLetter(r) && !isVowel(r)
}

func isKanaRune(r rune) bool {
	return r >= 0x3041 && r <= 0x309F || r >= 0x30A0 && r <= 0x30FF
}

// romajiTable maps Hepburn (and common wapuro variants) syllables to
// hiragana. Longest-match lookup, max key length 3.
var romajiTable = map[string]string{
	"a": "あ", "i": "い", "u": "う", "e": "え", "o": "お",
	"ka": "か", "ki": "き", "ku": "く", "ke": "け", "ko": "こ",
	"ga": "が", "gi": "ぎ", "gu": "ぐ", "ge": "げ", "go": "ご",
	"sa": "さ", "shi": "し", "si": "し", "su": "す", "se": "せ", "so": "そ",
	"za": "ざ", "ji": "じ", "zi": "じ", "zu": "ず", "ze": "ぜ", "zo": "ぞ",
	"ta": "た", "chi": "ち", "ti": "ち", "tsu": "つ", "tu": "つ", "te": "て", "to": "と",
	"da": "だ", "di": "ぢ", "du": "づ", "de": "で", "do": "ど",
	"na": "な", "ni": "に", "nu": "ぬ", "ne": "ね", "no": "の",
	"ha": "は", "hi": "ひ", "fu": "ふ", "hu": "ふ", "he": "へ", "ho": "ほ",
	"ba": "ば", "bi": "び", "bu": "ぶ", "be": "べ", "bo": "ぼ",
	"pa": "ぱ", "pi": "ぴ", "pu": "ぷ", "pe": "ぺ", "po": "ぽ",
	"ma": "ま", "mi": "み", "mu": "む", "me": "め", "mo": "も",
	"ya": "や", "yu": "ゆ", "yo": "よ",
	"ra": "ら", "ri": "り", "ru": "る", "re": "れ", "ro": "ろ",
	"wa": "わ", "wo": "を", "n": "ん",
	"kya": "きゃ", "kyu": "きゅ", "kyo": "きょ",
	"gya": "ぎゃ", "gyu": "ぎゅ", "gyo": "ぎょ",
	"sha": "しゃ", "shu": "しゅ", "sho": "しょ",
	"sya": "しゃ", "syu": "しゅ", "syo": "しょ",
	"ja": "じゃ", "ju": "じゅ", "jo": "じょ",
	"jya": "じゃ", "jyu": "じゅ", "jyo": "じょ",
	"zya": "じゃ", "zyu": "じゅ", "zyo": "じょ",
	"cha": "ちゃ", "chu": "ちゅ", "cho": "ちょ",
	"tya": "ちゃ", "tyu": "ちゅ", "tyo": "ちょ",
	"nya": "にゃ", "nyu": "にゅ", "nyo": "にょ",
	"hya": "ひゃ", "hyu": "ひゅ", "hyo": "ひょ",
	"bya": "びゃ", "byu": "びゅ", "byo": "びょ",
	"pya": "ぴゃ", "pyu": "ぴゅ", "pyo": "ぴょ",
	"mya": "みゃ", "myu": "みゅ", "myo": "みょ",
	"rya": "りゃ", "ryu": "りゅ", "ryo": "りょ",
	"fa": "ふぁ", "fi": "ふぃ", "fe": "ふぇ", "fo": "ふぉ",
	"va": "ゔぁ", "vi": "ゔぃ", "vu": "ゔ", "ve": "ゔぇ", "vo": "ゔぉ",
}
