package deinflect

import "sync"

// rule undoes one inflection step: a candidate ending in kanaIn whose
// conditions intersect condIn yields a new candidate with kanaIn swapped
// for kanaOut, carrying condOut.
type rule struct {
	kanaIn  string
	kanaOut string
	condIn  Conditions
	condOut Conditions
	name    string
}

var (
	rulesOnce sync.Once
	ruleTable []rule
)

// rules returns the process-wide rule table, built once and never mutated.
func rules() []rule {
	rulesOnce.Do(func() {
		ruleTable = buildRules()
	})
	return ruleTable
}

// stemForm maps a verb's masu-stem suffix back to its dictionary form.
// The empty stem row is the ichidan case (stem = dictionary form minus る).
type stemForm struct {
	stem string
	dict string
	cond Conditions
}

var stemForms = []stemForm{
	{"", "る", IchidanVerb},
	{"い", "う", GodanVerb},
	{"き", "く", GodanVerb},
	{"ぎ", "ぐ", GodanVerb},
	{"し", "す", GodanVerb},
	{"ち", "つ", GodanVerb},
	{"に", "ぬ", GodanVerb},
	{"び", "ぶ", GodanVerb},
	{"み", "む", GodanVerb},
	{"り", "る", GodanVerb},
	{"し", "する", SuruVerb},
	{"き", "くる", KuruVerb},
	{"来", "来る", KuruVerb},
}

func buildRules() []rule {
	var t []rule

	add := func(name string, condIn, condOut Conditions, pairs ...string) {
		for i := 0; i+1 < len(pairs); i += 2 {
			t = append(t, rule{kanaIn: pairs[i], kanaOut: pairs[i+1], condIn: condIn, condOut: condOut, name: name})
		}
	}

	// Suffixes that attach to the masu stem, one rule per stem form.
	// condIn is the class the suffixed form itself conjugates as.
	stemSuffix := func(name string, condIn Conditions, suffix string) {
		for _, f := range stemForms {
			t = append(t, rule{
				kanaIn:  f.stem + suffix,
				kanaOut: f.dict,
				condIn:  condIn,
				condOut: f.cond,
				name:    name,
			})
		}
	}

	// Past tense. The adjective row also resolves ない/たい chains, which
	// conjugate as い-adjectives.
	add("past", All, IchidanVerb, "た", "る")
	add("past", All, GodanVerb,
		"った", "う", "った", "つ", "った", "る",
		"いた", "く", "いだ", "ぐ", "した", "す",
		"んだ", "ぬ", "んだ", "ぶ", "んだ", "む")
	add("past", All, GodanVerb, "行った", "行く", "いった", "いく")
	add("past", All, SuruVerb, "した", "する")
	add("past", All, KuruVerb, "きた", "くる", "来た", "来る")
	add("past", All, AdjI, "かった", "い")

	// Plain negative conjugates as an い-adjective.
	add("negative", AdjI, IchidanVerb, "ない", "る")
	add("negative", AdjI, GodanVerb,
		"わない", "う", "かない", "く", "がない", "ぐ", "さない", "す",
		"たない", "つ", "なない", "ぬ", "ばない", "ぶ", "まない", "む", "らない", "る")
	add("negative", AdjI, SuruVerb, "しない", "する")
	add("negative", AdjI, KuruVerb, "こない", "くる", "来ない", "来る")
	add("negative", AdjI, AdjI, "くない", "い")

	// Te-form. TeForm is the intermediate class produced by the auxiliary
	// rules below; All includes it, so bare て-form input resolves too.
	add("-te", TeForm, IchidanVerb, "て", "る")
	add("-te", TeForm, GodanVerb,
		"って", "う", "って", "つ", "って", "る",
		"いて", "く", "いで", "ぐ", "して", "す",
		"んで", "ぬ", "んで", "ぶ", "んで", "む")
	add("-te", TeForm, GodanVerb, "行って", "行く", "いって", "いく")
	add("-te", TeForm, SuruVerb, "して", "する")
	add("-te", TeForm, KuruVerb, "きて", "くる", "来て", "来る")
	add("-te", TeForm, AdjI, "くて", "い")

	// Auxiliaries on the te-form. いる conjugates as ichidan, おる and
	// しまう as godan; condIn reflects that so e.g. 食べていた chains
	// through 食べている.
	add("progressive", IchidanVerb, TeForm,
		"ている", "て", "でいる", "で", "てる", "て", "でる", "で")
	add("progressive", GodanVerb, TeForm,
		"ておる", "て", "でおる", "で", "とる", "て", "どる", "で")
	add("-te oku", GodanVerb, TeForm,
		"ておく", "て", "でおく", "で", "とく", "て", "どく", "で")
	add("-te shimau", GodanVerb, TeForm, "てしまう", "て", "でしまう", "で")

	// Contracted -te shimau. ちゃう itself conjugates as godan.
	add("-chau", GodanVerb, IchidanVerb, "ちゃう", "る")
	add("-chau", GodanVerb, GodanVerb,
		"っちゃう", "う", "っちゃう", "つ", "っちゃう", "る",
		"いちゃう", "く", "いじゃう", "ぐ", "しちゃう", "す",
		"んじゃう", "ぬ", "んじゃう", "ぶ", "んじゃう", "む")
	add("-chau", GodanVerb, SuruVerb, "しちゃう", "する")
	add("-chau", GodanVerb, KuruVerb, "きちゃう", "くる", "来ちゃう", "来る")

	// Polite forms attach to the masu stem.
	stemSuffix("polite", All, "ます")
	stemSuffix("polite past", All, "ました")
	stemSuffix("polite negative", All, "ません")
	stemSuffix("polite past negative", All, "ませんでした")
	stemSuffix("polite volitional", All, "ましょう")

	// Desiderative and other stem-attached auxiliaries. たい conjugates as
	// an い-adjective, すぎる as ichidan.
	stemSuffix("-tai", AdjI, "たい")
	stemSuffix("-nasai", All, "なさい")
	stemSuffix("-sugiru", IchidanVerb, "すぎる")
	stemSuffix("-sou", All, "そう")
	add("-sou", All, AdjI, "そう", "い")

	// Potential. The potential form conjugates as ichidan.
	add("potential", IchidanVerb, GodanVerb,
		"える", "う", "ける", "く", "げる", "ぐ", "せる", "す",
		"てる", "つ", "ねる", "ぬ", "べる", "ぶ", "める", "む", "れる", "る")
	add("potential or passive", IchidanVerb, IchidanVerb, "られる", "る")
	add("potential", IchidanVerb, SuruVerb, "できる", "する")
	add("potential", IchidanVerb, KuruVerb, "こられる", "くる", "来られる", "来る")

	// Passive, likewise ichidan once formed.
	add("passive", IchidanVerb, GodanVerb,
		"われる", "う", "かれる", "く", "がれる", "ぐ", "される", "す",
		"たれる", "つ", "なれる", "ぬ", "ばれる", "ぶ", "まれる", "む", "られる", "る")
	add("passive", IchidanVerb, SuruVerb, "される", "する")

	// Causative, ichidan once formed.
	add("causative", IchidanVerb, IchidanVerb, "させる", "る")
	add("causative", IchidanVerb, GodanVerb,
		"わせる", "う", "かせる", "く", "がせる", "ぐ", "させる", "す",
		"たせる", "つ", "なせる", "ぬ", "ばせる", "ぶ", "ませる", "む", "らせる", "る")
	add("causative", IchidanVerb, SuruVerb, "させる", "する")
	add("causative", IchidanVerb, KuruVerb, "こさせる", "くる", "来させる", "来る")

	add("imperative", All, IchidanVerb, "ろ", "る", "よ", "る")
	add("imperative", All, GodanVerb,
		"え", "う", "け", "く", "げ", "ぐ", "せ", "す",
		"て", "つ", "ね", "ぬ", "べ", "ぶ", "め", "む", "れ", "る")
	add("imperative", All, SuruVerb, "しろ", "する", "せよ", "する")
	add("imperative", All, KuruVerb, "こい", "くる", "来い", "来る")

	add("volitional", All, IchidanVerb, "よう", "る")
	add("volitional", All, GodanVerb,
		"おう", "う", "こう", "く", "ごう", "ぐ", "そう", "す",
		"とう", "つ", "のう", "ぬ", "ぼう", "ぶ", "もう", "む", "ろう", "る")
	add("volitional", All, SuruVerb, "しよう", "する")
	add("volitional", All, KuruVerb, "こよう", "くる", "来よう", "来る")

	add("-ba", All, IchidanVerb, "れば", "る")
	add("-ba", All, GodanVerb,
		"えば", "う", "けば", "く", "げば", "ぐ", "せば", "す",
		"てば", "つ", "ねば", "ぬ", "べば", "ぶ", "めば", "む", "れば", "る")
	add("-ba", All, SuruVerb, "すれば", "する")
	add("-ba", All, KuruVerb, "くれば", "くる", "来れば", "来る")
	add("-ba", All, AdjI, "ければ", "い")

	add("-tara", All, IchidanVerb, "たら", "る")
	add("-tara", All, GodanVerb,
		"ったら", "う", "ったら", "つ", "ったら", "る",
		"いたら", "く", "いだら", "ぐ", "したら", "す",
		"んだら", "ぬ", "んだら", "ぶ", "んだら", "む")
	add("-tara", All, GodanVerb, "行ったら", "行く", "いったら", "いく")
	add("-tara", All, SuruVerb, "したら", "する")
	add("-tara", All, KuruVerb, "きたら", "くる", "来たら", "来る")
	add("-tara", All, AdjI, "かったら", "い")

	add("-tari", All, IchidanVerb, "たり", "る")
	add("-tari", All, GodanVerb,
		"ったり", "う", "ったり", "つ", "ったり", "る",
		"いたり", "く", "いだり", "ぐ", "したり", "す",
		"んだり", "ぬ", "んだり", "ぶ", "んだり", "む")
	add("-tari", All, GodanVerb, "行ったり", "行く", "いったり", "いく")
	add("-tari", All, SuruVerb, "したり", "する")
	add("-tari", All, KuruVerb, "きたり", "くる", "来たり", "来る")
	add("-tari", All, AdjI, "かったり", "い")

	add("-zu", All, IchidanVerb, "ず", "る")
	add("-zu", All, GodanVerb,
		"わず", "う", "かず", "く", "がず", "ぐ", "さず", "す",
		"たず", "つ", "なず", "ぬ", "ばず", "ぶ", "まず", "む", "らず", "る")
	add("-zu", All, SuruVerb, "せず", "する")
	add("-zu", All, KuruVerb, "こず", "くる", "来ず", "来る")

	// Adjective adverbial and nominal forms.
	add("adv", All, AdjI, "く", "い")
	add("noun", All, AdjI, "さ", "い")

	return t
}
