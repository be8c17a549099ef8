package web

import (
	"html/template"
	"strings"
	"time"
)

// checkrideLabels は試験種別コードの表示名。
var checkrideLabels = map[string]string{
	"PRIVATE":      "Private Pilot",
	"INSTRUMENT":   "Instrument Rating",
	"COMMERCIAL":   "Commercial Pilot",
	"ATP":          "Airline Transport Pilot",
	"CFI":          "Flight Instructor",
	"CFII":         "Instrument Instructor",
	"MEI":          "Multi-Engine Instructor",
	"SPORT_PILOT":  "Sport Pilot",
	"RECREATIONAL": "Recreational Pilot",
}

var templateFuncs = template.FuncMap{
	"checkrideLabel": checkrideLabel,
	"ratingClass":    ratingClass,
	"stars":          stars,
	"answer":         answer,
	"date":           formatDate,
	"join":           strings.Join,
	"has":            containsString,
	"stateOptions":   stateOptions,
	"ratingScale":    ratingScale,
	"triState":       triState,
}

func checkrideLabel(code string) string {
	if label, ok := checkrideLabels[code]; ok {
		return label
	}
	return code
}

// ratingClass は平均評価の色分け用CSSクラスを返す。
func ratingClass(v *float64) string {
	switch {
	case v == nil:
		return "rating-none"
	case *v >= 4.0:
		return "rating-good"
	case *v >= 3.0:
		return "rating-fair"
	default:
		return "rating-poor"
	}
}

// stars は1..5の評価を星で表す。範囲外は丸める。
func stars(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// answer は三値の回答を表示用の文字列にする。
func answer(b *bool) string {
	switch {
	case b == nil:
		return "Not answered"
	case *b:
		return "Yes"
	default:
		return "No"
	}
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

type stateOptionsData struct {
	States   []string
	Selected string
}

func stateOptions(states []string, selected string) stateOptionsData {
	return stateOptionsData{States: states, Selected: selected}
}

func ratingScale() []int {
	return []int{1, 2, 3, 4, 5}
}

type triStateField struct {
	Name  string
	Label string
}

func triState(name, label string) triStateField {
	return triStateField{Name: name, Label: label}
}
