package model

// CheckrideTypes は受け付ける実地試験種別。
var CheckrideTypes = []string{
	"PRIVATE",
	"INSTRUMENT",
	"COMMERCIAL",
	"ATP",
	"CFI",
	"CFII",
	"MEI",
	"SPORT_PILOT",
	"RECREATIONAL",
}

// ReviewTags はレビューに付与できるタグ。1レビューにつき最大MaxReviewTags個。
var ReviewTags = []string{
	"Professional",
	"Well Prepared",
	"By The Book",
	"Thorough",
	"Clear Instructions",
	"Fair",
	"Patient",
	"Knowledgeable",
	"Strict",
	"Helpful",
	"Experienced",
	"Calm",
	"Efficient",
	"Organized",
	"Punctual",
	"Flexible",
	"Detailed",
	"Straightforward",
	"Encouraging",
	"Safety Focused",
}

// USStates は米国50州の2文字コード。
var USStates = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

const (
	// MaxReviewTags はレビュー1件あたりのタグ上限。
	MaxReviewTags = 3
	// MaxReviewContentLength はレビュー本文の最大文字数。
	MaxReviewContentLength = 2000
)

// IsCheckrideType は試験種別がカタログに含まれるかを返す。
func IsCheckrideType(s string) bool {
	return contains(CheckrideTypes, s)
}

// IsReviewTag はタグがカタログに含まれるかを返す。
func IsReviewTag(s string) bool {
	return contains(ReviewTags, s)
}

// IsUSState は州コードがカタログに含まれるかを返す。
func IsUSState(s string) bool {
	return contains(USStates, s)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
