// Package validation はリクエスト入力の検証を提供する。
// go-playground/validatorにカタログ（試験種別・タグ・州）のルールを登録して使う。
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hitoshi/ratemydpe/internal/model"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator は共有のvalidatorインスタンスを返す。
// エラーのフィールド名にはjsonタグの名前を使う。
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		mustRegister(v, "checkride", model.IsCheckrideType)
		mustRegister(v, "reviewtag", model.IsReviewTag)
		mustRegister(v, "usstate", model.IsUSState)
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, fn func(string) bool) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	})
	if err != nil {
		panic("validation: failed to register " + tag + ": " + err.Error())
	}
}

// Struct は構造体を検証し、不正なフィールドがあれば*model.APIErrorを返す。
// フィールド名は重複を除いて宣言順に並べる。
func Struct(s interface{}) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return model.NewValidationError()
	}
	return model.NewValidationError(FieldNames(fieldErrs)...)
}

// FieldNames は検証エラーからフィールド名を取り出す。
// "tags[1]"のような要素のエラーは"tags"にまとめる。
func FieldNames(errs validator.ValidationErrors) []string {
	seen := make(map[string]bool, len(errs))
	var names []string
	for _, fe := range errs {
		name := fe.Field()
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
