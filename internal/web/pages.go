package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ratemydpe/internal/dpe"
	"github.com/hitoshi/ratemydpe/internal/model"
)

const (
	searchPageSize  = 10
	homeRecentLimit = 5
)

type homeData struct {
	RecentReviews []model.ReviewWithDPE
}

// Home はトップページを表示する。
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	recent, err := h.reviews.ListRecent(r.Context(), homeRecentLimit)
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, r, http.StatusOK, "home.html", "Find Your Next DPE", h.currentUser(r), homeData{RecentReviews: recent})
}

type searchData struct {
	Name       string
	State      string
	States     []string
	Results    []dpe.Listing
	Total      int
	Page       int
	TotalPages int
	PrevURL    string
	NextURL    string
	// ForReview はレビュー対象の選択モード（/review）であることを表す。
	ForReview bool
}

// Search はDPE検索ページを表示する。1ページあたり10件。
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	h.renderSearch(w, r, "/search", false)
}

// ReviewPicker はレビュー対象のDPEを選ぶページを表示する。
func (h *Handler) ReviewPicker(w http.ResponseWriter, r *http.Request) {
	h.renderSearch(w, r, "/review", true)
}

func (h *Handler) renderSearch(w http.ResponseWriter, r *http.Request, path string, forReview bool) {
	q := r.URL.Query()
	filter := model.DPEFilter{
		Name:  strings.TrimSpace(q.Get("name")),
		State: strings.ToUpper(strings.TrimSpace(q.Get("state"))),
	}

	results, err := h.dpes.Search(r.Context(), filter)
	if err != nil {
		h.serverError(w, err)
		return
	}

	page, _ := strconv.Atoi(q.Get("page"))
	start, end, page, totalPages := paginate(len(results), page, searchPageSize)

	data := searchData{
		Name:       filter.Name,
		State:      filter.State,
		States:     model.USStates,
		Results:    results[start:end],
		Total:      len(results),
		Page:       page,
		TotalPages: totalPages,
		ForReview:  forReview,
	}
	if page > 1 {
		data.PrevURL = pageURL(path, filter, page-1)
	}
	if page < totalPages {
		data.NextURL = pageURL(path, filter, page+1)
	}

	title := "Search DPEs"
	if forReview {
		title = "Write a Review"
	}
	h.render(w, r, http.StatusOK, "search.html", title, h.currentUser(r), data)
}

// paginate は件数とページ番号から表示範囲を計算する。
// ページ番号は1から総ページ数の範囲に丸める。結果が0件でも総ページ数は1。
func paginate(total, page, size int) (start, end, current, totalPages int) {
	totalPages = (total + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	start = (page - 1) * size
	end = start + size
	if end > total {
		end = total
	}
	return start, end, page, totalPages
}

func pageURL(path string, filter model.DPEFilter, page int) string {
	v := url.Values{}
	if filter.Name != "" {
		v.Set("name", filter.Name)
	}
	if filter.State != "" {
		v.Set("state", filter.State)
	}
	v.Set("page", strconv.Itoa(page))
	return path + "?" + v.Encode()
}

type dpeDetailData struct {
	Listing dpe.Listing
	Saved   bool
}

// DPEDetail はDPEの詳細ページを表示する。
func (h *Handler) DPEDetail(w http.ResponseWriter, r *http.Request) {
	listing, err := h.dpes.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeDPENotFound {
			h.render(w, r, http.StatusNotFound, "not_found.html", "DPE Not Found", h.currentUser(r), nil)
			return
		}
		h.serverError(w, err)
		return
	}

	user := h.currentUser(r)
	data := dpeDetailData{Listing: *listing}
	if user != nil {
		data.Saved = containsString(listing.DPE.SavedByUserIDs, user.ID)
	}
	h.render(w, r, http.StatusOK, "dpe.html", listing.DPE.FullName(), user, data)
}

type dpeFormData struct {
	States         []string
	CheckrideTypes []string
}

// AddDPE はDPE登録フォームを表示する。
func (h *Handler) AddDPE(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "dpe_add.html", "Add a DPE", user, dpeFormData{
		States:         model.USStates,
		CheckrideTypes: model.CheckrideTypes,
	})
}

type reviewFormData struct {
	DPE            *model.DPE
	CheckrideTypes []string
	Tags           []string
	MaxTags        int
	MaxLength      int
}

// NewReview はレビュー投稿フォームを表示する。
func (h *Handler) NewReview(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	listing, err := h.dpes.Get(r.Context(), chi.URLParam(r, "dpeId"))
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeDPENotFound {
			h.render(w, r, http.StatusNotFound, "not_found.html", "DPE Not Found", user, nil)
			return
		}
		h.serverError(w, err)
		return
	}

	h.render(w, r, http.StatusOK, "review_new.html", "Review "+listing.DPE.FullName(), user, reviewFormData{
		DPE:            listing.DPE,
		CheckrideTypes: model.CheckrideTypes,
		Tags:           model.ReviewTags,
		MaxTags:        model.MaxReviewTags,
		MaxLength:      model.MaxReviewContentLength,
	})
}

type authPageData struct {
	Next  string
	Error string
}

// loginErrorMessages はOAuthコールバック失敗時のエラー種別と表示文言の対応。
var loginErrorMessages = map[string]string{
	"invalid_state": "Your sign-in session expired. Please try again.",
	"missing_code":  "Sign-in was cancelled.",
	"email_taken":   "An account with this email already exists. Sign in with your password.",
	"oauth_failed":  "Google sign-in failed. Please try again.",
}

// Login はログインページを表示する。
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.renderAuthPage(w, r, "login.html", "Sign In")
}

// Signup は新規登録ページを表示する。
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	h.renderAuthPage(w, r, "signup.html", "Create an Account")
}

func (h *Handler) renderAuthPage(w http.ResponseWriter, r *http.Request, page, title string) {
	user := h.currentUser(r)
	if user != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	data := authPageData{
		Next:  safeNext(r.URL.Query().Get("next")),
		Error: loginErrorMessages[r.URL.Query().Get("error")],
	}
	h.render(w, r, http.StatusOK, page, title, nil, data)
}

// safeNext はログイン後の遷移先を同一オリジンの相対パスに限定する。
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

type profileData struct {
	Profile     model.Profile
	Email       string
	HasPassword bool
	States      []string
	Reviews     []model.ReviewWithDPE
	SavedDPEs   []dpe.Listing
}

// Profile はマイページ（プロフィール、設定、レビュー、保存済みDPE）を表示する。
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	reviews, err := h.reviews.ListByUser(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, err)
		return
	}
	saved, err := h.dpes.ListSaved(r.Context(), user.ID)
	if err != nil {
		h.serverError(w, err)
		return
	}

	h.render(w, r, http.StatusOK, "profile.html", "My Profile", user, profileData{
		Profile:     user.Profile,
		Email:       user.Email,
		HasPassword: user.HasPassword(),
		States:      model.USStates,
		Reviews:     reviews,
		SavedDPEs:   saved,
	})
}

// staticPages は固定コンテンツページのパスとテンプレート。
var staticPages = map[string]staticPage{
	"/about":      {"about.html", "About"},
	"/guidelines": {"guidelines.html", "Community Guidelines"},
	"/faq":        {"faq.html", "Frequently Asked Questions"},
	"/terms":      {"terms.html", "Terms of Service"},
	"/privacy":    {"privacy.html", "Privacy Policy"},
	"/contact":    {"contact.html", "Contact Us"},
}

type staticPage struct {
	template string
	title    string
}

func (h *Handler) staticPage(page staticPage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, r, http.StatusOK, page.template, page.title, h.currentUser(r), nil)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
