// Package web はサーバーレンダリングのHTMLページとRSSフィードを提供する。
// フォームの送信はstatic/app.jsがJSON APIへCSRFヘッダー付きで行う。
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/ratemydpe/internal/dpe"
	"github.com/hitoshi/ratemydpe/internal/middleware"
	"github.com/hitoshi/ratemydpe/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// siteName はページタイトルとフィードに使うサイト名。
const siteName = "Rate My DPE"

// DPEService はページ表示に必要なDPEの読み取り操作。
type DPEService interface {
	Get(ctx context.Context, id string) (*dpe.Listing, error)
	Search(ctx context.Context, filter model.DPEFilter) ([]dpe.Listing, error)
	ListSaved(ctx context.Context, userID string) ([]dpe.Listing, error)
}

// ReviewService はページ表示とフィードに必要なレビューの読み取り操作。
type ReviewService interface {
	ListRecent(ctx context.Context, limit int) ([]model.ReviewWithDPE, error)
	ListByUser(ctx context.Context, userID string) ([]model.ReviewWithDPE, error)
}

// UserFinder はログイン中ユーザーの取得に使う。
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// Config はページハンドラーの設定。
type Config struct {
	BaseURL      string
	OAuthEnabled bool
}

// Handler はHTMLページのハンドラー。
type Handler struct {
	dpes      DPEService
	reviews   ReviewService
	users     UserFinder
	config    Config
	templates map[string]*template.Template
	static    http.Handler
	logger    *slog.Logger
}

// pageData は全ページ共通のテンプレートデータ。
type pageData struct {
	SiteName     string
	Title        string
	CurrentUser  *model.User
	CSRFToken    string
	OAuthEnabled bool
	Data         interface{}
}

// NewHandler はテンプレートを解析してHandlerを生成する。
// 各ページはbase.htmlと組み合わせて個別に解析する。
func NewHandler(dpes DPEService, reviews ReviewService, users UserFinder, config Config, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		name := page[len("templates/"):]
		if name == "base.html" || name == "partials.html" {
			continue
		}
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/base.html", "templates/partials.html", page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		templates[name] = tmpl
	}

	staticRoot, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static files: %w", err)
	}

	return &Handler{
		dpes:      dpes,
		reviews:   reviews,
		users:     users,
		config:    config,
		templates: templates,
		static:    http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))),
		logger:    logger,
	}, nil
}

// Register はページのルートを登録する。
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/search", h.Search)
	r.Get("/review", h.ReviewPicker)
	r.Get("/dpes/add", h.AddDPE)
	r.Get("/dpes/{id}", h.DPEDetail)
	r.Get("/reviews/new/{dpeId}", h.NewReview)
	r.Get("/login", h.Login)
	r.Get("/signup", h.Signup)
	r.Get("/profile", h.Profile)

	for path, page := range staticPages {
		r.Get(path, h.staticPage(page))
	}

	r.Get("/feeds/reviews.xml", h.ReviewsFeed)
	r.Handle("/static/*", h.static)
}

// currentUser はセッションミドルウェアが注入したユーザーIDからユーザーを取得する。
func (h *Handler) currentUser(r *http.Request) *model.User {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		return nil
	}
	u, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load current user", slog.String("error", err.Error()))
		return nil
	}
	return u
}

// requireUser はログイン中ユーザーを返す。未ログインならログインページへリダイレクトする。
func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	u := h.currentUser(r)
	if u == nil {
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return nil, false
	}
	return u, true
}

// render はページテンプレートを実行する。
// 途中で失敗した場合に部分的なHTMLを返さないよう、バッファに描画してから書き込む。
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, user *model.User, data interface{}) {
	tmpl, ok := h.templates[page]
	if !ok {
		h.logger.Error("template not found", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	pd := pageData{
		SiteName:     siteName,
		Title:        title,
		CurrentUser:  user,
		CSRFToken:    middleware.CSRFTokenFromContext(r.Context()),
		OAuthEnabled: h.config.OAuthEnabled,
		Data:         data,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", pd); err != nil {
		h.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.logger.Error("page handler failed", slog.String("error", err.Error()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
