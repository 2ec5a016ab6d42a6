package api

import (
	"embed"         // Embedded page templates
	"html/template" // HTML rendering
	"time"          // Rate limit windows

	"perfect_vault/internal/account"    // Credential store
	"perfect_vault/internal/cache"      // View cache
	"perfect_vault/internal/domain"     // Importing domain models
	"perfect_vault/internal/ledger"     // Ledger operations
	"perfect_vault/internal/middleware" // Custom middleware
	"perfect_vault/internal/session"    // Session manager

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Money formatting
	"gorm.io/gorm"                  // GORM ORM library
)

//go:embed templates/*.html
var templateFS embed.FS

// Deps holds everything the handlers need
type Deps struct {
	DB            *gorm.DB         // Database, for health checks
	Redis         *redis.Client    // Redis client, for rate limiting and health checks
	Accounts      *account.Store   // Credential store
	Ledger        *ledger.Service  // Ledger
	Sessions      *session.Manager // Session gate
	Cache         *cache.Cache     // View cache, may be nil
	Notifier      ledger.Notifier  // Registration notifications
	SecureCookies bool             // Mark session cookie Secure (HTTPS only)
	AuthRateLimit int64            // POSTs per minute per IP on /login and /register, 0 disables
}

// page is the data every template renders
type page struct {
	Title        string
	LoggedIn     bool
	Error        string
	Email        string
	Name         string
	Details      string
	User         *domain.User
	Transactions []domain.Transaction
	Users        []domain.User
}

func loadTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"money": func(v float64) string { return "$" + decimal.NewFromFloat(v).StringFixed(2) },
	}
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}

// NewRouter builds the gin engine with every route wired
func NewRouter(d Deps) (*gin.Engine, error) {
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.SetHTMLTemplate(tmpl)
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		return nil, err
	}

	authLimit := func(c *gin.Context) { c.Next() }
	if d.Redis != nil && d.AuthRateLimit > 0 {
		authLimit = middleware.RateLimit(d.Redis, "auth", d.AuthRateLimit, time.Minute)
	}

	// Public pages
	r.GET("/", IndexHandler())
	r.GET("/health", HealthHandler(d.DB, d.Redis))
	r.GET("/register", RegisterPageHandler())
	r.POST("/register", authLimit, RegisterHandler(d.Accounts, d.Notifier, d.Cache))
	r.GET("/login", LoginPageHandler())
	r.POST("/login", authLimit, LoginHandler(d.Accounts, d.Sessions, d.SecureCookies))
	r.GET("/logout", LogoutHandler(d.Sessions, d.SecureCookies))

	// Ledger routes (protected by session)
	gated := r.Group("")
	gated.Use(middleware.RequireSession(d.Sessions))
	gated.GET("/dashboard", DashboardHandler(d.Ledger, d.Cache))
	gated.POST("/deposit", DepositHandler(d.Ledger, d.Cache))
	gated.POST("/withdraw", WithdrawHandler(d.Ledger, d.Cache))
	gated.POST("/invest", InvestHandler(d.Ledger, d.Cache))
	gated.GET("/export-transactions", ExportTransactionsHandler(d.Ledger))

	// Admin route (protected, admin only)
	gated.GET("/admin", middleware.AdminOnlyMiddleware(d.Accounts), AdminHandler(d.Accounts, d.Cache))

	return r, nil
}
