package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/larder/internal/backup"
	"github.com/dukerupert/larder/internal/handler"
	"github.com/dukerupert/larder/internal/middleware"
	"github.com/dukerupert/larder/internal/push"
	"github.com/dukerupert/larder/internal/store"
	ws "github.com/dukerupert/larder/internal/websocket"
)

// Deps are the collaborators built outside the server. Each owns network
// clients or background workers whose lifetime main controls.
type Deps struct {
	Products   handler.ProductLookup
	Nutrition  handler.NutritionEnqueuer
	SessionTTL time.Duration

	// Push is nil when VAPID keys are not configured.
	Push            handler.PushService
	PushBatchWindow time.Duration

	// Backups is nil when the caller does not run backups.
	Backups handler.BackupManager
}

// fanout delivers change-feed messages to several broadcasters.
type fanout []handler.Broadcaster

func (f fanout) Broadcast(householdID int64, msg any) {
	for _, b := range f {
		b.Broadcast(householdID, msg)
	}
}

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	shoppingH      *handler.ShoppingHandler
	pantryH        *handler.PantryHandler
	settingsH      *handler.SettingsHandler
	recipeH        *handler.RecipeHandler
	authH          *handler.AuthHandler
	householdH     *handler.HouseholdHandler
	pushH          *handler.PushHandler
	backupH        *handler.BackupHandler
	notifier       *push.Notifier
	sessionStore   *store.SessionStore
	householdStore *store.HouseholdStore
	rateLimiter    *middleware.RateLimiter
	logger         *slog.Logger
}

func New(db *sql.DB, deps Deps, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	shoppingStore := store.NewShoppingStore(db)
	pantryStore := store.NewPantryStore(db)
	settingsStore := store.NewSettingsStore(db)
	recipeStore := store.NewRecipeStore(db)
	mealPlanStore := store.NewMealPlanStore(db)

	// Auth stores
	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	sessionStore := store.NewSessionStore(db)
	if deps.SessionTTL > 0 {
		sessionStore = sessionStore.WithTTL(deps.SessionTTL)
	}

	pushStore := store.NewPushStore(db)
	var feed handler.Broadcaster = hub
	var notifier *push.Notifier
	if deps.Push != nil {
		notifier = push.NewNotifier(deps.Push, pushStore, shoppingStore, deps.PushBatchWindow, logger)
		feed = fanout{hub, notifier}
	}

	backups := deps.Backups
	if backups == nil {
		backups = backup.NewManager(backup.Config{}, db, store.NewBackupStore(db), logger)
	}

	return &Server{
		db:             db,
		hub:            hub,
		shoppingH:      handler.NewShoppingHandler(shoppingStore, pantryStore, settingsStore, deps.Products, feed, logger.With("component", "shopping")),
		pantryH:        handler.NewPantryHandler(pantryStore, logger.With("component", "pantry")),
		settingsH:      handler.NewSettingsHandler(settingsStore, logger.With("component", "settings")),
		recipeH:        handler.NewRecipeHandler(recipeStore, mealPlanStore, shoppingStore, deps.Nutrition, feed, logger.With("component", "recipe")),
		authH:          handler.NewAuthHandler(userStore, householdStore, sessionStore, logger.With("component", "auth")),
		householdH:     handler.NewHouseholdHandler(householdStore, store.NewInviteStore(db), sessionStore, logger.With("component", "household")),
		pushH:          handler.NewPushHandler(pushStore, deps.Push, logger.With("component", "push")),
		backupH:        handler.NewBackupHandler(backups, logger.With("component", "backup")),
		notifier:       notifier,
		sessionStore:   sessionStore,
		householdStore: householdStore,
		rateLimiter:    middleware.NewRateLimiter(),
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Notifier returns the push notifier, or nil when push is not configured.
func (s *Server) Notifier() *push.Notifier {
	return s.notifier
}

// Hub returns the change-feed hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("POST /api/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Protected routes, wrapped with RequireAuth middleware
	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.householdStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	// Apply request logging middleware
	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "ws_clients": s.hub.ClientCount()}
	code := http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Auth routes that require authentication
	mux.HandleFunc("POST /api/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/households", s.authH.Households)
	mux.HandleFunc("POST /api/households/switch", s.authH.SwitchHousehold)

	// Change feed
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger))

	// Shopping list API routes
	mux.HandleFunc("GET /api/shopping-list/items", s.shoppingH.ListItems)
	mux.HandleFunc("POST /api/shopping-list/items", s.shoppingH.CreateItem)
	mux.HandleFunc("GET /api/shopping-list/view", s.shoppingH.View)
	mux.HandleFunc("POST /api/shopping-list/barcode", s.shoppingH.AddBarcode)
	mux.HandleFunc("POST /api/shopping-list/generate", s.shoppingH.Generate)
	mux.HandleFunc("PUT /api/shopping-list/items/{id}", s.shoppingH.UpdateItem)
	mux.HandleFunc("DELETE /api/shopping-list/items/{id}", s.shoppingH.DeleteItem)
	mux.HandleFunc("POST /api/shopping-list/items/{id}/check", s.shoppingH.Check)
	mux.HandleFunc("POST /api/shopping-list/items/{id}/substitute", s.shoppingH.Substitute)
	mux.HandleFunc("POST /api/shopping-list/clear-checked", s.shoppingH.ClearChecked)
	mux.HandleFunc("POST /api/shopping-list/clear", s.shoppingH.ClearAll)
	mux.HandleFunc("DELETE /api/shopping-list/recipes/{recipe_id}", s.shoppingH.DeleteRecipe)

	// Pantry API routes
	mux.HandleFunc("GET /api/pantry", s.pantryH.List)
	mux.HandleFunc("POST /api/pantry/toggle", s.pantryH.Toggle)

	// Settings API routes
	mux.HandleFunc("GET /api/settings/shopping", s.settingsH.GetShopping)
	mux.HandleFunc("PUT /api/settings/shopping", s.settingsH.UpdateShopping)
	mux.HandleFunc("GET /api/settings/category-order", s.settingsH.GetCategoryOrder)
	mux.HandleFunc("PUT /api/settings/category-order", s.settingsH.UpdateCategoryOrder)
	mux.HandleFunc("POST /api/settings/category-order/move", s.settingsH.MoveCategory)
	mux.HandleFunc("DELETE /api/settings/category-order", s.settingsH.ResetCategoryOrder)

	// Recipe and meal plan API routes
	mux.HandleFunc("GET /api/recipes", s.recipeH.List)
	mux.HandleFunc("POST /api/recipes", s.recipeH.Create)
	mux.HandleFunc("GET /api/recipes/{id}", s.recipeH.Get)
	mux.HandleFunc("DELETE /api/recipes/{id}", s.recipeH.Delete)
	mux.HandleFunc("GET /api/meal-plan", s.recipeH.ListMealPlan)
	mux.HandleFunc("POST /api/meal-plan", s.recipeH.AddMealPlan)
	mux.HandleFunc("DELETE /api/meal-plan/{id}", s.recipeH.DeleteMealPlan)

	// Push notification routes
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("POST /api/push/test", s.pushH.TestNotification)

	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAdmin(h)
	}

	// Household membership routes
	mux.HandleFunc("GET /api/households/current", s.householdH.Current)
	mux.Handle("PUT /api/households/current", admin(s.householdH.Rename))
	mux.HandleFunc("GET /api/households/members", s.householdH.Members)
	mux.Handle("PUT /api/households/members/{user_id}", admin(s.householdH.UpdateMemberRole))
	mux.HandleFunc("DELETE /api/households/members/{user_id}", s.householdH.RemoveMember)
	mux.Handle("GET /api/households/invites", admin(s.householdH.ListInvites))
	mux.Handle("POST /api/households/invites", admin(s.householdH.CreateInvite))
	mux.Handle("DELETE /api/households/invites/{id}", admin(s.householdH.RevokeInvite))
	mux.HandleFunc("POST /api/households/join", s.rateLimitedHandler(s.householdH.Join))

	// Admin routes
	mux.Handle("GET /api/admin/backups", admin(s.backupH.List))
	mux.Handle("POST /api/admin/backups", admin(s.backupH.Run))
	mux.Handle("GET /api/admin/backups/{id}/download", admin(s.backupH.Download))
}
