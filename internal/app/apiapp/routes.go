package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sparklabs/spark/internal/config"
	"github.com/sparklabs/spark/internal/realtime"
	authsvc "github.com/sparklabs/spark/internal/services/auth"
	discoverysvc "github.com/sparklabs/spark/internal/services/discovery"
	matchessvc "github.com/sparklabs/spark/internal/services/matches"
	mediasvc "github.com/sparklabs/spark/internal/services/media"
	msgsvc "github.com/sparklabs/spark/internal/services/messages"
	notifsvc "github.com/sparklabs/spark/internal/services/notifications"
	profilesvc "github.com/sparklabs/spark/internal/services/profiles"
	safetysvc "github.com/sparklabs/spark/internal/services/safety"
	swipesvc "github.com/sparklabs/spark/internal/services/swipes"
	"github.com/sparklabs/spark/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService         *authsvc.Service
	DiscoveryService    *discoverysvc.Service
	SwipeService        *swipesvc.Service
	MatchService        *matchessvc.Service
	MessageService      *msgsvc.Service
	NotificationService *notifsvc.Service
	ProfileService      *profilesvc.Service
	MediaService        *mediasvc.Service
	SafetyService       *safetysvc.Service
	Hub                 *realtime.Hub
	Logger              *zap.Logger
	Config              config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	discoverHandler := handlers.NewDiscoverHandler(deps.DiscoveryService)
	swipeHandler := handlers.NewSwipeHandler(deps.SwipeService)
	matchesHandler := handlers.NewMatchesHandler(deps.MatchService, deps.Hub)
	messagesHandler := handlers.NewMessagesHandler(deps.MessageService, deps.Hub)
	notificationsHandler := handlers.NewNotificationsHandler(deps.NotificationService)
	profileHandler := handlers.NewProfileHandler(deps.ProfileService)
	mediaHandler := handlers.NewMediaHandler(deps.MediaService)
	safetyHandler := handlers.NewSafetyHandler(deps.SafetyService)
	wsHandler := handlers.NewWSHandler(deps.Hub, deps.AuthService, deps.Logger)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
		r.With(authMW).Get("/me", authHandler.Me)
	})

	r.With(authMW).Get("/me", authHandler.Me)

	r.With(authMW).Get("/discover", discoverHandler.Feed)
	r.With(authMW).Post("/swipe", swipeHandler.Swipe)
	r.With(authMW).Get("/quota", swipeHandler.Quota)

	r.Route("/matches", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/", matchesHandler.List)
		r.Delete("/{id}", matchesHandler.Unmatch)
	})

	r.Route("/messages", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/{matchId}", messagesHandler.List)
		r.Post("/{matchId}", messagesHandler.Send)
		r.Post("/{matchId}/read", messagesHandler.MarkRead)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/", notificationsHandler.List)
		r.Post("/read", notificationsHandler.MarkAllRead)
	})

	r.Route("/profile", func(r chi.Router) {
		r.Use(authMW)
		r.Get("/", profileHandler.Get)
		r.Put("/", profileHandler.Update)
		r.Get("/preferences", profileHandler.GetPreferences)
		r.Put("/preferences", profileHandler.UpdatePreferences)
		r.Put("/interests", profileHandler.SetInterests)
	})
	r.Get("/interests", profileHandler.ListInterests)

	r.With(authMW).Post("/media/photo", mediaHandler.Upload)
	r.Route("/media/photos", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/", mediaHandler.Upload)
		r.Get("/", mediaHandler.List)
		r.Delete("/{id}", mediaHandler.Delete)
		r.Post("/{id}/primary", mediaHandler.SetPrimary)
	})

	r.With(authMW).Post("/block", safetyHandler.Block)
	r.With(authMW).Delete("/block/{userId}", safetyHandler.Unblock)
	r.With(authMW).Post("/report", safetyHandler.Report)

	r.Get("/ws", wsHandler.Connect)
}
