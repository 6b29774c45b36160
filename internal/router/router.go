package router

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"journeyrewards/docs"
	"journeyrewards/internal/handlers/api/v1/points"
	"journeyrewards/internal/handlers/api/v1/rewards"
	"journeyrewards/internal/middleware"
	"journeyrewards/internal/notifications"
	"journeyrewards/internal/response"
	"journeyrewards/internal/services"
)

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(serviceCollection *services.ServiceCollection, hub *notifications.Hub, responseBuilder *response.Builder, logger *zap.Logger) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		responseBuilder.WriteError(w, req, services.NewNotFoundError("route not found", nil))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		responseBuilder.WriteError(w, req, services.NewMethodNotAllowedError(req.Method))
	})

	r.HandleFunc("/health", healthHandler(serviceCollection, responseBuilder)).Methods(http.MethodGet)

	// ===============================
	// API DOCS
	// ===============================

	r.HandleFunc("/swagger/doc.json", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(docs.SwaggerJSON)
	}).Methods(http.MethodGet)
	r.Handle("/swagger", http.RedirectHandler("/swagger/", http.StatusMovedPermanently))
	r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	pointsController := points.NewPointsController(serviceCollection, logger, responseBuilder)
	rewardsController := rewards.NewRewardsController(serviceCollection, hub, logger, responseBuilder)

	// ===============================
	// POINTS
	// ===============================

	p := r.PathPrefix("/points").Subrouter()
	p.HandleFunc("/rules", pointsController.GetRules).Methods(http.MethodGet)
	p.HandleFunc("/leaderboard", pointsController.GetLeaderboard).Methods(http.MethodGet)
	p.HandleFunc("/history/{userId:[0-9]+}", pointsController.GetHistory).Methods(http.MethodGet)
	p.HandleFunc("/stats/{userId:[0-9]+}", pointsController.GetStats).Methods(http.MethodGet)
	p.HandleFunc("/reconcile/{userId:[0-9]+}", pointsController.Reconcile).Methods(http.MethodGet)
	p.HandleFunc("/award/{userId:[0-9]+}", pointsController.Award).Methods(http.MethodPost)
	p.HandleFunc("/checkin/{userId:[0-9]+}", pointsController.CheckIn).Methods(http.MethodPost)

	// ===============================
	// REWARDS
	// ===============================

	rw := r.PathPrefix("/rewards").Subrouter()
	rw.HandleFunc("/badges", rewardsController.GetCatalog).Methods(http.MethodGet)
	rw.HandleFunc("/user/{userId:[0-9]+}", rewardsController.GetUserBadges).Methods(http.MethodGet)
	rw.HandleFunc("/user/{userId:[0-9]+}/pending", rewardsController.GetPending).Methods(http.MethodGet)
	rw.HandleFunc("/user/{userId:[0-9]+}/ack", rewardsController.Acknowledge).Methods(http.MethodPost)
	rw.HandleFunc("/check/{userId:[0-9]+}", rewardsController.Check).Methods(http.MethodPost)
	rw.HandleFunc("/repair/{userId:[0-9]+}", rewardsController.Repair).Methods(http.MethodPost)

	r.HandleFunc("/ws/notifications/{userId:[0-9]+}", rewardsController.Notifications).Methods(http.MethodGet)

	// RequestID runs first so every log line and error body carries the ID
	var handler http.Handler = r
	handler = middleware.Recovery(responseBuilder, logger)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(logger)(handler)

	logger.Info("Router setup completed")
	return handler
}

func healthHandler(serviceCollection *services.ServiceCollection, responseBuilder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := serviceCollection.HealthCheck(r.Context())
		status := http.StatusOK
		if health.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		resp := responseBuilder.Success(r.Context(), health)
		resp.Success = status == http.StatusOK
		responseBuilder.WriteJSON(w, r, resp, status)
	}
}
