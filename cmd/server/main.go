package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/ecomstack/notification-service/internal/auth"
	"github.com/ecomstack/notification-service/internal/config"
	"github.com/ecomstack/notification-service/internal/db"
	mw "github.com/ecomstack/notification-service/internal/middleware"
	"github.com/ecomstack/notification-service/internal/notifications"
	"github.com/ecomstack/notification-service/internal/orders"
	"github.com/ecomstack/notification-service/internal/ws"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	// Two independent databases: notifications (owned here) and orders
	// (owned by the order service). There is no transaction spanning them.
	notifDB, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("notifications database connection failed: %v", err)
	}
	defer notifDB.Close()

	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Printf("WARNING: migrations failed: %v", err)
	}

	ordersDB, err := db.Connect(ctx, cfg.OrdersDatabaseURL)
	if err != nil {
		log.Fatalf("orders database connection failed: %v", err)
	}
	defer ordersDB.Close()

	jwtService := auth.NewJWTService(cfg.JWTSecret)

	// Broadcast hub: constructed and started here, passed by reference to
	// everything that publishes.
	hub := ws.NewHub()
	if err := hub.Start(); err != nil {
		log.Fatalf("hub start failed: %v", err)
	}
	wsHandler := ws.NewWSHandler(hub, jwtService)

	notifStore := notifications.NewNotificationStore(notifDB.Pool)
	orderStore := orders.NewStore(ordersDB.Pool)
	orderEvents := notifications.NewOrderEventHandler(notifStore, orderStore, hub)

	brokers := splitBrokers(cfg.KafkaBrokers)
	if err := notifications.EnsureTopics(brokers, cfg.KafkaTopic, "user-registered"); err != nil {
		log.Printf("WARNING: topic provisioning failed: %v", err)
	}

	consumer, err := notifications.NewConsumer(notifications.ConsumerConfig{
		Brokers:        brokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumerGroup,
		StartOffset:    cfg.KafkaStartOffset,
		CommitInterval: cfg.KafkaCommitInterval,
	}, orderEvents)
	if err != nil {
		log.Fatalf("consumer setup failed: %v", err)
	}
	consumer.Start()

	// Router
	r := mux.NewRouter()
	r.Use(mw.RateLimitMiddleware(100, 200))
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)

	protected := r.PathPrefix("").Subrouter()
	protected.Use(mw.AuthMiddleware(jwtService))

	notifHandlers := notifications.NewHandlers(notifStore, hub)
	notifHandlers.RegisterRoutes(r, protected)
	wsHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        corsMiddleware(r),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	// Graceful shutdown: drain the consumer first so in-flight handler
	// sequences finish, then stop the HTTP server.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Println("Shutting down...")
		if err := consumer.Stop(); err != nil {
			log.Printf("WARNING: consumer shutdown: %v", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Server shutdown failed: %v", err)
		}
	}()

	log.Printf("Notification service listening on :%s", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}

	log.Println("Server stopped")
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// corsMiddleware wraps the whole router so OPTIONS preflight requests are
// answered before mux routing (which would 404 on OPTIONS).
func corsMiddleware(next http.Handler) http.Handler {
	allowed := os.Getenv("ALLOWED_ORIGINS")
	if allowed == "" {
		allowed = "http://localhost:3000"
	}
	origins := strings.Split(allowed, ",")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, o := range origins {
			if strings.EqualFold(strings.TrimSpace(o), origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
				break
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
