package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v82"

	"autorenta/internal/api"
	"autorenta/internal/auth"
	"autorenta/internal/repository"
	"autorenta/internal/service"
)

const requestTimeout = 10 * time.Second

func main() {
	godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	userRepo := repository.NewUserRepository(db)
	carRepo := repository.NewCarRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	jobRepo := repository.NewJobRepository(db)

	authSvc := service.NewAuthService(userRepo)
	carSvc := service.NewCarService(carRepo, userRepo, reservationRepo)
	adminSvc := service.NewAdminService(userRepo)
	reviewSvc := service.NewReviewService(reviewRepo, carRepo)
	jobSvc := service.NewJobService(jobRepo)

	reservationSvc := service.NewReservationService(reservationRepo, carRepo)
	reservationSvc.Notifier = service.NewNotifyService(userRepo)
	reservationSvc.Refunds = service.NewStripeService()
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		events, err := service.NewEventService(amqpURL)
		if err != nil {
			log.Fatalf("Failed to connect to AMQP: %v", err)
		}
		defer events.Close()
		reservationSvc.Events = events
	}

	authHandler := api.NewAuthHandler(authSvc)
	carHandler := api.NewCarHandler(carSvc)
	reservationHandler := api.NewReservationHandler(reservationSvc)
	adminHandler := api.NewAdminHandler(adminSvc, reservationSvc)
	reviewHandler := api.NewReviewHandler(reviewSvc)

	r := mux.NewRouter()
	r.Use(timeoutMiddleware)

	// Public endpoints
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/cars", carHandler.SearchCars).Methods("GET")
	r.HandleFunc("/api/cars/{id}", carHandler.GetCar).Methods("GET")
	r.HandleFunc("/api/cars/{id}/reviews", reviewHandler.ListCarReviews).Methods("GET")
	r.HandleFunc("/api/availability", reservationHandler.CheckAvailability).Methods("POST")

	// Authenticated endpoints
	user := r.PathPrefix("/api").Subrouter()
	user.Use(auth.Middleware)
	user.HandleFunc("/cars", carHandler.CreateCar).Methods("POST")
	user.HandleFunc("/cars/{id}", carHandler.UpdateCar).Methods("PUT")
	user.HandleFunc("/cars/{id}", carHandler.DeleteCar).Methods("DELETE")
	user.HandleFunc("/reviews", reviewHandler.CreateReview).Methods("POST")
	user.HandleFunc("/reservations", reservationHandler.CreateReservation).Methods("POST")
	user.HandleFunc("/reservations/{id}", reservationHandler.GetReservation).Methods("GET")
	user.HandleFunc("/reservations/{id}/status", reservationHandler.UpdateStatus).Methods("PUT")
	user.HandleFunc("/reservations/{id}/cancellation", reservationHandler.RequestCancellation).Methods("POST")
	user.HandleFunc("/users/{id}/reservations", reservationHandler.ListCustomerReservations).Methods("GET")

	// Admin endpoints (role checked in the services)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.Middleware)
	admin.HandleFunc("/users", adminHandler.ListUsers).Methods("GET")
	admin.HandleFunc("/users/{id}/validate", adminHandler.ValidateAgency).Methods("PUT")
	admin.HandleFunc("/reservations", adminHandler.ListReservations).Methods("GET")
	admin.HandleFunc("/reservations/{id}/cancellation/reject", adminHandler.RejectCancellation).Methods("POST")

	c := cron.New()
	if _, err := c.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := jobSvc.CompleteFinishedReservations(ctx); err != nil {
			log.Printf("completion job: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule completion job: %v", err)
	}
	c.Start()
	defer c.Stop()

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, cors(r)))
}

// timeoutMiddleware bounds every store call made on behalf of a request.
func timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
