package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/finance-ledger/internal/account"
	"github.com/dvloznov/finance-ledger/internal/analytics"
	"github.com/dvloznov/finance-ledger/internal/api/handlers"
	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/category"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
	"github.com/dvloznov/finance-ledger/internal/store/postgres"
	"github.com/dvloznov/finance-ledger/internal/user"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Pick the store. Without DATABASE_URL everything lives in memory and
	// disappears on restart, which is only useful for local development.
	var (
		uow               ledger.UnitOfWork
		accountStore      account.Store
		categoryStore     category.Store
		userStore         user.Store
		transactionReader ledger.TransactionStore
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Postgres")
		}
		defer pg.Close()

		uow = pg
		accountStore = pg.Accounts()
		categoryStore = pg.Categories()
		userStore = pg.Users()
		transactionReader = pg.Transactions()
		log.Info().Msg("Using Postgres store")
	} else {
		mem := memory.New()
		uow = mem
		accountStore = mem.Accounts()
		categoryStore = mem.Categories()
		userStore = mem.Users()
		transactionReader = mem.Transactions()
		log.Warn().Msg("No DATABASE_URL configured - using in-memory store, data will not survive restarts")
	}

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	// The warehouse exporter is optional; without a project the queue still
	// runs so the ledger's publishes never block, jobs just complete as no-ops.
	var jobHandler jobs.JobHandler
	if cfg.BQProject != "" {
		exporter, err := analytics.NewExporter(ctx, cfg.BQProject, cfg.BQDataset, transactionReader, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create warehouse exporter")
		}
		defer exporter.Close()

		jobHandler = exporter.Handle
		log.Info().Str("project", cfg.BQProject).Str("dataset", cfg.BQDataset).Msg("Warehouse export enabled")
	} else {
		jobHandler = func(ctx context.Context, job jobs.Job) error {
			log.Debug().Str("job_id", job.GetID()).Msg("Warehouse export disabled, dropping job")
			return nil
		}
		log.Warn().Msg("No BQ_PROJECT configured - warehouse export is disabled")
	}

	go func() {
		log.Info().Msg("Starting export worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Export worker stopped with error")
		}
	}()

	// Initialize services
	ledgerSvc := ledger.NewService(uow, transactionReader, jobQueue, log)
	accountSvc := account.NewService(accountStore, log)
	categorySvc := category.NewService(categoryStore, log)
	userSvc := user.NewService(userStore, []byte(cfg.JWTSecret), cfg.TokenTTL, log)

	// Initialize handlers
	usersHandler := handlers.NewUsersHandler(userSvc, log)
	accountsHandler := handlers.NewAccountsHandler(accountSvc, log)
	categoriesHandler := handlers.NewCategoriesHandler(categorySvc, log)
	transactionsHandler := handlers.NewTransactionsHandler(ledgerSvc, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Create router. Registration and login are public; everything else
	// requires a bearer token.
	authed := middleware.Auth([]byte(cfg.JWTSecret))

	mux := http.NewServeMux()

	// Users endpoints
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			usersHandler.Register(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/users/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			usersHandler.Login(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Accounts endpoints
	mux.Handle("/api/accounts", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.ListAccounts(w, r)
		case http.MethodPost:
			accountsHandler.CreateAccount(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/accounts/total-balance", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			accountsHandler.TotalBalance(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/accounts/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := strings.TrimPrefix(r.URL.Path, "/api/accounts/")
		if accountID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Account ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			accountsHandler.GetAccount(w, r, accountID)
		case http.MethodPut:
			accountsHandler.UpdateAccount(w, r, accountID)
		case http.MethodDelete:
			accountsHandler.DeleteAccount(w, r, accountID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Categories endpoints
	mux.Handle("/api/categories", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			categoriesHandler.ListCategories(w, r)
		case http.MethodPost:
			categoriesHandler.CreateCategory(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/categories/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		categoryID := strings.TrimPrefix(r.URL.Path, "/api/categories/")
		if categoryID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Category ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			categoriesHandler.GetCategory(w, r, categoryID)
		case http.MethodPut:
			categoriesHandler.UpdateCategory(w, r, categoryID)
		case http.MethodDelete:
			categoriesHandler.DeleteCategory(w, r, categoryID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Transactions endpoints
	mux.Handle("/api/transactions", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/transactions/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transactionID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
		if transactionID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
			return
		}
		switch r.Method {
		case http.MethodPut:
			transactionsHandler.UpdateTransaction(w, r, transactionID)
		case http.MethodDelete:
			transactionsHandler.DeleteTransaction(w, r, transactionID)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Jobs endpoints
	mux.Handle("/api/jobs", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	mux.Handle("/api/jobs/", authed(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Server exited")
}
