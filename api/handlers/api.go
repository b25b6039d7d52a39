package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/safekid-nepal/safekid-api/api"
	"github.com/safekid-nepal/safekid-api/api/scheduler"
	"github.com/safekid-nepal/safekid-api/config"
	"github.com/safekid-nepal/safekid-api/databases"
	"github.com/safekid-nepal/safekid-api/geocoding"
	"github.com/safekid-nepal/safekid-api/localcache"
	"github.com/safekid-nepal/safekid-api/logging"
	"github.com/safekid-nepal/safekid-api/markers"
	"github.com/safekid-nepal/safekid-api/media"
	"github.com/safekid-nepal/safekid-api/models"
	"github.com/safekid-nepal/safekid-api/notify"
	"github.com/safekid-nepal/safekid-api/payment"
	"github.com/safekid-nepal/safekid-api/reports"
	"github.com/safekid-nepal/safekid-api/session"
	"github.com/safekid-nepal/safekid-api/workflow"
)

// metricsTraces is how many recent request traces are kept
const metricsTraces = 10000

// App stores the router and every service, so each is built once and shared
type App struct {
	Router  *mux.Router
	Config  config.Config
	Guard   *api.Guard
	Metrics *api.MetricsCollector
	Map     http.Handler

	Auth   Auth
	User   User
	Report Report
	Admin  Admin
	Places Places
	Media  Media

	client    databases.ClientHelper
	cache     *localcache.Cache
	sessions  *session.Store
	reports   *reports.Repository
	hub       *markers.Hub
	scheduler *scheduler.Scheduler
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()
	if a.Metrics != nil {
		r.Use(a.Metrics.Middleware)
	}

	// healthchex
	r.HandleFunc("/health", api.HealthCheckHandler)
	if a.Map != nil {
		r.Handle("/ws/map", a.Map).Methods("GET")
	}

	timeout := a.Config.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	withTimeout := api.TimeoutMiddleware(timeout)
	auth := func(h http.HandlerFunc) http.Handler { return withTimeout(a.Guard.Middleware(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return withTimeout(a.Guard.AdminOnly(h)) }

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/auth/signup", withTimeout(http.HandlerFunc(a.Auth.SignUpHandler))).Methods("POST")
	apiCreate.Handle("/auth/token", auth(a.Auth.CreateTokenHandler)).Methods("POST")
	apiCreate.Handle("/auth/logout", auth(a.Auth.LogoutHandler)).Methods("DELETE")
	apiCreate.Handle("/auth/session", withTimeout(http.HandlerFunc(a.Auth.SessionHandler))).Methods("GET")

	apiCreate.Handle("/user", auth(a.User.UserHandler)).Methods("GET")
	apiCreate.Handle("/user/tokens", auth(a.User.UpdateTokensHandler)).Methods("PUT")

	apiCreate.Handle("/reports", auth(a.Report.ReportsHandler)).Methods("GET")
	apiCreate.Handle("/reports", auth(a.Report.CreateReportHandler)).Methods("POST")
	apiCreate.Handle("/reports/active", auth(a.Report.ActiveReportsHandler)).Methods("GET")
	apiCreate.Handle("/reports/mine", auth(a.Report.MyReportsHandler)).Methods("GET")
	apiCreate.Handle("/reports/quote", auth(a.Report.QuoteHandler)).Methods("POST")
	apiCreate.Handle("/reports/{report_id}", auth(a.Report.ReportByIDHandler)).Methods("GET")
	apiCreate.Handle("/reports/{report_id}/sightings", auth(a.Report.CreateSightingHandler)).Methods("POST")

	apiCreate.Handle("/admin/stats", admin(a.Admin.StatsHandler)).Methods("GET")
	apiCreate.Handle("/admin/metrics", admin(a.Admin.MetricsHandler)).Methods("GET")
	apiCreate.Handle("/admin/reports/reload", admin(a.Admin.ReloadHandler)).Methods("POST")
	apiCreate.Handle("/admin/reports/{report_id}/found", admin(a.Admin.MarkFoundHandler)).Methods("PUT")
	apiCreate.Handle("/admin/reports/{report_id}/close", admin(a.Admin.CloseHandler)).Methods("PUT")
	apiCreate.Handle("/admin/reports/{report_id}/focus", admin(a.Admin.FocusHandler)).Methods("PUT")
	apiCreate.Handle("/admin/reports/{report_id}/reward", admin(a.Admin.RewardHandler)).Methods("GET")
	apiCreate.Handle("/admin/reports/{report_id}/sightings/{sighting_id}/verify", admin(a.Admin.VerifySightingHandler)).Methods("PUT")

	apiCreate.Handle("/places/search", auth(a.Places.SearchHandler)).Methods("GET")
	apiCreate.Handle("/places/resolve", auth(a.Places.ResolveHandler)).Methods("GET")

	apiCreate.Handle("/media/upload", auth(a.Media.UploadHandler)).Methods("POST")

	return r
}

// Initialize is invoked by main to connect with the database, build every
// service once and create the router. ctx bounds the lifetime of the
// background caches.
func (a *App) Initialize(ctx context.Context) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().Errorw("failed to create new client", "error", err)
		return err
	}
	if err := client.Connect(ctx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().Errorw("failed to connect to database", "error", err)
		return err
	}
	a.client = client
	db := databases.NewDatabase(&a.Config, client)
	zap.S().Info("safekid-api has connected to the database")

	a.cache, err = localcache.New(ctx, a.Config.LocalCachePath)
	if err != nil {
		zap.S().Errorw("failed to open local cache", "path", a.Config.LocalCachePath, "error", err)
		return err
	}

	recipients := config.DefaultRecipients
	if a.Config.RecipientsFile != "" {
		recipients, err = config.LoadRecipients(a.Config.RecipientsFile)
		if err != nil {
			return fmt.Errorf("load alert recipients: %w", err)
		}
	}

	if a.Config.JWTSecret == "" {
		return fmt.Errorf("jwt secret is not set")
	}
	a.sessions = session.NewStore(
		databases.NewIdentityDatabase(db),
		databases.NewUserDatabase(db),
		a.cache,
		a.Config.JWTSecret,
		a.Config.TokenTTL,
		logging.Named("session"),
	)

	var mailer notify.Mailer
	if a.Config.SendGridAPIKey != "" {
		mailer = notify.NewSendGridMailer(a.Config.SendGridAPIKey, a.Config.MailFromName, a.Config.MailFromEmail)
	}
	dispatcher := notify.NewDispatcher(
		notify.NewSMSClient(a.Config.SMSGatewayURL, a.Config.SMSToken, a.Config.SMSFrom),
		mailer,
		recipients,
		logging.Named("notify"),
	)

	a.reports = reports.New(reports.Config{
		Reports:   databases.NewReportDatabase(db),
		Sightings: databases.NewSightingDatabase(db),
		Notifier:  dispatcher,
		Tokens:    a.sessions,
		Snapshots: a.cache,
		Log:       logging.Named("reports"),
	})

	simulator := payment.NewSimulator(a.Config.PaymentDelay, a.Config.PaymentFailureRate, logging.Named("payment"))
	processor := payment.NewProcessor(databases.NewPaymentDatabase(db), logging.Named("payment")).
		Register(models.MethodEsewa, simulator).
		Register(models.MethodKhalti, simulator)
	if a.Config.StripeSecretKey != "" {
		processor.Register(models.MethodCard, payment.NewStripeGateway(a.Config.StripeSecretKey, logging.Named("stripe")))
	} else {
		zap.S().Warn("stripe secret key is not set, card payments are disabled")
	}

	geocoder := geocoding.New(a.Config.GeocodingBaseURL, a.Config.GeocodingAPIKey, logging.Named("geocoding"))
	flows := workflow.New(a.reports, a.sessions, processor, geocoder, logging.Named("workflow"))

	a.hub = markers.NewHub(logging.Named("markers"))
	markerSync := markers.NewSync(a.hub)
	a.reports.Subscribe(markerSync.OnEvent)
	a.Map = a.hub

	if a.Config.CloudinaryURL != "" {
		uploader, err := media.NewCloudinaryUploader(a.Config.CloudinaryURL, a.Config.CloudinaryFolder)
		if err != nil {
			return fmt.Errorf("configure cloudinary: %w", err)
		}
		var shortener media.Shortener
		if a.Config.BitlyToken != "" {
			shortener = media.NewBitlyShortener(a.Config.BitlyURL, a.Config.BitlyToken)
		}
		a.Media = Media{Uploader: media.NewService(uploader, shortener, logging.Named("media"))}
	} else {
		zap.S().Warn("cloudinary url is not set, photo uploads are disabled")
	}

	a.Metrics = api.NewMetrics(ctx, metricsTraces)
	a.Guard = api.NewGuard(ctx, a.sessions, a.Config.TokenTTL)

	a.Auth = Auth{Accounts: a.sessions, Guard: a.Guard}
	a.User = User{Balances: a.sessions}
	a.Report = Report{Reports: a.reports, Flows: flows, Profiles: a.sessions}
	a.Admin = Admin{Reports: a.reports, Map: markerSync, Metrics: a.Metrics}
	a.Places = Places{Finder: geocoder}

	a.scheduler = scheduler.NewScheduler(a.reports, a.sessions, a.Config.ReloadSchedule, logging.Named("scheduler"))

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

// Start restores cached sessions, loads the report collection and starts the
// scheduler. A failed report load is served from the local snapshot and does
// not stop the start.
func (a *App) Start(ctx context.Context) error {
	n, err := a.sessions.Warm(ctx)
	if err != nil {
		zap.S().Errorw("failed to restore cached sessions", "error", err)
	} else {
		zap.S().Infow("restored cached sessions", "count", n)
	}

	loadCtx, cancel := api.WithQueryTimeout(ctx)
	defer cancel()
	if err := a.reports.Load(loadCtx); err != nil {
		zap.S().Warnw("starting with offline report snapshot", "error", err)
	}

	return a.scheduler.Start()
}

// Close stops the background work and releases the stores
func (a *App) Close(ctx context.Context) {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.reports != nil {
		a.reports.Snapshot(ctx)
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			zap.S().Errorw("failed to close local cache", "error", err)
		}
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Errorw("failed to disconnect from database", "error", err)
		}
	}
}
