package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/cleanpath/cleanpath-api/api"
	"github.com/cleanpath/cleanpath-api/config"
	"github.com/cleanpath/cleanpath-api/databases"
	"github.com/cleanpath/cleanpath-api/models"
	"github.com/cleanpath/cleanpath-api/services"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router   *mux.Router
	Config   config.Config
	client   databases.ClientHelper
	dbHelper databases.DatabaseHelper
}

// Initialize wires the services on top of a connected client and builds the
// router. ctx bounds background work such as the token cache.
func (a *App) Initialize(ctx context.Context, client databases.ClientHelper) error {
	a.client = client
	a.dbHelper = databases.NewDatabase(&a.Config, client)

	ictx, cancel := api.WithQueryTimeout(ctx)
	defer cancel()
	if err := databases.EnsureIndexes(ictx, a.dbHelper); err != nil {
		zap.S().Errorw("failed to ensure indexes", "error", err)
		return err
	}

	resolver, err := a.resolver()
	if err != nil {
		zap.S().Errorw("failed to load area mapping", "file", a.Config.AreaWMAFile, "error", err)
		return err
	}

	a.Router = a.New(ctx, resolver)
	return nil
}

// resolver prefers the explicit area mapping file and falls back to matching
// area names against the authority directory
func (a *App) resolver() (services.WMAResolver, error) {
	nameMatch := &services.NameMatchResolver{WMAs: databases.NewWMADatabase(a.dbHelper)}
	if a.Config.AreaWMAFile == "" {
		return nameMatch, nil
	}
	mapping, err := services.LoadMappingResolver(a.Config.AreaWMAFile)
	if err != nil {
		return nil, err
	}
	return services.ChainResolver{mapping, nameMatch}, nil
}

// New creates a new mux router and all the routes
func (a *App) New(ctx context.Context, resolver services.WMAResolver) *mux.Router {
	authn := api.NewAuthenticator(ctx, api.JWTVerifier{Secret: []byte(a.Config.JWTSecret)}, a.Config.TokenCacheTTL)

	var gateway services.PaymentGateway
	if a.Config.StripeSecretKey != "" {
		gateway = services.NewStripeGateway(a.Config.StripeSecretKey, a.Config.StripeCurrency, a.Config.StripeSuccessURL, a.Config.StripeCancelURL)
	} else {
		zap.S().Warn("STRIPE_SECRET_KEY is not set, checkout is disabled")
	}

	areas := databases.NewAreaDatabase(a.dbHelper)
	bins := databases.NewBinDatabase(a.dbHelper)

	ledger := services.NewLedgerService(databases.NewTransactionDatabase(a.dbHelper), gateway)
	notifier := services.NewNotificationService(databases.NewNotificationDatabase(a.dbHelper))
	garbageSvc := services.NewGarbageService(databases.NewGarbageDatabase(a.dbHelper), areas, ledger, a.Config.CollectorFrontendURL)
	scheduleSvc := services.NewScheduleService(
		databases.NewScheduleDatabase(a.dbHelper),
		bins,
		databases.NewCollectorDatabase(a.dbHelper),
		databases.NewSmartDeviceDatabase(a.dbHelper),
		garbageSvc,
		notifier,
	)
	binSvc := services.NewBinService(bins, areas, resolver, scheduleSvc, ledger)

	b := Bin{Service: binSvc}
	g := Garbage{Service: garbageSvc}
	s := Schedule{Service: scheduleSvc}
	n := Notification{Service: notifier}
	t := Transaction{Service: ledger}
	u := Upload{
		CloudName:    a.Config.CloudinaryCloudName,
		APIKey:       a.Config.CloudinaryAPIKey,
		APISecret:    a.Config.CloudinaryAPISecret,
		UploadPreset: a.Config.CloudinaryUploadPreset,
	}

	var pinger api.Pinger
	if a.client != nil {
		pinger = a.client
	}
	r := api.New(pinger)

	// guard authenticates the caller and, when kinds are given, checks the role
	guard := func(h http.HandlerFunc, kinds ...models.ActorKind) http.Handler {
		var next http.Handler = h
		if len(kinds) > 0 {
			next = api.RequireRole(kinds...)(next)
		}
		return authn.Middleware(next)
	}
	user, collector, wma, admin := models.ActorUser, models.ActorCollector, models.ActorWMA, models.ActorAdmin

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	apiCreate.Handle("/bins", guard(b.CreateBinHandler, user)).Methods("POST")
	apiCreate.Handle("/bins/mine", guard(b.MyBinsHandler, user)).Methods("GET")
	apiCreate.Handle("/bins/urgent", guard(b.UrgentBinsHandler, wma)).Methods("GET")
	apiCreate.Handle("/bins/wma", guard(b.WMABinsHandler, wma)).Methods("GET")
	apiCreate.Handle("/bins/admin", guard(b.ForwardedBinsHandler, admin)).Methods("GET")
	apiCreate.Handle("/bins/{bin_id}/level", guard(b.UpdateBinLevelHandler)).Methods("PUT")
	apiCreate.Handle("/bins/{bin_id}/collect", guard(b.CollectBinHandler, collector)).Methods("POST")
	apiCreate.Handle("/bins/{bin_id}/forward", guard(b.ForwardBinHandler, wma)).Methods("POST")
	apiCreate.Handle("/bins/{bin_id}", guard(b.DeleteBinHandler, user, admin)).Methods("DELETE")

	apiCreate.Handle("/garbage", guard(g.CreateGarbageHandler, user)).Methods("POST")
	apiCreate.Handle("/garbage", guard(g.GarbageHandler, admin, wma)).Methods("GET")
	apiCreate.Handle("/garbage/mine", guard(g.MyGarbageHandler, user)).Methods("GET")
	apiCreate.Handle("/garbage/area/{area_id}", guard(g.GarbageByAreaHandler)).Methods("GET")
	apiCreate.Handle("/garbage/{garbage_id}/scan", guard(g.ScanGarbageHandler, collector)).Methods("POST")
	apiCreate.Handle("/garbage/{garbage_id}/qr", guard(g.GarbageQRHandler)).Methods("GET")
	apiCreate.Handle("/garbage/{garbage_id}", guard(g.GarbageByIDHandler)).Methods("GET")
	apiCreate.Handle("/garbage/{garbage_id}", guard(g.UpdateGarbageStatusHandler, admin, wma)).Methods("PUT")
	apiCreate.Handle("/garbage/{garbage_id}", guard(g.DeleteGarbageHandler, user, admin)).Methods("DELETE")

	apiCreate.Handle("/schedules", guard(s.CreateScheduleHandler, admin)).Methods("POST")
	apiCreate.Handle("/schedules", guard(s.ScheduleHandler, admin)).Methods("GET")
	apiCreate.Handle("/schedules/wma", guard(s.CreateWMAScheduleHandler, wma)).Methods("POST")
	apiCreate.Handle("/schedules/collector", guard(s.CollectorSchedulesHandler, collector)).Methods("GET")
	apiCreate.Handle("/schedules/wma/me", guard(s.WMASchedulesHandler, wma)).Methods("GET")
	apiCreate.Handle("/schedules/wma/{wma_id}", guard(s.WMASchedulesHandler, admin)).Methods("GET")
	apiCreate.Handle("/schedules/{schedule_id}/complete", guard(s.CompleteScheduleHandler, collector)).Methods("POST")
	apiCreate.Handle("/schedules/{schedule_id}", guard(s.ScheduleByIDHandler)).Methods("GET")
	apiCreate.Handle("/schedules/{schedule_id}", guard(s.UpdateScheduleHandler, admin)).Methods("PUT")
	apiCreate.Handle("/schedules/{schedule_id}", guard(s.DeleteScheduleHandler, admin)).Methods("DELETE")

	apiCreate.Handle("/notifications/me", guard(n.MyNotificationsHandler)).Methods("GET")
	apiCreate.Handle("/notifications/{notification_id}/read", guard(n.MarkNotificationReadHandler)).Methods("PATCH")
	apiCreate.Handle("/notifications/{notification_id}", guard(n.DeleteNotificationHandler)).Methods("DELETE")

	apiCreate.Handle("/transactions", guard(t.TransactionHandler, admin)).Methods("GET")
	apiCreate.Handle("/transactions", guard(t.CreateTransactionHandler, admin)).Methods("POST")
	apiCreate.Handle("/transactions/mine", guard(t.MyTransactionsHandler, user)).Methods("GET")
	apiCreate.Handle("/transactions/{transaction_id}/checkout", guard(t.CheckoutTransactionHandler, user)).Methods("POST")
	apiCreate.Handle("/transactions/{transaction_id}", guard(t.TransactionByIDHandler)).Methods("GET")
	apiCreate.Handle("/transactions/{transaction_id}", guard(t.UpdateTransactionHandler, admin)).Methods("PUT")

	apiCreate.Handle("/uploads/signature", guard(u.SignatureHandler)).Methods("POST")

	return r
}
