package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/equipqr/equipqr-backend/api/controllers"
	"github.com/equipqr/equipqr-backend/api/middleware"
	compatsvc "github.com/equipqr/equipqr-backend/internal/compat"
	costsvc "github.com/equipqr/equipqr-backend/internal/costs"
	imagesvc "github.com/equipqr/equipqr-backend/internal/images"
	inventorysvc "github.com/equipqr/equipqr-backend/internal/inventory"
	qbsvc "github.com/equipqr/equipqr-backend/internal/quickbooks"
	"github.com/equipqr/equipqr-backend/pkg/auth/session"
	"github.com/equipqr/equipqr-backend/pkg/config"
	"github.com/equipqr/equipqr-backend/pkg/enums"
	"github.com/equipqr/equipqr-backend/pkg/logger"
	"github.com/equipqr/equipqr-backend/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Inventory  inventorysvc.Service
	Costs      costsvc.Service
	Compat     compatsvc.Service
	Images     imagesvc.Service
	QuickBooks qbsvc.Service
}

// Dependencies carries the infrastructure handles the router needs beyond
// the domain services: health probes, the idempotency store, and the
// membership checker backing role enforcement.
type Dependencies struct {
	DB      controllers.Pinger
	Redis   *redis.Client
	Storage controllers.Pinger
	PubSub  controllers.Pinger

	Sessions         session.AccessSessionChecker
	SessionLifecycle controllers.SessionRotator
	Members          middleware.MembershipChecker
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies, svcs Services) http.Handler {
	r := chi.NewRouter()

	// A typed-nil *redis.Client must not leak into the interfaces below.
	var redisProbe controllers.Pinger
	var idemStore redis.IdempotencyStore
	var limiter middleware.RateLimiter
	if deps.Redis != nil {
		redisProbe = deps.Redis
		idemStore = deps.Redis
		limiter = deps.Redis
	}

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisProbe, deps.Storage, deps.PubSub))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api/public/ping", controllers.PublicPing())

	// Intuit redirects the browser here; identity rides in the single-use
	// state session, so no bearer token is available on this request.
	r.Get("/api/v1/quickbooks/callback", controllers.QuickBooksCallback(svcs.QuickBooks, logg))

	// Refresh authenticates with the refresh token itself; the access token in
	// the body may already be expired.
	r.Post("/api/v1/auth/refresh", controllers.AuthRefresh(cfg.JWT, deps.SessionLifecycle, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.Idempotency(idemStore, logg))
		r.Use(middleware.OrgContext(logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Post("/v1/auth/logout", controllers.AuthLogout(deps.SessionLifecycle, logg))

		writers := middleware.RequireOrgRoles(deps.Members, logg,
			enums.MemberRoleOwner, enums.MemberRoleAdmin, enums.MemberRoleManager)
		operators := middleware.RequireOrgRoles(deps.Members, logg,
			enums.MemberRoleOwner, enums.MemberRoleAdmin, enums.MemberRoleManager, enums.MemberRoleTechnician)
		admins := middleware.RequireOrgRoles(deps.Members, logg,
			enums.MemberRoleOwner, enums.MemberRoleAdmin)

		r.Route("/v1/inventory", func(r chi.Router) {
			r.Get("/items", controllers.InventoryList(svcs.Inventory, logg))
			r.With(writers).Post("/items", controllers.InventoryCreate(svcs.Inventory, logg))
			r.Get("/transactions", controllers.InventoryTransactions(svcs.Inventory, logg))
			r.Get("/storage-usage", controllers.ImagesUsage(svcs.Images, logg))

			r.Route("/items/{itemId}", func(r chi.Router) {
				r.Get("/", controllers.InventoryGet(svcs.Inventory, logg))
				r.With(writers).Patch("/", controllers.InventoryUpdate(svcs.Inventory, logg))
				r.With(writers).Delete("/", controllers.InventoryDelete(svcs.Inventory, logg))
				r.With(operators).Post("/adjust", controllers.InventoryAdjust(svcs.Inventory, logg))
				r.Get("/transactions", controllers.InventoryTransactions(svcs.Inventory, logg))

				r.Get("/images", controllers.ImagesList(svcs.Images, logg))
				r.With(operators).Post("/images", controllers.ImagesUpload(svcs.Images, logg))
			})

			r.With(operators).Delete("/images/{imageId}", controllers.ImageDelete(svcs.Images, logg))
		})

		r.Get("/v1/work-orders/{workOrderId}/costs", controllers.CostListForWorkOrder(svcs.Costs, logg))
		r.With(operators).Post("/v1/work-orders/{workOrderId}/costs", controllers.CostCreate(svcs.Costs, logg))

		r.Route("/v1/costs", func(r chi.Router) {
			r.Get("/", controllers.CostList(svcs.Costs, logg))
			r.Get("/summary", controllers.CostSummary(svcs.Costs, logg))
			r.With(operators).Patch("/{costId}", controllers.CostUpdate(svcs.Costs, logg))
			r.With(operators).Delete("/{costId}", controllers.CostDelete(svcs.Costs, logg))
		})

		r.Route("/v1/compatibility", func(r chi.Router) {
			r.Get("/parts", controllers.CompatibleParts(svcs.Compat, logg))
			r.With(writers).Post("/links", controllers.CompatAddLink(svcs.Compat, logg))
			r.With(writers).Post("/rules", controllers.CompatAddRule(svcs.Compat, logg))
		})

		// The OAuth and export routes talk to Intuit; keep burst traffic from
		// a single tenant away from their API quotas.
		connectLimit := middleware.RateLimit(limiter, "qb_connect", 10, time.Minute, logg)
		exportLimit := middleware.RateLimit(limiter, "qb_export", 30, time.Minute, logg)

		r.Route("/v1/quickbooks", func(r chi.Router) {
			r.Get("/status", controllers.QuickBooksStatus(svcs.QuickBooks, logg))
			r.With(admins, connectLimit).Post("/connect", controllers.QuickBooksConnect(svcs.QuickBooks, logg))
			r.With(admins).Delete("/connection", controllers.QuickBooksDisconnect(svcs.QuickBooks, logg))
			r.With(admins, exportLimit).Post("/export-invoice", controllers.QuickBooksExport(svcs.QuickBooks, logg))
		})
	})

	return r
}
