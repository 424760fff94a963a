package http

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"talentr/internal/config"
	domain "talentr/internal/domain/onboarding"
	"talentr/internal/http/auth"
	"talentr/internal/http/common"
	gighttp "talentr/internal/http/gigs"
	leadhttp "talentr/internal/http/leads"
	onboardinghttp "talentr/internal/http/onboarding"
	vendorhttp "talentr/internal/http/vendors"
	"talentr/internal/infra/lifecycle"
	"talentr/internal/infra/ratelimit"
	"talentr/internal/notify"
	"talentr/internal/repo/postgres"
	"talentr/internal/token"
	"talentr/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.temporal.io/sdk/client"
)

type Server struct {
	cfg             config.Config
	r               *gin.Engine
	confirmations   *usecase.ConfirmationService
	listings        *usecase.ListingService
	vendors         *usecase.VendorService
	auditLog        usecase.AuditLog
	authenticator   common.Authenticator
	authorizer      domain.Authorizer
	rateLimiter     ratelimit.Limiter
	rateLimitMax    int
	rateLimitWindow time.Duration
}

type ServerDeps struct {
	Confirmations *usecase.ConfirmationService
	Listings      *usecase.ListingService
	Vendors       *usecase.VendorService
	AuditLog      usecase.AuditLog
	Authenticator common.Authenticator
	Authorizer    domain.Authorizer
	RateLimiter   ratelimit.Limiter
}

func NewServer(cfg config.Config, store *postgres.Store) *Server {
	leadRepo := postgres.NewLeadRepo(store.Pool)
	vendorRepo := postgres.NewVendorRepo(store.Pool)
	gigRepo := postgres.NewGigRepo(store.Pool)
	auditRepo := postgres.NewAuditRepo(store.Pool)

	emitter := usecase.NewAuditEmitter(auditRepo)
	issuer := token.NewIssuer(cfg.ConfirmationTTL)

	confirmations := usecase.NewConfirmationService(leadRepo, vendorRepo, emitter, issuer)
	confirmations.PublicBaseURL = cfg.PublicBaseURL
	confirmations.Notifier = notify.LogNotifier{}
	if cfg.AMQPURL != "" {
		notifier, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.NotifyQueue)
		if err != nil {
			log.Printf("amqp notifier unavailable, falling back to log: %v", err)
		} else {
			confirmations.Notifier = notifier
		}
	}
	if cfg.TemporalAddress != "" {
		temporalClient, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalAddress,
			Namespace: cfg.TemporalNamespace,
		})
		if err != nil {
			log.Printf("temporal unavailable, invite lifecycle disabled: %v", err)
		} else {
			confirmations.Lifecycle = lifecycle.NewTemporal(temporalClient, cfg.TaskQueue, cfg.ReminderLead)
		}
	}
	listings := usecase.NewListingService(gigRepo, vendorRepo, emitter)
	vendors := usecase.NewVendorService(vendorRepo, emitter)

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		redisLimiter, err := ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil)
		if err != nil {
			log.Printf("redis rate limiter unavailable, using in-memory: %v", err)
		} else {
			limiter = redisLimiter
		}
	}
	if limiter == nil {
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
	}

	return NewServerWithDeps(cfg, ServerDeps{
		Confirmations: confirmations,
		Listings:      listings,
		Vendors:       vendors,
		AuditLog:      auditRepo,
		Authenticator: auth.NewHeaderAuthenticator(),
		Authorizer:    auth.NewAuthorizer(),
		RateLimiter:   limiter,
	})
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:             cfg,
		r:               r,
		confirmations:   deps.Confirmations,
		listings:        deps.Listings,
		vendors:         deps.Vendors,
		auditLog:        deps.AuditLog,
		authenticator:   deps.Authenticator,
		authorizer:      deps.Authorizer,
		rateLimiter:     deps.RateLimiter,
		rateLimitMax:    cfg.RateLimitMax,
		rateLimitWindow: cfg.RateLimitWindow,
	}
	if s.authenticator == nil {
		s.authenticator = auth.NewHeaderAuthenticator()
	}
	if s.authorizer == nil {
		s.authorizer = auth.NewAuthorizer()
	}
	if s.rateLimitWindow <= 0 {
		s.rateLimitWindow = time.Minute
	}
	s.routes()
	return s
}

func (s *Server) Run() error {
	addr := s.cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("talentr api listening on %s", addr)
	return s.r.Run(addr)
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	onboardingHandler := onboardinghttp.NewHandler(s.confirmations, s.listings, s.cfg.PublicBaseURL)
	leadHandler := leadhttp.NewHandler(s.confirmations, s.auditLog)
	vendorHandler := vendorhttp.NewHandler(s.vendors)
	gigHandler := gighttp.NewHandler(s.listings)

	v1 := s.r.Group("/v1")
	{
		authz := func(permission string) gin.HandlerFunc {
			return common.AuthMiddleware(s.authenticator, s.authorizer, permission)
		}

		// Token-addressed public routes. The token in the path is the
		// credential; brute-force protection comes from the limiter.
		public := v1.Group("", s.rateLimitMiddleware())
		public.GET("/onboarding/:token", onboardingHandler.HandleResolve)
		public.POST("/onboarding/:token/confirm", onboardingHandler.HandleConfirm)
		public.POST("/onboarding/:token/decline", onboardingHandler.HandleDecline)
		public.GET("/vendors/edit/:editToken", vendorHandler.HandleGet)
		public.PATCH("/vendors/edit/:editToken", vendorHandler.HandleUpdate)

		v1.POST("/leads", authz(domain.PermLeadWrite), leadHandler.HandleCreateLead)
		v1.GET("/leads", authz(domain.PermLeadRead), leadHandler.HandleListLeads)
		v1.GET("/leads/:id", authz(domain.PermLeadRead), leadHandler.HandleGetLead)
		v1.GET("/leads/:id/activity", authz(domain.PermLeadRead), leadHandler.HandleLeadActivity)
		v1.POST("/leads/:id/invite", authz(domain.PermLeadInvite), leadHandler.HandleInvite)
		v1.POST("/leads/:id/remind", authz(domain.PermLeadInvite), leadHandler.HandleRemind)
		v1.POST("/leads/:id/expire", authz(domain.PermLeadInvite), leadHandler.HandleExpire)

		v1.POST("/gigs", authz(domain.PermGigWrite), gigHandler.HandleCreateGig)
		v1.GET("/gigs/:id", authz(domain.PermLeadRead), gigHandler.HandleGetGig)
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimiter == nil || s.rateLimitMax <= 0 {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP() + ":path:" + c.FullPath()
		decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitMax, s.rateLimitWindow)
		if err != nil {
			// Fail open: a broken limiter must not take down the
			// confirmation flow.
			c.Next()
			return
		}
		writeRateLimitHeaders(c, decision)
		if !decision.Allowed {
			common.WriteErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			return
		}
		c.Next()
	}
}

func writeRateLimitHeaders(c *gin.Context, decision ratelimit.Decision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
