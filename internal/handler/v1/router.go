package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medpractice/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/medpractice/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Orders       OrderService
	Appointments AppointmentService
	Patients     PatientService
	Doctors      DoctorService
	Auth         AuthService

	Tokens   middleware.AccessTokenValidator
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer

	// Limiter applies to every API request, AuthLimiter additionally to
	// login and refresh.
	Limiter     *middleware.RateLimiter
	AuthLimiter *middleware.RateLimiter

	// Ping reports database reachability for /healthz.
	Ping func(ctx context.Context) error

	App  config.AppConfig
	CORS config.CORSConfig
	Log  *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Recovery(d.Log),
		middleware.RequestID(),
		middleware.Tracing(d.App.Name),
		middleware.Metrics(d.Metrics),
		middleware.Logger(d.Log),
		middleware.CORS(d.CORS),
	)

	r.GET("/healthz", healthz(d.Ping, d.App.Version))
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler(d.Gatherer)))

	api := r.Group("/api/v1")
	if d.Limiter != nil {
		api.Use(d.Limiter.Handler())
	}

	authH := NewAuthHandler(d.Auth)
	public := api.Group("/auth")
	if d.AuthLimiter != nil {
		public.Use(d.AuthLimiter.Handler())
	}
	public.POST("/login", authH.Login)
	public.POST("/refresh", authH.Refresh)

	secured := api.Group("", middleware.Authenticate(d.Tokens, d.Log))
	staff := middleware.RequireRoles(domain.RoleAdmin, domain.RoleDoctor)
	adminOnly := middleware.RequireRoles(domain.RoleAdmin)

	secured.POST("/auth/password", authH.ChangePassword)
	secured.POST("/users", adminOnly, authH.Register)

	orders := NewOrderHandler(d.Orders)
	secured.GET("/orders", orders.List)
	secured.GET("/orders/by-document/:document", orders.ListByDocument)
	secured.GET("/orders/:id", orders.Get)
	secured.POST("/orders", staff, orders.Create)
	secured.PUT("/orders/:id", staff, orders.Update)
	secured.DELETE("/orders/:id", staff, orders.Delete)
	secured.POST("/orders/:id/claim", staff, orders.Claim)
	secured.POST("/order-lines/:id/begin", staff, orders.BeginTreatment)
	secured.POST("/order-lines/:id/complete", staff, orders.CompleteTreatment)

	appointments := NewAppointmentHandler(d.Appointments)
	secured.GET("/appointments", appointments.List)
	secured.GET("/appointments/:id", appointments.Get)
	secured.POST("/appointments", appointments.Create)
	secured.PUT("/appointments/:id", appointments.Update)
	secured.DELETE("/appointments/:id", appointments.Delete)

	patients := NewPatientHandler(d.Patients)
	secured.GET("/health-insurers", patients.HealthInsurers)
	secured.GET("/patients", staff, patients.List)
	secured.GET("/patients/:id", patients.Get)
	secured.GET("/patients/:id/appointments", staff, appointments.ListByPatient)
	secured.POST("/patients", staff, patients.Create)
	secured.PUT("/patients/:id", staff, patients.Update)
	secured.DELETE("/patients/:id", adminOnly, patients.Delete)

	doctors := NewDoctorHandler(d.Doctors)
	secured.GET("/doctors", doctors.List)
	secured.GET("/doctors/:id", doctors.Get)
	secured.GET("/doctors/:id/appointments", staff, appointments.ListByDoctor)
	secured.POST("/doctors", adminOnly, doctors.Create)
	secured.PUT("/doctors/:id", adminOnly, doctors.Update)
	secured.DELETE("/doctors/:id", adminOnly, doctors.Delete)

	return r
}

func healthz(ping func(ctx context.Context) error, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		db := "up"
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				status = http.StatusServiceUnavailable
				db = "down"
			}
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "database": db, "version": version})
	}
}
