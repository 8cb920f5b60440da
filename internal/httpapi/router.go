// Package httpapi exposes the lead scoring service over HTTP.
package httpapi

import (
	"context"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/spigell/lead-scorer/internal/leads"
	"github.com/spigell/lead-scorer/internal/logger"
	"github.com/spigell/lead-scorer/internal/service"
)

const defaultMaxUploadBytes = 10 << 20

// Scorer is the service the handlers drive.
type Scorer interface {
	SetOffer(offer leads.Offer) error
	Offer() (leads.Offer, error)
	UploadCSV(r io.Reader) (service.UploadSummary, error)
	ReplaceLeads(records []leads.RawRecord) (service.UploadSummary, error)
	RunScoring(ctx context.Context) (service.RunInfo, error)
	Results() (service.Run, error)
	WriteResultsCSV(w io.Writer) error
}

// Options configure the router.
type Options struct {
	MaxUploadBytes int64
	CORSOrigins    []string
	// ScoreRateLimit is the number of /score requests per second allowed per
	// client IP. Zero disables the limit.
	ScoreRateLimit float64
}

type handler struct {
	svc            Scorer
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc Scorer, opts Options, log *zap.Logger) *gin.Engine {
	log = logger.WithFields(log).Named("http")

	h := &handler{
		svc:            svc,
		logger:         log,
		maxUploadBytes: opts.MaxUploadBytes,
	}
	if h.maxUploadBytes <= 0 {
		h.maxUploadBytes = defaultMaxUploadBytes
	}

	engine := gin.New()
	engine.MaxMultipartMemory = h.maxUploadBytes
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))

	if mw := corsMiddleware(opts.CORSOrigins); mw != nil {
		engine.Use(mw)
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.POST("/offer", h.setOffer)
	engine.GET("/offer", h.getOffer)

	engine.POST("/leads/upload", h.uploadLeads)
	engine.POST("/leads", h.replaceLeads)

	score := []gin.HandlerFunc{h.runScoring}
	if opts.ScoreRateLimit > 0 {
		limiter := NewIPRateLimiter(rate.Limit(opts.ScoreRateLimit), 1, log)
		score = append([]gin.HandlerFunc{limiter.RateLimit()}, score...)
	}
	engine.POST("/score", score...)

	engine.GET("/results", h.results)
	engine.POST("/results", h.results)
	engine.GET("/csvresults", h.csvResults)
	engine.POST("/csvresults", h.csvResults)

	return engine
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return nil
	}

	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}

	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cors.New(cfg)
}
