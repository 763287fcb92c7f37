package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lunatui/storage"
)

// Handlers holds the dependencies the catalog endpoints need.
type Handlers struct {
	logger    *zap.Logger
	exportDir string
	index     *storage.CatalogIndex
}

func NewHandlers(logger *zap.Logger, exportDir string, index *storage.CatalogIndex) *Handlers {
	return &Handlers{
		logger:    logger,
		exportDir: exportDir,
		index:     index,
	}
}

// NewRouter configures the gin router with middleware and catalog routes.
func NewRouter(logger *zap.Logger, h *Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(zapLoggerMiddleware(logger), gin.Recovery())

	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.GET("/load-files", h.LoadFiles)
	api.GET("/search", h.Search)

	return r
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// LoadFiles returns every exported conversation, newest first, in the
// shape the feed reader expects: an array of record arrays.
func (h *Handlers) LoadFiles(c *gin.Context) {
	records, err := storage.ReadCatalog(h.exportDir)
	if err != nil {
		h.logger.Error("catalog read failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read catalog"})
		return
	}
	c.JSON(http.StatusOK, records)
}

// Search returns catalog metadata for conversations whose title matches
// the q parameter. An empty query matches nothing.
func (h *Handlers) Search(c *gin.Context) {
	q := c.Query("q")
	metas, err := h.index.Search(q)
	if err != nil {
		h.logger.Error("catalog search failed", zap.String("query", q), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, metas)
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
