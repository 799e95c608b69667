package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/terminal-bench/casgen/internal/exercise"
	"github.com/terminal-bench/casgen/internal/pipeline"
	"github.com/terminal-bench/casgen/pkg/messaging"
)

// Gateway is the thin HTTP boundary around the job pipeline.
type Gateway struct {
	router      *gin.Engine
	pipe        *pipeline.Pipeline
	msg         *messaging.Client
	rateLimiter *RateLimiter

	wsMu      sync.RWMutex
	wsClients map[uuid.UUID]*WSClient
}

// jobEventSubjects are the broker subjects relayed to websocket subscribers.
// Progress checkpoints arrive through the pipeline callback instead, so only
// lifecycle transitions flow through here.
var jobEventSubjects = []string{
	messaging.SubjectJobCompleted,
	messaging.SubjectJobFailed,
	messaging.SubjectJobCancelled,
}

// WSClient is one progress-feed subscriber.
type WSClient struct {
	ID   uuid.UUID
	Conn *websocket.Conn
	Send chan []byte
	Done chan struct{}
}

// RateLimiter implements a sliding-window request limiter.
type RateLimiter struct {
	requests  map[string][]time.Time
	mu        sync.Mutex
	limit     int
	window    time.Duration
	lastSweep time.Time
}

// Config holds gateway configuration
type Config struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// New creates the gateway, registers its routes and, when a broker client is
// supplied, relays job lifecycle events to websocket subscribers.
func New(cfg Config, pipe *pipeline.Pipeline, msg *messaging.Client) *Gateway {
	g := &Gateway{
		router:    gin.Default(),
		pipe:      pipe,
		msg:       msg,
		wsClients: make(map[uuid.UUID]*WSClient),
		rateLimiter: &RateLimiter{
			requests: make(map[string][]time.Time),
			limit:    cfg.RateLimitMax,
			window:   cfg.RateLimitWindow,
		},
	}
	g.setupRoutes()
	g.subscribeJobEvents()
	return g
}

func (g *Gateway) subscribeJobEvents() {
	if !g.msg.IsConnected() {
		return
	}
	for _, subject := range jobEventSubjects {
		if err := g.msg.Subscribe(subject, g.broadcast); err != nil {
			log.Printf("gateway: subscribe %s: %v", subject, err)
		}
	}
}

func (g *Gateway) setupRoutes() {
	g.router.Use(g.rateLimitMiddleware())

	g.router.GET("/health", g.healthCheck)

	v1 := g.router.Group("/api/v1")
	{
		v1.POST("/jobs", g.submitJob)
		v1.GET("/jobs", g.listJobs)
		v1.GET("/jobs/:id", g.getJob)
		v1.DELETE("/jobs/:id", g.cancelJob)
		v1.GET("/jobs/:id/download", g.downloadResult)
	}

	g.router.GET("/ws/progress", g.handleProgressWS)
}

// Handler exposes the router for an http.Server.
func (g *Gateway) Handler() http.Handler {
	return g.router
}

func (g *Gateway) healthCheck(c *gin.Context) {
	resp := gin.H{"status": "ok", "time": time.Now().UTC()}
	if g.msg != nil {
		resp["nats_connected"] = g.msg.IsConnected()
		resp["nats_reconnects"] = g.msg.Reconnects()
	}
	c.JSON(http.StatusOK, resp)
}

func (g *Gateway) submitJob(c *gin.Context) {
	var cfg exercise.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed configuration: " + err.Error()})
		return
	}

	view, err := g.pipe.Submit(c.Request.Context(), &cfg)
	if err != nil {
		var cfgErr *exercise.ConfigurationError
		var resErr *pipeline.ResourceLimitError
		switch {
		case errors.As(err, &cfgErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": pipeline.KindConfiguration})
		case errors.As(err, &resErr):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "kind": pipeline.KindResourceLimit})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusAccepted, view)
}

func (g *Gateway) listJobs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"jobs": g.pipe.List()})
}

func (g *Gateway) getJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	view, err := g.pipe.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (g *Gateway) cancelJob(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	switch err := g.pipe.Cancel(id); {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "cancellation requested"})
	case errors.Is(err, pipeline.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, pipeline.ErrJobTerminal):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (g *Gateway) downloadResult(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	view, err := g.pipe.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if view.Status != pipeline.StatusCompleted || view.ResultPath == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "job has no downloadable result", "status": view.Status})
		return
	}
	c.FileAttachment(view.ResultPath, id.String()+".jsonl")
}

// handleProgressWS upgrades the connection and streams progress events.
func (g *Gateway) handleProgressWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := &WSClient{
		ID:   uuid.New(),
		Conn: conn,
		Send: make(chan []byte, 64),
		Done: make(chan struct{}),
	}

	g.wsMu.Lock()
	g.wsClients[client.ID] = client
	g.wsMu.Unlock()

	go g.writePump(client)
	go g.readPump(client)
}

func (g *Gateway) writePump(client *WSClient) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-client.Done:
			return
		}
	}
}

func (g *Gateway) readPump(client *WSClient) {
	defer func() {
		g.wsMu.Lock()
		delete(g.wsClients, client.ID)
		g.wsMu.Unlock()
		close(client.Done)
		client.Conn.Close()
	}()

	for {
		if _, _, err := client.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// BroadcastProgress fans a progress checkpoint out to every websocket
// subscriber.
func (g *Gateway) BroadcastProgress(jobID uuid.UUID, phase pipeline.Phase, fraction float64, message string) {
	ev := messaging.ProgressEvent{
		JobID:     jobID,
		Phase:     string(phase),
		Fraction:  fraction,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	g.broadcast(payload)
}

// broadcast sends a payload to every websocket subscriber. Slow clients are
// skipped, never blocked on.
func (g *Gateway) broadcast(payload []byte) {
	g.wsMu.RLock()
	defer g.wsMu.RUnlock()
	for _, client := range g.wsClients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (g *Gateway) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.rateLimiter.limit <= 0 {
			c.Next()
			return
		}
		if !g.rateLimiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	// Sweep idle clients once per window so the map does not grow without
	// bound across distinct IPs.
	if now.Sub(rl.lastSweep) >= rl.window {
		for k, ts := range rl.requests {
			live := ts[:0]
			for _, t := range ts {
				if t.After(cutoff) {
					live = append(live, t)
				}
			}
			if len(live) == 0 {
				delete(rl.requests, k)
			} else {
				rl.requests[k] = live
			}
		}
		rl.lastSweep = now
	}

	kept := rl.requests[key][:0]
	for _, t := range rl.requests[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= rl.limit {
		rl.requests[key] = kept
		return false
	}
	rl.requests[key] = append(kept, now)
	return true
}

// Shutdown drops the broker subscriptions and closes every websocket
// subscriber.
func (g *Gateway) Shutdown(ctx context.Context) {
	if g.msg.IsConnected() {
		for _, subject := range jobEventSubjects {
			if err := g.msg.Unsubscribe(subject); err != nil {
				log.Printf("gateway: unsubscribe %s: %v", subject, err)
			}
		}
	}

	g.wsMu.Lock()
	defer g.wsMu.Unlock()
	for id, client := range g.wsClients {
		client.Conn.Close()
		delete(g.wsClients, id)
	}
}
