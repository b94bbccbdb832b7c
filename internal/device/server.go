package device

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ivlev/marionette/internal/document"
	"github.com/ivlev/marionette/internal/system"
)

// Server exposes a Player over the marionette HTTP API
type Server struct {
	player  *Player
	profile Profile
	log     *slog.Logger
	engine  *gin.Engine
}

type playInput struct {
	Animation *document.Document `json:"animation"`
}

type enabledInput struct {
	Enabled *bool `json:"enabled"`
}

func NewServer(player *Player, profile Profile, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{player: player, profile: profile, log: log, engine: gin.New()}
	s.setupRouter(s.engine)
	return s
}

func (s *Server) setupRouter(r *gin.Engine) {
	r.Use(
		gin.CustomRecovery(func(c *gin.Context, err any) {
			s.log.ErrorContext(c.Request.Context(), "panic", "err", err, "stack", string(debug.Stack()))
			c.AbortWithStatus(http.StatusInternalServerError)
		}),
	)
	r.Use(cors.New(cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Accept", "Content-Length", "Content-Type", "Origin"},
		MaxAge:       12 * time.Hour,
		AllowOriginFunc: func(_ string) bool {
			return true
		},
	}))

	group := r.Group("/marionette")
	group.POST("/play", s.play)
	group.POST("/pause", s.pause)
	group.GET("/current_index", s.currentIndex)
	group.GET("/pose", s.pose)
	group.GET("/config", s.config)
	group.GET("/enabled", s.getEnabled)
	group.POST("/enabled", s.setEnabled)
}

// Handler returns the HTTP handler of the API
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "device server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) play(c *gin.Context) {
	var in playInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Animation == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"animation\": {...}}"})
		return
	}
	session, err := s.player.Start(in.Animation)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.log.InfoContext(c.Request.Context(), "playback started", "session", session,
		"keyframes", len(in.Animation.Keyframes), "frames", in.Animation.Config.TotalFrames)
	c.JSON(http.StatusOK, gin.H{"session": session})
}

func (s *Server) pause(c *gin.Context) {
	session := s.player.Session()
	s.player.Stop()
	if session != "" {
		s.log.InfoContext(c.Request.Context(), "playback stopped", "session", session)
	}
	c.JSON(http.StatusOK, gin.H{"stopped": session})
}

func (s *Server) currentIndex(c *gin.Context) {
	idx, err := s.player.CurrentIndex()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_index": idx})
}

func (s *Server) pose(c *gin.Context) {
	idx, pose, err := s.player.Pose()
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	out := s.profile.Outputs(pose)
	if !s.player.Enabled() {
		out = Outputs{}
	}
	c.JSON(http.StatusOK, gin.H{"current_index": idx, "pose": pose, "outputs": out})
}

func (s *Server) config(c *gin.Context) {
	ctx := c.Request.Context()
	host, err := system.GetHostInfo(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "config without host info", "err", err)
	}
	c.JSON(http.StatusOK, s.profile.Block(host))
}

func (s *Server) getEnabled(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"enabled": s.player.Enabled()})
}

func (s *Server) setEnabled(c *gin.Context) {
	var in enabledInput
	if err := c.ShouldBindJSON(&in); err != nil || in.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"enabled\": bool}"})
		return
	}
	s.player.SetEnabled(*in.Enabled)
	c.JSON(http.StatusOK, gin.H{"enabled": *in.Enabled})
}
