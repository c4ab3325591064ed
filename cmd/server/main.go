package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"rectrace/internal/config"
	"rectrace/internal/game"
	"rectrace/internal/leaderboard"
	"rectrace/internal/ws"
	staticserver "rectrace/static"
)

const version = "v1.0.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`rectrace - Real-time rectangle matching game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT              Port to listen on (default: 8080)
  LEADERBOARD_FILE  Path to the top-10 leaderboard JSON file
                    (default: ./leaderboard.json)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000

Visit http://localhost:8080 after starting the server.
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("rectrace %s\n", version)
		return
	}

	cfg := config.FromEnv()
	port := *portFlag
	if port == "" {
		port = cfg.Port
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	// Gin setup with custom logger (skip /socket.io noise)
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).
			Dur("dur", time.Since(start)).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	// Session coordinator over Socket.IO
	registry := game.NewRegistry(zerologlog.Logger)
	sock := ws.New()
	coord := game.NewCoordinator(registry, sock, game.DefaultSettings(), zerologlog.Logger)
	io := sock.Mount(r, coord)
	defer io.Close()

	// Durable top-10 leaderboard, written by the client after a final run
	store := leaderboard.NewStore(cfg.LeaderboardFile, zerologlog.Logger)
	r.GET("/api/leaderboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"entries": store.ReadAll()})
	})
	type entryReq struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
		Time  float64 `json:"time"`
	}
	r.POST("/api/leaderboard", func(c *gin.Context) {
		var req entryReq
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_entry"})
			return
		}
		entries, err := store.AppendAndTrim(req.Name, req.Score, req.Time)
		if err != nil {
			zerologlog.Error().Err(err).Msg("leaderboard write failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
	})

	// Serve the embedded game client for all other routes
	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	log.Printf("listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
