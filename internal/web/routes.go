package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	recognitionHandler := handlers.NewRecognitionHandler(s.service, s.logger)
	studentsHandler := handlers.NewStudentsHandler(s.service, s.logger)
	attendanceHandler := handlers.NewAttendanceHandler(s.service, s.logger)
	statsHandler := handlers.NewStatsHandler(s.service, s.logger)

	s.router.Get("/", handlers.Root)
	s.router.Get("/test", handlers.Ping)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Post("/detect-faces", recognitionHandler.DetectFaces)
	s.router.Post("/recognize", recognitionHandler.Recognize)
	s.router.Post("/register", studentsHandler.Register)

	s.router.Get("/students", studentsHandler.List)
	s.router.Get("/attendance", attendanceHandler.Today)
	s.router.Get("/stats", statsHandler.Get)

	s.router.Route("/debug", func(r chi.Router) {
		r.Get("/students", studentsHandler.Debug)
		r.Get("/attendance", attendanceHandler.Debug)
		r.Post("/nearest", recognitionHandler.Nearest)
	})

	if s.images != nil {
		prefix := imagePrefix(s.config)
		s.router.Handle(prefix+"/*", http.StripPrefix(prefix, s.images))
	}
}

// imagePrefix is the route local images are served under. Absolute public
// URLs point elsewhere, so the default path is used for them.
func imagePrefix(cfg *config.Config) string {
	if cfg != nil && strings.HasPrefix(cfg.Storage.PublicURL, "/") {
		if p := strings.TrimRight(cfg.Storage.PublicURL, "/"); p != "" {
			return p
		}
	}
	return config.DefaultLocalPublicURL
}
