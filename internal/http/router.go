package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KDS-OurMemory/Server-sub001/internal/auth"
	"github.com/KDS-OurMemory/Server-sub001/internal/config"
	"github.com/KDS-OurMemory/Server-sub001/internal/friend"
	"github.com/KDS-OurMemory/Server-sub001/internal/http/handler"
	mw "github.com/KDS-OurMemory/Server-sub001/internal/http/middleware"
	"github.com/KDS-OurMemory/Server-sub001/internal/image"
	"github.com/KDS-OurMemory/Server-sub001/internal/lifecycle"
	"github.com/KDS-OurMemory/Server-sub001/internal/memory"
	"github.com/KDS-OurMemory/Server-sub001/internal/notice"
	"github.com/KDS-OurMemory/Server-sub001/internal/notify"
	"github.com/KDS-OurMemory/Server-sub001/internal/room"
	"github.com/KDS-OurMemory/Server-sub001/internal/user"
)

func NewRouter(cfg config.Config, db *gorm.DB, log *zap.SugaredLogger, jwtSvc *auth.JWT, notifier notify.Notifier, images image.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	users := &user.Service{DB: db, Log: log}
	friends := &friend.Service{DB: db, Log: log, Notifier: notifier}
	rooms := &room.Service{DB: db, Log: log, Notifier: notifier}
	memories := &memory.Service{DB: db, Log: log, Notifier: notifier}
	notices := &notice.Service{DB: db}
	coord := &lifecycle.Coordinator{DB: db, Log: log}

	ah := &handler.AuthHandler{Coord: coord, Users: users, JWT: jwtSvc}
	r.Post("/auth/signup", ah.SignUp)
	r.Post("/auth/login", ah.Login)

	uh := &handler.UserHandler{Users: users, Coord: coord, Images: images}
	r.Route("/me", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", uh.Me)
		r.Patch("/", uh.Update)
		r.Delete("/", uh.Delete)
		r.Put("/push-token", uh.SetPushToken)
		r.Post("/image", uh.UploadImage)
		r.Delete("/image", uh.DeleteImage)
	})

	fh := &handler.FriendHandler{Svc: friends}
	r.Route("/friends", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", fh.List)
		r.Post("/{id}", fh.Request)
		r.Delete("/{id}/request", fh.Cancel)
		r.Post("/{id}/accept", fh.Accept)
		r.Post("/{id}/readd", fh.ReAdd)
		r.Patch("/{id}", fh.PatchStatus)
		r.Delete("/{id}", fh.Delete)
	})
	r.With(auth.RequireAuth(jwtSvc)).Get("/users", fh.FindUsers)

	nh := &handler.NoticeHandler{Svc: notices}
	r.Route("/notices", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Get("/", nh.List)
		r.Post("/{id}/read", nh.MarkRead)
	})

	rh := &handler.RoomHandler{Svc: rooms, Coord: coord}
	r.Route("/rooms", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", rh.Create)
		r.Get("/", rh.List)
		r.Get("/{id}", rh.Find)
		r.Patch("/{id}", rh.Update)
		r.Post("/{id}/owner", rh.RecommendOwner)
		r.Delete("/{id}", rh.Delete)
		r.Post("/{id}/exit", rh.Exit)
	})

	mh := &handler.MemoryHandler{Svc: memories}
	r.Route("/memories", func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc))

		r.Post("/", mh.Create)
		r.Get("/", mh.List)
		r.Get("/{id}", mh.Find)
		r.Patch("/{id}", mh.Update)
		r.Post("/{id}/share", mh.Share)
		r.Put("/{id}/attendance", mh.SetAttendance)
		r.Delete("/{id}", mh.Delete)
	})

	return r
}
