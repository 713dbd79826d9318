package routes

import (
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"dinoevent/auth"
	"dinoevent/events"
	"dinoevent/live"
	"dinoevent/middleware"
	"dinoevent/ratelim"
)

// Deps is everything the router dispatches to.
type Deps struct {
	Gate        *auth.Gate
	Auth        *auth.Handler
	Events      *events.Handler
	Hub         *live.Hub
	RateLimiter *ratelim.RateLimiter
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func New(d Deps) *httprouter.Router {
	router := httprouter.New()
	router.GET("/health", Index)

	AddSessionRoutes(router, d)
	AddEventsRoutes(router, d)
	AddLiveRoutes(router, d)
	return router
}

func AddSessionRoutes(router *httprouter.Router, d Deps) {
	sessions := middleware.Sessions(d.Gate)
	router.POST("/api/session", sessions(d.Auth.Start))
	router.POST("/api/session/elevate", middleware.Chain(d.RateLimiter.Limit, sessions)(d.Auth.Elevate))
	router.POST("/api/session/logout", sessions(d.Auth.Logout))
}

func AddEventsRoutes(router *httprouter.Router, d Deps) {
	sessions := middleware.Sessions(d.Gate)
	limited := middleware.Chain(d.RateLimiter.Limit, sessions)
	h := d.Events

	router.GET("/api/events", sessions(h.GetEvents))
	router.POST("/api/events", sessions(h.CreateEvent))
	router.GET("/api/events/:eventid", sessions(h.GetEvent))
	router.PUT("/api/events/:eventid", sessions(h.EditEvent))
	router.DELETE("/api/events/:eventid", sessions(h.DeleteEvent))

	router.POST("/api/events/:eventid/join", limited(h.JoinEvent))
	router.POST("/api/events/:eventid/participants/:pid/cancel", limited(h.CancelRegistration))
	router.DELETE("/api/events/:eventid/participants/:pid", sessions(h.RemoveParticipant))
	router.POST("/api/events/:eventid/wish", limited(h.ToggleWish))

	router.GET("/api/events/:eventid/share", sessions(h.Share))
	router.GET("/api/events/:eventid/ics", sessions(h.DownloadICS))
	router.GET("/api/events/:eventid/roster.pdf", sessions(h.RosterPDF))
}

func AddLiveRoutes(router *httprouter.Router, d Deps) {
	router.GET("/api/live", middleware.Sessions(d.Gate)(d.Hub.ServeWS))
}
