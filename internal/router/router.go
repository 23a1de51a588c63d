package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/rental-booking/internal/handler"
	"github.com/iliyamo/rental-booking/internal/middleware"
	"github.com/iliyamo/rental-booking/internal/model"
)

// Handlers collects everything the routes dispatch to.
type Handlers struct {
	Health   echo.HandlerFunc
	Auth     *handler.AuthHandler
	Public   *handler.PublicHandler
	Listings *handler.ListingHandler
	Bookings *handler.BookingHandler
	Accounts *handler.AccountHandler
}

// Middleware holds the request-wide middleware built from configuration.
// Nil entries are skipped.
type Middleware struct {
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
	BodyLimit string
}

// routes registers paths at the root with a fixed middleware chain.
// Echo groups with an empty prefix would add catch-all routes, so the
// chain is attached per route instead.
type routes struct {
	e  *echo.Echo
	mw []echo.MiddlewareFunc
}

func (r routes) with(mw ...echo.MiddlewareFunc) routes {
	chain := append(append([]echo.MiddlewareFunc{}, r.mw...), compact(mw)...)
	return routes{e: r.e, mw: chain}
}

func (r routes) GET(path string, h echo.HandlerFunc) *echo.Route  { return r.e.GET(path, h, r.mw...) }
func (r routes) POST(path string, h echo.HandlerFunc) *echo.Route { return r.e.POST(path, h, r.mw...) }

func compact(mw []echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := mw[:0:0]
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Register wires every route.  Paths are registered with a trailing slash
// and a Pre middleware adds the slash to requests that omit it.
func Register(e *echo.Echo, h Handlers, mw Middleware, jwtSecret string) {
	e.Pre(echomw.AddTrailingSlash())
	if mw.BodyLimit != "" {
		e.Use(echomw.BodyLimit(mw.BodyLimit))
	}

	e.GET("/healthz/", h.Health)

	root := routes{e: e}
	public := root.with(mw.RateLimit)
	registerPublic(public, public.with(mw.Cache), h.Public)
	registerAuth(public, root.with(middleware.JWTAuth(jwtSecret), mw.RateLimit), h.Auth)

	// The limiter runs after JWTAuth so buckets can be keyed by account.
	authed := func(roles ...string) routes {
		r := root.with(middleware.JWTAuth(jwtSecret))
		if len(roles) > 0 {
			r = r.with(middleware.RequireRole(roles...))
		}
		return r.with(mw.RateLimit)
	}

	registerCustomer(authed(model.RoleCustomer), h.Bookings)
	registerAnyAccount(authed(), h.Bookings, h.Accounts)
	registerOwner(authed(model.RoleOwner), h.Listings, h.Bookings)
	registerAdmin(authed(model.RoleAdmin), h.Accounts)
}

// registerPublic exposes browse, detail, search and photos.  List and
// search responses go through the cached chain.
func registerPublic(r, cached routes, p *handler.PublicHandler) {
	cached.GET("/booking/:property_type/", p.Browse(model.KindLodging, "property_type", "property_type_filter"))
	r.GET("/booking-property/:id/", p.Detail(model.KindLodging))

	cached.GET("/residences/", p.Browse(model.KindResidence, "", "property_type_filter"))
	cached.GET("/residences/:property_type/", p.Browse(model.KindResidence, "property_type", "property_type_filter"))
	r.GET("/residences/property/:id/", p.Detail(model.KindResidence))

	cached.GET("/car-rental/", p.Browse(model.KindVehicle, "", "car_type"))
	cached.GET("/car-rental/:car_type/", p.Browse(model.KindVehicle, "car_type", ""))
	r.GET("/car-rental/details/:id/", p.Detail(model.KindVehicle))

	cached.GET("/search/", p.Search)
	cached.GET("/search/city/:city/", p.CitySearch)

	r.GET("/photos/:id/", p.Photo)
}

// registerAuth registers sign-up, sign-in and token endpoints.  Logout
// accepts either a refresh token in the body or a bearer token, so it
// does not run JWTAuth.
func registerAuth(r, authed routes, a *handler.AuthHandler) {
	r.POST("/auth/register/", a.Register)
	r.POST("/auth/login/", a.Login)
	r.POST("/auth/refresh/", a.Refresh)
	r.POST("/auth/logout/", a.Logout)
	authed.GET("/me/", a.Me)
	authed.POST("/account/change-password/", a.ChangePassword)
}

// registerCustomer registers CUSTOMER booking endpoints.
func registerCustomer(r routes, b *handler.BookingHandler) {
	r.GET("/property/:id/book/", b.Form)
	r.POST("/property/:id/book/", b.Create)
	r.GET("/my-bookings/", b.Mine)
	r.GET("/success/:booking_id/", b.Success).Name = "booking-success"
}

// registerAnyAccount registers endpoints open to every signed-in role.
func registerAnyAccount(r routes, b *handler.BookingHandler, a *handler.AccountHandler) {
	r.GET("/bookings/:id/", b.Get)
	r.POST("/booking/:id/update-status/", b.UpdateStatus)
	r.POST("/attachments/", a.UploadAttachment)
	r.GET("/attachments/mine/", a.MyAttachment)
}

// registerOwner registers OWNER listing management and dashboards.
func registerOwner(r routes, l *handler.ListingHandler, b *handler.BookingHandler) {
	// ---- Lodging ----
	r.POST("/add-property/", l.Create(model.KindLodging))
	r.GET("/my-properties/", l.Mine(model.KindLodging))
	r.GET("/property/:id/", l.Get(model.KindLodging))
	r.POST("/property/delete/:id/", l.Delete(model.KindLodging))

	// ---- Residences ----
	r.POST("/residences/add/", l.Create(model.KindResidence))
	r.GET("/residences/mine/", l.Mine(model.KindResidence))
	r.GET("/residences/mine/:id/", l.Get(model.KindResidence))
	r.POST("/residences/delete/:id/", l.Delete(model.KindResidence))
	r.POST("/residences/:id/status/", l.SetStatus(model.KindResidence))

	// ---- Vehicles ----
	r.POST("/car-rental/add/", l.Create(model.KindVehicle))
	r.GET("/car-rental/mine/", l.Mine(model.KindVehicle))
	r.GET("/car-rental/mine/:id/", l.Get(model.KindVehicle))
	r.POST("/car-rental/delete/:id/", l.Delete(model.KindVehicle))

	r.POST("/listings/:id/status/", l.SetStatus(""))
	r.GET("/owner/bookings/", b.OwnerList)
	r.GET("/owner/bookings/:booking_id/", b.OwnerGet)
	r.GET("/dashboard/", l.Dashboard)
}

// registerAdmin registers identity review endpoints.
func registerAdmin(r routes, a *handler.AccountHandler) {
	r.GET("/admin/attachments/", a.ListAttachments)
	r.POST("/admin/attachments/:id/verify/", a.VerifyAttachment)
	r.GET("/admin/accounts/", a.ListAccounts)
}
