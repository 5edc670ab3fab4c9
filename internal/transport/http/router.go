package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookly/internal/handlers"
	authmw "github.com/Skotchmaster/bookly/internal/middleware/auth"
	"github.com/Skotchmaster/bookly/internal/token"
)

type Deps struct {
	Guard       *authmw.Guard
	AuthHandler *handlers.AuthHandler
	BookHandler *handlers.BookHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = NewErrorHandler(e)

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.GET("/refresh-token", d.AuthHandler.Refresh, d.Guard.Require(token.KindRefresh))
	auth.POST("/logout", d.AuthHandler.Logout, d.Guard.Require(token.KindAccess))
	auth.GET("/me", d.AuthHandler.Me,
		d.Guard.Require(token.KindAccess), d.Guard.RequireRoles("user", "admin"))

	books := v1.Group("/books",
		d.Guard.Require(token.KindAccess), d.Guard.RequireRoles("user", "admin"))
	books.GET("", d.BookHandler.List)
	books.GET("/search", d.BookHandler.SearchBooks)
	books.POST("", d.BookHandler.Create)
	books.GET("/:uid", d.BookHandler.Get)
	books.PATCH("/:uid", d.BookHandler.Patch)
	books.DELETE("/:uid", d.BookHandler.Delete)
}
