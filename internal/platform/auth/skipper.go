package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are reachable without a bearer token.
var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
	"/metrics":   true,
}

// AuthSkipper matches on the route template, so it only applies to routes
// registered under these exact paths.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
