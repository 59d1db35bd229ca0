package api

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/axellelanca/magiccode/internal/auth"
	"github.com/axellelanca/magiccode/internal/services"
)

// Dependencies groups what the routes need.
type Dependencies struct {
	Resolver *services.Resolver
	Records  *services.RecordService
	Admin    *services.AdminService
	Uploads  Uploads
	Auth     *auth.Manager

	// BaseURL is the public origin of the service; empty means the request's own.
	BaseURL         string
	MaxUploadBytes  int64
	RecordsPerPage  int
	AccountsPerPage int
}

var pages = template.Must(template.New("content.html").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>Magic Code</title></head>
<body><main><p style="white-space: pre-wrap">{{.content}}</p></main></body></html>
`))

func init() {
	template.Must(pages.New("error.html").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Magic Code</title></head>
<body><main><h1>{{.message}}</h1></main></body></html>
`))
}

// SetupRoutes configures all Gin routes and injects their dependencies.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.SetHTMLTemplate(pages)

	router.GET("/health", HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if deps.Uploads != nil {
		router.Static("/"+deps.Uploads.URLPrefix(), deps.Uploads.RootDir())
	}

	api := router.Group("/api/v1")
	api.Use(auth.Middleware(deps.Auth))
	{
		api.POST("/records", CreateRecordHandler(deps))
		api.GET("/records", ListRecordsHandler(deps))
		api.GET("/records/:code", GetRecordHandler(deps))
		api.PUT("/records/:code", UpdateRecordHandler(deps))
		api.DELETE("/records/:id", DeleteRecordHandler(deps))

		admin := api.Group("/admin", auth.AdminOnly())
		admin.GET("/accounts", ListAccountsHandler(deps))
		admin.GET("/accounts/:token", GetAccountHandler(deps))
		admin.POST("/accounts/:token/status", SetAccountStatusHandler(deps))
		admin.GET("/accounts/:token/records", ListAccountRecordsHandler(deps))
	}

	router.GET("/:code", ResolveHandler(deps.Resolver))
}

// ReservedCodes returns the first path segments SetupRoutes serves itself.
// A code equal to one of them could never be resolved.
func ReservedCodes(uploadPrefix string) []string {
	reserved := []string{"health", "metrics", "api"}
	if first := strings.SplitN(strings.Trim(uploadPrefix, "/"), "/", 2)[0]; first != "" {
		reserved = append(reserved, first)
	}
	return reserved
}

// HealthCheckHandler handles the /health route to verify service status
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ResolveHandler serves a public code: a redirect, an inline text page or an error page.
func ResolveHandler(resolver *services.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		action, err := resolver.Resolve(c.Request.Context(), code, requestOrigin(c))
		if err != nil {
			log.Error().Err(err).Str("code", code).Msg("Error resolving code")
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"message": "An error occurred while processing the code."})
			return
		}

		switch action.Kind {
		case services.ActionRedirectExternal, services.ActionRedirectAsset:
			c.Redirect(http.StatusFound, action.Target)
		case services.ActionRenderInline:
			c.HTML(http.StatusOK, "content.html", gin.H{"content": action.Content})
		case services.ActionNotFound:
			c.HTML(http.StatusNotFound, "error.html", gin.H{"message": "Magic Code not found."})
		default:
			c.HTML(http.StatusInternalServerError, "error.html", gin.H{"message": "Invalid type associated with this Magic Code."})
		}
	}
}

// requestOrigin returns "scheme://host" as seen by the client.
func requestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	proto := strings.ToLower(strings.TrimSpace(strings.Split(c.GetHeader("X-Forwarded-Proto"), ",")[0]))
	if proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}

func publicURL(c *gin.Context, baseURL, code string) string {
	origin := strings.TrimRight(baseURL, "/")
	if origin == "" {
		origin = requestOrigin(c)
	}
	return origin + "/" + code
}

func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
