package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/denysvitali/ipos-browser-go/internal/models"
	"github.com/denysvitali/ipos-browser-go/pkg/telemetry"
)

// setupRoutes configures all HTTP routes
func (g *Gateway) setupRoutes() {
	// Health check
	g.engine.GET("/alive", g.handleAlive)
	g.engine.GET("/gateway_info", g.handleGatewayInfo)

	// Session
	g.engine.POST("/login", g.handleLogin)
	g.engine.POST("/login_sts", g.handleLoginSTS)
	g.engine.POST("/logout", g.handleLogout)
	g.engine.GET("/session", g.handleSession)
	g.engine.POST("/auth", g.handleSetAuth)
	g.engine.POST("/url_token", g.handleURLToken)

	// Server
	g.engine.GET("/server_info", g.handleServerInfo)
	g.engine.GET("/storage_info", g.handleStorageInfo)
	g.engine.GET("/discovery", g.handleDiscovery)

	// Buckets and objects
	g.engine.GET("/buckets", g.handleListBuckets)
	g.engine.PUT("/buckets/:bucket", g.handleMakeBucket)
	g.engine.DELETE("/buckets/:bucket", g.handleDeleteBucket)
	g.engine.GET("/buckets/:bucket/objects", g.handleListObjects)
	g.engine.POST("/buckets/:bucket/remove", g.handleRemoveObjects)
	g.engine.GET("/buckets/:bucket/presign", g.handlePresign)
	g.engine.GET("/buckets/:bucket/download_url", g.handleDownloadURL)

	// Policies
	g.engine.GET("/buckets/:bucket/policy", g.handleGetPolicy)
	g.engine.PUT("/buckets/:bucket/policy", g.handleSetPolicy)
	g.engine.GET("/buckets/:bucket/policies", g.handleListPolicies)
}

func (g *Gateway) handleAlive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (g *Gateway) handleGatewayInfo(c *gin.Context) {
	sess := g.Session()
	c.JSON(http.StatusOK, models.GatewayInfo{
		Uptime:   time.Since(g.startTime).Seconds(),
		Endpoint: sess.Endpoint().URL(),
		State:    sess.State().String(),
		Stale:    g.stale.Load() || sess.Stale(),
		Reloads:  g.reloads.Load(),
		Process:  processStats(g.logger),
	})
}

func (g *Gateway) handleLogin(c *gin.Context) {
	var args models.LoginArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if g.config.Telemetry.Enabled {
		telemetry.ReportJSON(c.Request.Context(), g.logger, "login_request", gin.H{"username": args.Username})
	}

	reply, err := g.Session().Login(c.Request.Context(), args)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleLoginSTS(c *gin.Context) {
	var args models.LoginSTSArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := g.Session().LoginSTS(c.Request.Context(), args)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleLogout(c *gin.Context) {
	if err := g.Session().Logout(); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (g *Gateway) handleSession(c *gin.Context) {
	sess := g.Session()
	resp := gin.H{"state": sess.State().String(), "stale": sess.Stale()}
	if claims, err := sess.Claims(); err == nil {
		resp["access_key"] = claims.AccessKey
		if !claims.ExpiresAt.IsZero() {
			resp["expires_at"] = claims.ExpiresAt
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (g *Gateway) handleSetAuth(c *gin.Context) {
	var args models.SetAuthArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := g.Session().SetAuth(c.Request.Context(), args)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleURLToken(c *gin.Context) {
	reply, err := g.Session().CreateURLToken(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleServerInfo(c *gin.Context) {
	reply, err := g.Session().ServerInfo(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleStorageInfo(c *gin.Context) {
	reply, err := g.Session().StorageInfo(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleDiscovery(c *gin.Context) {
	reply, err := g.Session().GetDiscoveryDoc(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleListBuckets(c *gin.Context) {
	reply, err := g.Session().ListBuckets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleMakeBucket(c *gin.Context) {
	reply, err := g.Session().MakeBucket(c.Request.Context(), models.BucketArgs{BucketName: c.Param("bucket")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleDeleteBucket(c *gin.Context) {
	reply, err := g.Session().DeleteBucket(c.Request.Context(), models.BucketArgs{BucketName: c.Param("bucket")})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleListObjects(c *gin.Context) {
	reply, err := g.Session().ListObjects(c.Request.Context(), models.ListObjectsArgs{
		BucketName: c.Param("bucket"),
		Prefix:     c.Query("prefix"),
		Marker:     c.Query("marker"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleRemoveObjects(c *gin.Context) {
	var objects []string
	if err := c.ShouldBindJSON(&objects); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request must be a list of object names"})
		return
	}

	reply, err := g.Session().RemoveObject(c.Request.Context(), models.RemoveObjectArgs{
		BucketName: c.Param("bucket"),
		Objects:    objects,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handlePresign(c *gin.Context) {
	var query struct {
		Object string `form:"object" binding:"required"`
		Host   string `form:"host"`
		Expiry int64  `form:"expiry"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.Host == "" {
		query.Host = g.Session().Endpoint().HostPort()
	}

	reply, err := g.Session().PresignedGet(c.Request.Context(), models.PresignedGetArgs{
		HostName:   query.Host,
		BucketName: c.Param("bucket"),
		ObjectName: query.Object,
		Expiry:     query.Expiry,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleDownloadURL(c *gin.Context) {
	object := c.Query("object")
	if object == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "object query parameter is required"})
		return
	}

	url, err := g.Session().DownloadURL(c.Request.Context(), c.Param("bucket"), object)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (g *Gateway) handleGetPolicy(c *gin.Context) {
	reply, err := g.Session().GetBucketPolicy(c.Request.Context(), models.GetBucketPolicyArgs{
		BucketName: c.Param("bucket"),
		Prefix:     c.Query("prefix"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleSetPolicy(c *gin.Context) {
	var body struct {
		Prefix string              `json:"prefix"`
		Policy models.BucketPolicy `json:"policy" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !body.Policy.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown policy " + string(body.Policy)})
		return
	}

	reply, err := g.Session().SetBucketPolicy(c.Request.Context(), models.SetBucketPolicyArgs{
		BucketName: c.Param("bucket"),
		Prefix:     body.Prefix,
		Policy:     body.Policy,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (g *Gateway) handleListPolicies(c *gin.Context) {
	reply, err := g.Session().ListAllBucketPolicies(c.Request.Context(), models.ListAllBucketPoliciesArgs{
		BucketName: c.Param("bucket"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
