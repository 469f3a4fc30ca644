package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duynhne/credential-service/internal/core/domain"
	"github.com/duynhne/credential-service/internal/logger"
	logicv1 "github.com/duynhne/credential-service/internal/logic/v1"
	"github.com/duynhne/credential-service/middleware"
)

// rpcRequest is the body of every call on the RPC endpoint.
type rpcRequest struct {
	Method string                 `json:"method" binding:"required"`
	Params domain.CredentialInput `json:"params"`
}

// Handler exposes the auth service as a single RPC endpoint.
// Dependencies are injected via the constructor; no global state.
type Handler struct {
	auth   *logicv1.AuthService
	cookie CookieSettings
}

// NewHandler creates a new Handler with the given AuthService and cookie settings.
func NewHandler(auth *logicv1.AuthService, cookie CookieSettings) *Handler {
	return &Handler{auth: auth, cookie: cookie}
}

// RegisterRoutes registers the RPC route on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/rpc", h.RPC)
}

// RPC decodes a call and dispatches it by method name.
func (h *Handler) RPC(c *gin.Context) {
	ctx, span := middleware.StartSpan(c.Request.Context(), "http.request", trace.WithAttributes(
		attribute.String("layer", "web"),
		attribute.String("method", c.Request.Method),
		attribute.String("path", c.Request.URL.Path),
	))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req rpcRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.SetAttributes(attribute.Bool("request.valid", false))
		span.RecordError(err)
		logger.FromContext(ctx).Warn().Err(err).Msg("Invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	span.SetAttributes(
		attribute.Bool("request.valid", true),
		attribute.String("rpc.method", req.Method),
	)

	switch req.Method {
	case logicv1.OpRegister:
		h.authenticate(c, req.Method, h.auth.Register, req.Params)
	case logicv1.OpLogin:
		h.authenticate(c, req.Method, h.auth.Login, req.Params)
	case logicv1.OpWhoami:
		h.whoami(c)
	case logicv1.OpLogout:
		h.logout(c)
	default:
		span.SetAttributes(attribute.Bool("request.valid", false))
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown method " + req.Method})
	}
}

type authFunc func(ctx context.Context, input domain.CredentialInput) (domain.AuthResult, error)

// authenticate runs register or login. On success the session cookie is
// replaced and the session it previously carried is revoked.
func (h *Handler) authenticate(c *gin.Context, method string, fn authFunc, input domain.CredentialInput) {
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)

	result, err := fn(ctx, input)
	if err != nil {
		logger.LogError(log, method+" failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if result.Failed() {
		c.JSON(http.StatusOK, result)
		return
	}

	if previous := h.cookie.token(c); previous != "" && previous != result.Session.Token {
		if err := h.auth.Revoke(ctx, previous); err != nil {
			log.Warn().Err(err).Msg("Failed to revoke replaced session")
		}
	}
	h.cookie.set(c, result.Session.Token)

	log.Info().Int64("user_id", result.User.ID).Str("method", method).Msg("Session established")
	c.JSON(http.StatusOK, result)
}

func (h *Handler) whoami(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := h.auth.Whoami(ctx, h.cookie.token(c))
	if err != nil {
		logger.LogError(logger.FromContext(ctx), "whoami failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, domain.AuthResult{User: user})
}

func (h *Handler) logout(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.auth.Logout(ctx, h.cookie.token(c)); err != nil {
		logger.LogError(logger.FromContext(ctx), "logout failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.cookie.clear(c)
	c.JSON(http.StatusOK, domain.AuthResult{})
}
