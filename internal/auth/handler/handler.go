// Package handler exposes the auth service over JSON.
package handler

import (
	"net/http"
	"time"

	"fieldsurvey/internal/auth/service"
	"fieldsurvey/internal/auth/transport"
	"fieldsurvey/platform/httpkit"
	"fieldsurvey/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sign-up", withBody(h, h.signUp))
	rg.POST("/sign-in", withBody(h, h.signIn))
	rg.POST("/refresh", withBody(h, h.refresh))
	rg.POST("/sign-out", h.signOut)
	rg.POST("/forgot-password", withBody(h, h.forgotPassword))
	rg.POST("/reset-password", withBody(h, h.resetPassword))
}

// withBody decodes and validates a Req before calling fn.
func withBody[Req any](h *Handler, fn func(*gin.Context, Req)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Req
		if !httpkit.BindJSON(c, &req) {
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.Details(err))
			return
		}
		fn(c, req)
	}
}

// GET /api/v1/users/me
func (h *Handler) GetMe(c *gin.Context) {
	uid, ok := httpkit.RequireUserID(c)
	if !ok {
		return
	}
	profile, err := h.svc.GetMe(c.Request.Context(), uid)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, profileResponse(profile))
}

func (h *Handler) signUp(c *gin.Context, req transport.SignUpRequest) {
	profile, err := h.svc.SignUp(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, profileResponse(profile))
}

func (h *Handler) signIn(c *gin.Context, req transport.SignInRequest) {
	tokens, err := h.svc.SignIn(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, authResponse(tokens))
}

func (h *Handler) refresh(c *gin.Context, req transport.RefreshRequest) {
	tokens, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, authResponse(tokens))
}

// signOut accepts an empty body: a client without a refresh token can
// still sign out.
func (h *Handler) signOut(c *gin.Context) {
	var req transport.SignOutRequest
	if c.Request.ContentLength != 0 && !httpkit.BindJSON(c, &req) {
		return
	}
	if err := h.svc.SignOut(c.Request.Context(), req.RefreshToken); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.MessageResponse{Message: "signed out"})
}

func (h *Handler) forgotPassword(c *gin.Context, req transport.ForgotPasswordRequest) {
	if err := h.svc.ForgotPassword(c.Request.Context(), req.Email); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.MessageResponse{Message: "if the account exists, a reset link will be sent"})
}

func (h *Handler) resetPassword(c *gin.Context, req transport.ResetPasswordRequest) {
	if err := h.svc.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.MessageResponse{Message: "password reset"})
}

func profileResponse(p service.Profile) transport.ProfileResponse {
	return transport.ProfileResponse{ID: p.ID.String(), Email: p.Email, CreatedAt: p.CreatedAt}
}

func authResponse(t service.Tokens) transport.AuthResponse {
	return transport.AuthResponse{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(t.ExpiresIn / time.Second),
		Email:        t.Email,
	}
}
