package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/SscSPs/oversight/internal/dto"
	"github.com/SscSPs/oversight/internal/middleware"

	"github.com/gin-gonic/gin"
)

const oauthStateCookie = "oauth_state"

// googleOAuthHandler drives the authorization-code flow against Google.
type googleOAuthHandler struct {
	auth *AuthHandler
}

func newGoogleOAuthHandler(auth *AuthHandler) *googleOAuthHandler {
	return &googleOAuthHandler{auth: auth}
}

// LoginRedirect godoc
// @Summary Start Google sign-in
// @Description Redirects to Google's consent screen with a CSRF state cookie.
// @Tags oauth
// @Success 307 "Redirect to Google"
// @Router /auth/google/login [get]
func (g *googleOAuthHandler) LoginRedirect(c *gin.Context) {
	ctx := c.Request.Context()
	state, err := g.auth.googleOAuthService.GenerateStateString(ctx)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Failed to generate OAuth state", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to start Google sign-in"})
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/api/v1/auth/google", "", g.auth.cfg.IsProduction, true)
	c.Redirect(http.StatusTemporaryRedirect, g.auth.googleOAuthService.GetGoogleLoginURL(ctx, state))
}

// Callback godoc
// @Summary Google sign-in callback
// @Description Completes the code flow, sets the refresh cookie and redirects to the frontend with the access token in the fragment.
// @Tags oauth
// @Param state query string true "CSRF state"
// @Param code query string true "Authorization code"
// @Success 307 "Redirect to frontend"
// @Router /auth/google/callback [get]
func (g *googleOAuthHandler) Callback(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromCtx(ctx)

	expected, err := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/api/v1/auth/google", "", g.auth.cfg.IsProduction, true)
	if err != nil || expected == "" || expected != c.Query("state") {
		logger.Warn("OAuth state mismatch")
		g.redirectWithError(c, "invalid_state")
		return
	}
	code := c.Query("code")
	if code == "" {
		g.redirectWithError(c, "missing_code")
		return
	}

	token, err := g.auth.googleOAuthService.ExchangeCodeForToken(ctx, code)
	if err != nil {
		logger.Error("Failed to exchange authorization code with Google", slog.String("error", err.Error()))
		g.redirectWithError(c, "exchange_failed")
		return
	}
	idToken, _ := token.Extra("id_token").(string)
	user, err := g.auth.userFromGoogleIDToken(ctx, idToken)
	if err != nil {
		logger.Warn("Google sign-in rejected", slog.String("error", err.Error()))
		g.redirectWithError(c, "not_authorized")
		return
	}

	accessToken, _, err := g.auth.tokenService.GenerateAccessToken(ctx, user)
	if err == nil {
		err = g.auth.issueRefreshToken(c, user)
	}
	if err != nil {
		logger.Error("Failed to issue tokens after Google sign-in", slog.String("error", err.Error()))
		g.redirectWithError(c, "server_error")
		return
	}
	target := strings.TrimRight(g.auth.cfg.FrontendBaseURL, "/") + "/auth/callback#token=" + url.QueryEscape(accessToken)
	c.Redirect(http.StatusTemporaryRedirect, target)
}

// ExchangeCode godoc
// @Summary Exchange an authorization code for an access token
// @Description For frontends that run the Google code flow themselves.
// @Tags oauth
// @Accept  json
// @Produce  json
// @Param   code body dto.ExchangeCodeRequest true "Authorization code"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} ErrorResponse "Invalid authorization code"
// @Failure 401 {object} ErrorResponse "User not provisioned"
// @Failure 502 {object} ErrorResponse "Google unavailable"
// @Router /auth/google/exchange-code [post]
func (g *googleOAuthHandler) ExchangeCode(c *gin.Context) {
	ctx := c.Request.Context()
	logger := middleware.GetLoggerFromCtx(ctx)

	var req dto.ExchangeCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	token, err := g.auth.googleOAuthService.ExchangeCodeForToken(ctx, req.Code)
	if err != nil {
		logger.Error("Failed to exchange authorization code with Google", slog.String("error", err.Error()))
		lower := strings.ToLower(err.Error())
		if strings.Contains(lower, "invalid_grant") || strings.Contains(lower, "bad request") {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid or expired authorization code"})
			return
		}
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Failed to communicate with Google"})
		return
	}

	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		respondError(c, errors.New("id_token missing from Google token response"), "Failed to retrieve ID token from Google")
		return
	}
	user, err := g.auth.userFromGoogleIDToken(ctx, idToken)
	if err != nil {
		respondError(c, err, "Failed to sign in with Google")
		return
	}
	g.auth.startSession(c, user)
}

func (g *googleOAuthHandler) redirectWithError(c *gin.Context, reason string) {
	target := strings.TrimRight(g.auth.cfg.FrontendBaseURL, "/") + "/login?error=" + url.QueryEscape(reason)
	c.Redirect(http.StatusTemporaryRedirect, target)
}
