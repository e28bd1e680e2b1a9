package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-tests-api/internal/models"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
	"github.com/noah-isme/sma-tests-api/pkg/response"
)

type tokenIssuer interface {
	IssueToken(req models.IssueTokenRequest) (*models.TokenResponse, error)
}

// AuthHandler lets administrators mint access tokens for integrations.
type AuthHandler struct {
	issuer tokenIssuer
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(issuer tokenIssuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

type issueTokenPayload struct {
	models.IssueTokenRequest
	TTLMinutes int `json:"ttl_minutes"`
}

// IssueToken godoc
// @Summary Issue access token
// @Description Administrators mint tokens for service accounts and teachers. An optional ttl_minutes overrides the default lifetime.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.IssueTokenRequest true "Principal"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/tokens [post]
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var payload issueTokenPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid token payload"))
		return
	}
	if payload.TTLMinutes < 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "ttl_minutes must not be negative"))
		return
	}
	req := payload.IssueTokenRequest
	req.TTL = time.Duration(payload.TTLMinutes) * time.Minute

	token, err := h.issuer.IssueToken(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, token)
}

// Me godoc
// @Summary Current principal
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"user_id":   claims.UserID,
		"role":      claims.Role,
		"full_name": claims.FullName,
	}, nil)
}
