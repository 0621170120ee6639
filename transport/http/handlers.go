package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/zklogin"
	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/saltcrypt"
)

const defaultNFTLimit = 50

// WalletHandlers contains HTTP handlers for the wallet endpoints
type WalletHandlers struct {
	client zklogin.Client
}

// NewWalletHandlers creates new wallet handlers
func NewWalletHandlers(client zklogin.Client) *WalletHandlers {
	return &WalletHandlers{client: client}
}

// Landing is the redirect target. The token arrives in the URL fragment, which never
// reaches the server, so the page posts it back.
func (h *WalletHandlers) Landing(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(landingPage))
}

// Callback consumes the fragment posted by the landing page
func (h *WalletHandlers) Callback(c *gin.Context) {
	var req struct {
		Fragment string `json:"fragment" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.client.Resume(c.Request.Context(), req.Fragment); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.client.Status())
}

// Login starts a new session
func (h *WalletHandlers) Login(c *gin.Context) {
	if err := h.client.Login(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, h.client.Status())
}

// FetchEpoch retries a failed epoch fetch
func (h *WalletHandlers) FetchEpoch(c *gin.Context) {
	if err := h.client.FetchEpoch(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.client.Status())
}

// Advance retries the automatic steps left pending by a failure
func (h *WalletHandlers) Advance(c *gin.Context) {
	if err := h.client.Advance(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.client.Status())
}

// Session reports the session status
func (h *WalletHandlers) Session(c *gin.Context) {
	c.JSON(http.StatusOK, h.client.Status())
}

// Reset discards the session
func (h *WalletHandlers) Reset(c *gin.Context) {
	if err := h.client.Reset(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.client.Status())
}

// DeleteSalt removes the persistent salt
func (h *WalletHandlers) DeleteSalt(c *gin.Context) {
	if err := h.client.DeleteSalt(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.client.Status())
}

// Balance returns 409 until an address is derived
func (h *WalletHandlers) Balance(c *gin.Context) {
	bal, err := h.client.Balance(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if bal == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "No address derived yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"address":   bal.Owner,
		"coin_type": bal.CoinType,
		"objects":   bal.Objects,
		"mist":      strconv.FormatUint(bal.TotalMist, 10),
		"sui":       bal.SUI().String(),
	})
}

// Transfer sends the configured test transfer
func (h *WalletHandlers) Transfer(c *gin.Context) {
	res, err := h.client.Transfer(c.Request.Context())
	writeResult(c, res, err)
}

// Mint mints an NFT with the posted metadata
func (h *WalletHandlers) Mint(c *gin.Context) {
	var meta core.NFTMetadata
	if err := c.ShouldBindJSON(&meta); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := h.client.Mint(c.Request.Context(), meta)
	writeResult(c, res, err)
}

// ListNFTs accepts an optional limit query parameter
func (h *WalletHandlers) ListNFTs(c *gin.Context) {
	limit := defaultNFTLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	objects, err := h.client.NFTs(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(objects))
	for _, obj := range objects {
		out = append(out, gin.H{"object_id": obj.ObjectID, "type": obj.Type, "display": obj.Display})
	}
	c.JSON(http.StatusOK, gin.H{"nfts": out})
}

// writeResult treats a nil result without error as a submission that was not attempted
func writeResult(c *gin.Context, res *core.TransactionResult, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Session not ready or submission in flight"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"digest":       res.Digest,
		"intent":       res.Intent,
		"submitted_at": res.SubmittedAt,
	})
}

// writeError maps domain errors to status codes
func writeError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError

	var subErr *core.SubmissionError
	switch {
	case errors.Is(err, core.ErrMalformedToken):
		statusCode = http.StatusBadRequest
	case errors.Is(err, core.ErrLoginAborted), errors.Is(err, core.ErrInvalidTransition):
		statusCode = http.StatusConflict
	case errors.Is(err, saltcrypt.ErrDecrypt):
		statusCode = http.StatusUnauthorized
	case errors.As(err, &subErr):
		switch subErr.Kind {
		case core.SubmissionNetwork:
			statusCode = http.StatusBadGateway
		case core.SubmissionRejected, core.SubmissionInsufficient:
			statusCode = http.StatusUnprocessableEntity
		}
	}

	c.JSON(statusCode, gin.H{"error": err.Error()})
}
