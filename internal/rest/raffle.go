package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rakhargo/LotteryFoundry/internal/raffle"
	"github.com/rakhargo/LotteryFoundry/internal/services"
	"github.com/rakhargo/LotteryFoundry/internal/store"
)

// WinnerReader lists recent winners for the read endpoint.
type WinnerReader interface {
	Recent(ctx context.Context) ([]store.WinnerRecord, error)
}

// RoundReader lists archived rounds for the read endpoint.
type RoundReader interface {
	Recent(ctx context.Context, limit int) ([]store.Round, error)
}

type RaffleController struct {
	service *services.RaffleService
	winners WinnerReader
	rounds  RoundReader
}

func NewRaffleController(service *services.RaffleService, winners WinnerReader, rounds RoundReader) *RaffleController {
	return &RaffleController{service: service, winners: winners, rounds: rounds}
}

func (c *RaffleController) RegisterRaffleRoutes(rg *gin.RouterGroup) {
	rg.POST("/enter", c.handleEnter)
	rg.GET("/state", c.handleState)
	rg.GET("/upkeep", c.handleCheckUpkeep)
	rg.POST("/upkeep", c.handlePerformUpkeep)
	rg.GET("/players/:index", c.handlePlayer)
	rg.GET("/winners", c.handleWinners)
	rg.GET("/rounds", c.handleRounds)
}

func (c *RaffleController) handleEnter(ctx *gin.Context) {
	var req struct {
		Participant string `json:"participant"`
		Amount      uint64 `json:"amount"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Participant == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "participant is required"})
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	err := c.service.Enter(reqCtx, req.Participant, req.Amount)
	switch {
	case errors.Is(err, raffle.ErrInsufficientPayment):
		ctx.JSON(http.StatusPaymentRequired, gin.H{
			"error":        err.Error(),
			"entrance_fee": c.service.Raffle().Config().EntranceFee,
		})
	case errors.Is(err, raffle.ErrRoundClosed):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusCreated, gin.H{
			"participant": req.Participant,
			"players":     c.service.Raffle().Players(),
			"pot":         c.service.Raffle().Pot(),
		})
	}
}

func (c *RaffleController) handleState(ctx *gin.Context) {
	r := c.service.Raffle()
	cfg := r.Config()
	ctx.JSON(http.StatusOK, gin.H{
		"state":            r.State(),
		"players":          r.Players(),
		"pot":              r.Pot(),
		"recent_winner":    r.RecentWinner(),
		"pending_request":  r.PendingRequest(),
		"settled_rounds":   r.SettledRounds(),
		"last_round_start": r.LastRoundStart(),
		"entrance_fee":     cfg.EntranceFee,
		"interval":         cfg.Interval.String(),
		"key_hash":         cfg.KeyHash,
		"subscription_id":  cfg.SubscriptionID,
		"callback_gas":     cfg.CallbackGasLimit,
	})
}

func (c *RaffleController) handleCheckUpkeep(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.service.CheckUpkeep())
}

func (c *RaffleController) handlePerformUpkeep(ctx *gin.Context) {
	reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()
	requestID, err := c.service.PerformUpkeep(reqCtx)
	if err != nil {
		var notNeeded *raffle.UpkeepNotNeededError
		if errors.As(err, &notNeeded) {
			ctx.JSON(http.StatusConflict, gin.H{
				"error":   "upkeep not needed",
				"state":   notNeeded.State,
				"players": notNeeded.Players,
				"pot":     notNeeded.Pot,
				"elapsed": notNeeded.Elapsed.String(),
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"request_id": requestID})
}

func (c *RaffleController) handlePlayer(ctx *gin.Context) {
	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}
	player, ok := c.service.Raffle().Player(index)
	if !ok {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no player at index"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"index": index, "player": player})
}

func (c *RaffleController) handleWinners(ctx *gin.Context) {
	winners, err := c.winners.Recent(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, winners)
}

func (c *RaffleController) handleRounds(ctx *gin.Context) {
	limit := 10
	if raw := ctx.Query("limit"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = val
	}
	rounds, err := c.rounds.Recent(ctx.Request.Context(), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, rounds)
}
