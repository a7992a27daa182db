package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	drinkapp "github.com/astro-web3/coffee-drinks/internal/app/drink"
	drinkdomain "github.com/astro-web3/coffee-drinks/internal/domain/drink"
	"github.com/astro-web3/coffee-drinks/pkg/tracer"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type Handler struct {
	commandService *drinkapp.CommandService
	queryService   *drinkapp.QueryService
}

func NewHandler(commandService *drinkapp.CommandService, queryService *drinkapp.QueryService) *Handler {
	return &Handler{
		commandService: commandService,
		queryService:   queryService,
	}
}

type createDrinkRequest struct {
	Title  string             `json:"title"`
	Recipe drinkdomain.Recipe `json:"recipe"`
}

type updateDrinkRequest struct {
	Title  *string             `json:"title"`
	Recipe *drinkdomain.Recipe `json:"recipe"`
}

func (h *Handler) ListDrinks(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.ListDrinks")
	defer span.End()

	drinks, err := h.queryService.ListDrinks(ctx)
	if err != nil {
		tracer.Fail(span, err)
		writeError(c, err)
		return
	}

	out := make([]drinkdomain.ShortDrink, 0, len(drinks))
	for _, d := range drinks {
		out = append(out, d.Short())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": out})
}

func (h *Handler) ListDrinkDetails(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.ListDrinkDetails")
	defer span.End()

	drinks, err := h.queryService.ListDrinks(ctx)
	if err != nil {
		tracer.Fail(span, err)
		writeError(c, err)
		return
	}

	out := make([]drinkdomain.LongDrink, 0, len(drinks))
	for _, d := range drinks {
		out = append(out, d.Long())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": out})
}

func (h *Handler) CreateDrink(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.CreateDrink")
	defer span.End()

	var req createDrinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		tracer.Fail(span, err)
		writeError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	d, err := h.commandService.CreateDrink(ctx, drinkdomain.CreateInput{
		Title:  req.Title,
		Recipe: req.Recipe,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": []drinkdomain.LongDrink{d.Long()}})
}

func (h *Handler) UpdateDrink(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.UpdateDrink")
	defer span.End()

	id, err := drinkID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	span.SetAttributes(attribute.Int64("drink.id", int64(id)))

	// an empty body is an empty patch
	var req updateDrinkRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		tracer.Fail(span, err)
		writeError(c, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	d, err := h.commandService.UpdateDrink(ctx, id, drinkdomain.Patch{
		Title:  req.Title,
		Recipe: req.Recipe,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "drinks": []drinkdomain.LongDrink{d.Long()}})
}

func (h *Handler) DeleteDrink(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.DeleteDrink")
	defer span.End()

	id, err := drinkID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	span.SetAttributes(attribute.Int64("drink.id", int64(id)))

	if err := h.commandService.DeleteDrink(ctx, id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "delete": id})
}

func drinkID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid drink id %q", errBadRequest, c.Param("id"))
	}
	return uint(id), nil
}
