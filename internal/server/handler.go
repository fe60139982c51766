package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tripsmart/server/internal/agent/model"
	"github.com/tripsmart/server/internal/agent/pipeline"
	errx "github.com/tripsmart/server/internal/core/error"
	"github.com/tripsmart/server/internal/presenter"
	logx "github.com/tripsmart/server/pkg/logger"
)

type planRequest struct {
	Origin       string   `json:"origin"`
	Destination  string   `json:"destination"`
	Interests    []string `json:"interests"`
	Season       string   `json:"season"`
	DurationDays int      `json:"duration_days"`
	BudgetLevel  string   `json:"budget_level"`
	TravelType   string   `json:"travel_type"`
}

func (r planRequest) preferences() (model.TravelPreferences, error) {
	season, seasonErr := model.ParseSeason(r.Season)
	budget, budgetErr := model.ParseBudgetLevel(r.BudgetLevel)
	if err := errors.Join(seasonErr, budgetErr); err != nil {
		return model.TravelPreferences{}, errx.InvalidPreferences(err)
	}
	return model.TravelPreferences{
		Origin:       r.Origin,
		Destination:  r.Destination,
		Interests:    r.Interests,
		Season:       season,
		DurationDays: r.DurationDays,
		BudgetLevel:  budget,
		TravelType:   r.TravelType,
	}, nil
}

type PlanHandler struct {
	runner pipeline.Runner
	repo   model.PlanRepository
}

func NewPlanHandler(runner pipeline.Runner, repo model.PlanRepository) *PlanHandler {
	return &PlanHandler{runner: runner, repo: repo}
}

// Create runs the pipeline under the request context. A halted plan is
// still returned in the body with the status of its error.
func (h *PlanHandler) Create(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, errx.InvalidPreferences(err))
		return
	}
	prefs, err := req.preferences()
	if err != nil {
		writeError(c, err)
		return
	}

	plan, runErr := h.runner.Run(c.Request.Context(), prefs)
	if plan == nil {
		writeError(c, runErr)
		return
	}
	view, err := presenter.NewView(plan, debugRequested(c))
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusOK
	if runErr != nil {
		status = errx.StatusOf(runErr)
	}
	c.JSON(status, view)
}

func (h *PlanHandler) Get(c *gin.Context) {
	plan, err := h.repo.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	view, err := presenter.NewView(plan, debugRequested(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PlanHandler) Delete(c *gin.Context) {
	if err := h.repo.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func debugRequested(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("debug"))
	return v
}

func writeError(c *gin.Context, err error) {
	status := errx.StatusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError && errx.KindOf(err) == errx.KindSystem {
		logx.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("request failed")
		msg = errx.SystemErrorMessage
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"error_kind": errx.KindOf(err),
	})
}
