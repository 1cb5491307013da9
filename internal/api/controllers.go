package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"leverage-core/internal/calc"
	"leverage-core/internal/events"
	"leverage-core/pkg/db"
	"leverage-core/pkg/i18n"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// calculateRequest mirrors calc.Inputs on the wire. Numeric fields are
// optional on purpose: the engine reports incomplete input through warnings
// instead of a binding error.
type calculateRequest struct {
	EntryPrice    float64 `json:"entry_price"`
	StopPrice     float64 `json:"stop_price"`
	TakeProfit    float64 `json:"take_profit"`
	ExposureMode  string  `json:"exposure_mode" binding:"omitempty,oneof=margin position"`
	MarginCapital float64 `json:"margin_capital"`
	PositionSize  float64 `json:"position_size"`
	RiskMode      string  `json:"risk_mode" binding:"omitempty,oneof=amount percent"`
	RiskValue     float64 `json:"risk_value"`
	Note          string  `json:"note" binding:"max=500"`
}

type listHistoryQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

func (q *listHistoryQuery) normalize(limits HistoryLimits) {
	if q.Limit <= 0 {
		q.Limit = limits.DefaultLimit
	}
	if q.Limit > limits.MaxLimit {
		q.Limit = limits.MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

func respondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, gin.H{
		"code":  code,
		"error": msg,
	})
}

func (r calculateRequest) inputs() calc.Inputs {
	return calc.Inputs{
		EntryPrice:    r.EntryPrice,
		StopPrice:     r.StopPrice,
		TakeProfit:    r.TakeProfit,
		ExposureMode:  calc.ExposureMode(r.ExposureMode),
		MarginCapital: r.MarginCapital,
		PositionSize:  r.PositionSize,
		RiskMode:      calc.RiskMode(r.RiskMode),
		RiskValue:     r.RiskValue,
	}
}

// warningMessages maps warning codes to localized display strings.
func warningMessages(warnings []calc.Warning) map[string]string {
	msgs := make(map[string]string, len(warnings))
	for _, w := range warnings {
		msgs[string(w)] = i18n.WarningText(string(w))
	}
	return msgs
}

// calculate runs the engine without persisting anything.
func (s *Server) calculate(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}

	res := calc.CalculateMetrics(req.inputs())
	if s.Metrics != nil {
		s.Metrics.IncrementCalculations()
	}

	c.JSON(http.StatusOK, gin.H{
		"result":           res,
		"warning_messages": warningMessages(res.Warnings),
	})
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func toRecord(userID, note string, in calc.Inputs, res calc.Result) db.Calculation {
	warnings := make([]string, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		warnings = append(warnings, string(w))
	}

	return db.Calculation{
		ID:                uuid.NewString(),
		UserID:            userID,
		EntryPrice:        in.EntryPrice,
		StopPrice:         in.StopPrice,
		TakeProfit:        in.TakeProfit,
		ExposureMode:      string(in.ExposureMode),
		MarginCapital:     in.MarginCapital,
		PositionSize:      in.PositionSize,
		RiskMode:          string(in.RiskMode),
		RiskValue:         in.RiskValue,
		Ready:             res.Ready,
		Direction:         string(res.Direction),
		MaxLeverage:       deref(res.MaxLeverage),
		MaxPositionSize:   deref(res.MaxPositionSize),
		RequiredMargin:    deref(res.RequiredMargin),
		AllowedLoss:       deref(res.AllowedLoss),
		RiskPercent:       deref(res.RiskPercentOfCapital),
		LossAtStop:        deref(res.LossAtStop),
		RiskReward:        deref(res.RiskRewardRatio),
		ExpectedProfit:    deref(res.ExpectedProfit),
		ExpectedReturnPct: deref(res.ExpectedReturnPct),
		Warnings:          warnings,
		Note:              note,
		CreatedAt:         time.Now().UTC(),
	}
}

// saveCalculation runs the engine and stores the outcome in the user's history.
func (s *Server) saveCalculation(c *gin.Context) {
	userID := CurrentUserID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "user not authenticated")
		return
	}

	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request payload")
		return
	}

	in := req.inputs()
	res := calc.CalculateMetrics(in)
	if s.Metrics != nil {
		s.Metrics.IncrementCalculations()
	}

	record := toRecord(userID, req.Note, in, res)
	start := time.Now()
	if err := s.DB.Queries().SaveCalculation(c.Request.Context(), record); err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	if s.Metrics != nil {
		s.Metrics.DBLatency.RecordDuration(time.Since(start))
		s.Metrics.IncrementHistorySaves()
	}

	if s.Bus != nil {
		s.Bus.Publish(events.EventCalculationSaved, record)
	}
	log.Printf("[HISTORY] "+i18n.Get("CalculationSaved"), record.ID, userID)

	c.JSON(http.StatusCreated, gin.H{
		"record":           record,
		"result":           res,
		"warning_messages": warningMessages(res.Warnings),
	})
}

// listHistory returns recent calculations for the authenticated user.
func (s *Server) listHistory(c *gin.Context) {
	userID := CurrentUserID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "user not authenticated")
		return
	}

	var q listHistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_QUERY", "invalid query parameters")
		return
	}
	q.normalize(s.Limits)

	records, err := s.DB.Queries().ListCalculationsByUser(c.Request.Context(), userID, q.Limit, q.Offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	if records == nil {
		records = []db.Calculation{}
	}
	c.Header("X-Result-Limit", strconv.Itoa(q.Limit))
	c.JSON(http.StatusOK, records)
}

// getHistoryItem returns a single calculation owned by the user.
func (s *Server) getHistoryItem(c *gin.Context) {
	userID := CurrentUserID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "user not authenticated")
		return
	}

	record, err := s.DB.Queries().GetCalculationByID(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "calculation not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, record)
}

// deleteHistoryItem removes one calculation owned by the user.
func (s *Server) deleteHistoryItem(c *gin.Context) {
	userID := CurrentUserID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "user not authenticated")
		return
	}

	id := c.Param("id")
	if err := s.DB.Queries().DeleteCalculation(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondError(c, http.StatusNotFound, "NOT_FOUND", "calculation not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	if s.Bus != nil {
		s.Bus.Publish(events.EventCalculationDeleted, id)
	}
	log.Printf("[HISTORY] "+i18n.Get("CalculationDeleted"), id)
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// clearHistory wipes the authenticated user's whole history.
func (s *Server) clearHistory(c *gin.Context) {
	userID := CurrentUserID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "user not authenticated")
		return
	}

	n, err := s.DB.Queries().ClearCalculationsByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	if s.Bus != nil {
		s.Bus.Publish(events.EventHistoryCleared, userID)
	}
	log.Printf("[HISTORY] "+i18n.Get("HistoryCleared"), userID)
	c.JSON(http.StatusOK, gin.H{"deleted_count": n})
}

var exportHeader = []string{
	"id", "created_at", "direction", "ready",
	"entry_price", "stop_price", "take_profit",
	"exposure_mode", "margin_capital", "position_size",
	"risk_mode", "risk_value", "allowed_loss",
	"max_leverage", "max_position_size", "required_margin",
	"risk_percent_of_capital", "loss_at_stop",
	"risk_reward_ratio", "expected_profit", "expected_return_pct",
	"warnings", "note",
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// exportHistory streams the user's history as CSV.
func (s *Server) exportHistory(c *gin.Context) {
	userID := CurrentUserID(c)
	if userID == "" {
		respondError(c, http.StatusUnauthorized, "UNAUTHENTICATED", "user not authenticated")
		return
	}

	records, err := s.DB.Queries().ListCalculationsByUser(c.Request.Context(), userID, s.Limits.MaxLimit, 0)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DB_ERROR", err.Error())
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="calculations-%s.csv"`, time.Now().UTC().Format("20060102-150405")))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeader)
	for _, r := range records {
		row := []string{
			r.ID,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.Direction,
			strconv.FormatBool(r.Ready),
			formatFloat(r.EntryPrice),
			formatFloat(r.StopPrice),
			formatFloat(r.TakeProfit),
			r.ExposureMode,
			formatFloat(r.MarginCapital),
			formatFloat(r.PositionSize),
			r.RiskMode,
			formatFloat(r.RiskValue),
			formatFloat(r.AllowedLoss),
			formatFloat(r.MaxLeverage),
			formatFloat(r.MaxPositionSize),
			formatFloat(r.RequiredMargin),
			formatFloat(r.RiskPercent),
			formatFloat(r.LossAtStop),
			formatFloat(r.RiskReward),
			formatFloat(r.ExpectedProfit),
			formatFloat(r.ExpectedReturnPct),
			strings.Join(r.Warnings, ";"),
			r.Note,
		}
		if err := w.Write(row); err != nil {
			log.Printf("[EXPORT] write row: %v", err)
			return
		}
	}
	w.Flush()
}

// getPresets lists the configured risk profiles.
func (s *Server) getPresets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"presets": s.Presets})
}

// getSystemStatus reports runtime metadata for the UI.
func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"language": s.Meta.Language,
		"version":  s.Meta.Version,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

// getMetrics exposes the system metrics snapshot.
func (s *Server) getMetrics(c *gin.Context) {
	if s.Metrics == nil {
		respondError(c, http.StatusServiceUnavailable, "METRICS_UNAVAILABLE", "metrics not available")
		return
	}
	c.JSON(http.StatusOK, s.Metrics.GetSnapshot())
}
