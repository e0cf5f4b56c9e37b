package engine

import (
	"fmt"
	"time"

	"autotradev1/internal/markethours"
	"autotradev1/internal/model"
)

// safetyState holds the session counters the safety gate reads. Reset
// only by constructing a fresh engine (one engine per trading day).
type safetyState struct {
	dailyPnL      float64
	consecLosses  int
	cooldownUntil time.Time

	wins, losses           int
	grossProfit, grossLoss float64
	best, worst            float64
}

// recordClose folds one realized P&L into the counters. Two consecutive
// losses start a cooldown window; a win clears the streak.
func (s *safetyState) recordClose(pnl float64, now time.Time, cooldown time.Duration) {
	s.dailyPnL += pnl
	if s.wins+s.losses == 0 {
		s.best, s.worst = pnl, pnl
	}
	if pnl > s.best {
		s.best = pnl
	}
	if pnl < s.worst {
		s.worst = pnl
	}
	if pnl >= 0 {
		s.wins++
		s.grossProfit += pnl
		s.consecLosses = 0
		return
	}
	s.losses++
	s.grossLoss += -pnl
	s.consecLosses++
	if s.consecLosses >= cooldownAfterLosses && cooldown > 0 {
		s.cooldownUntil = now.Add(cooldown)
	}
}

// checkSafetyLocked runs every pre-trade gate in order and returns the
// first failure. All gates must pass before any symbol is considered.
// The daily-loss comparison is inclusive: hitting the cap exactly
// blocks new entries. Caller holds e.mu.
func (e *Engine) checkSafetyLocked(now time.Time) (bool, string) {
	if !markethours.IsMarketOpen(now) {
		if name := markethours.HolidayName(now); name != "" {
			return false, fmt.Sprintf("Market closed — scan skipped (%s)", name)
		}
		return false, "Market closed — scan skipped"
	}
	if markethours.MinutesOfDay(now) >= e.params.NoNewTradesAfterMin {
		return false, "Past entry cutoff — no new trades today"
	}
	if e.safety.dailyPnL <= -e.params.MaxDailyLoss {
		return false, fmt.Sprintf("Daily loss cap hit (₹%.2f / ₹%.2f)",
			-e.safety.dailyPnL, e.params.MaxDailyLoss)
	}
	if e.safety.consecLosses >= e.params.MaxConsecLosses {
		return false, fmt.Sprintf("Consecutive loss cap hit (%d)", e.safety.consecLosses)
	}
	if len(e.active) >= e.params.MaxOpenPositions {
		return false, fmt.Sprintf("Max positions open (%d/%d)",
			len(e.active), e.params.MaxOpenPositions)
	}
	if e.deployedLocked() >= e.params.MaxDeployedPercent/100*e.params.Capital {
		return false, fmt.Sprintf("Capital deployment cap hit (₹%.0f deployed)", e.deployedLocked())
	}
	if now.Before(e.safety.cooldownUntil) {
		return false, fmt.Sprintf("Cooldown active — %.0fm remaining",
			e.safety.cooldownUntil.Sub(now).Minutes())
	}
	return true, ""
}

// SafetyStatus reports gate headroom for dashboards and the API.
func (e *Engine) SafetyStatus() model.SafetyStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.deps.Now()
	used := 0.0
	if e.safety.dailyPnL < 0 {
		used = -e.safety.dailyPnL
	}
	cooldown := 0.0
	if now.Before(e.safety.cooldownUntil) {
		cooldown = e.safety.cooldownUntil.Sub(now).Seconds()
	}
	deployed := e.deployedLocked()

	status := "safe"
	switch {
	case used >= e.params.MaxDailyLoss || e.safety.consecLosses >= e.params.MaxConsecLosses:
		status = "danger"
	case used >= e.params.MaxDailyLoss*0.7 || cooldown > 0 ||
		len(e.active) >= e.params.MaxOpenPositions:
		status = "warning"
	}

	return model.SafetyStatus{
		DailyLossUsed:        used,
		DailyLossLimit:       e.params.MaxDailyLoss,
		CapitalDeployed:      deployed,
		CapitalAvailable:     e.params.MaxDeployedPercent/100*e.params.Capital - deployed,
		OpenPositions:        len(e.active),
		MaxPositions:         e.params.MaxOpenPositions,
		ConsecutiveLosses:    e.safety.consecLosses,
		MaxConsecutiveLosses: e.params.MaxConsecLosses,
		CooldownRemaining:    cooldown,
		Status:               status,
	}
}

// TodayStats aggregates the session's realized trades.
func (e *Engine) TodayStats() model.TodayStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.safety
	total := s.wins + s.losses
	stats := model.TodayStats{
		TotalPnL:        s.dailyPnL,
		TotalPnLPercent: s.dailyPnL / e.params.Capital * 100,
		TotalTrades:     total,
		Wins:            s.wins,
		Losses:          s.losses,
		BestTrade:       s.best,
		WorstTrade:      s.worst,
	}
	if total > 0 {
		stats.WinRate = float64(s.wins) / float64(total) * 100
	}
	switch {
	case s.grossLoss > 0:
		stats.ProfitFactor = s.grossProfit / s.grossLoss
	case s.grossProfit > 0:
		stats.ProfitFactor = 999
	}
	if s.wins > 0 {
		stats.AvgWin = s.grossProfit / float64(s.wins)
	}
	if s.losses > 0 {
		stats.AvgLoss = s.grossLoss / float64(s.losses)
	}
	return stats
}
