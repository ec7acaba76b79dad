package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"cardledger/internal/core"
	"cardledger/internal/metrics"
	"cardledger/internal/services"
)

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.dashboard.Balances()
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	type balanceEntry struct {
		CardType          string `json:"cardType"`
		ExternalAccountID string `json:"externalAccountId,omitempty"`
		CurrentBalance    string `json:"currentBalance"`
		LastCalculated    string `json:"lastCalculated"`
	}
	out := struct {
		Balances []balanceEntry `json:"balances"`
		Total    string         `json:"total"`
		Count    int            `json:"count"`
	}{Balances: make([]balanceEntry, 0, len(balances)), Count: len(balances)}

	for _, b := range balances {
		out.Balances = append(out.Balances, balanceEntry{
			CardType:          b.CardType,
			ExternalAccountID: b.ExternalAccountID,
			CurrentBalance:    core.FormatUSD(b.CurrentBalance),
			LastCalculated:    b.LastCalculated.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	out.Total = core.FormatUSD(metrics.TotalBalance(balances))

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.dashboard.Cards()
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	type cardEntry struct {
		CardType       string `json:"cardType"`
		LastFive       string `json:"lastFive,omitempty"`
		IsPrimary      bool   `json:"isPrimary"`
		CreditLimit    string `json:"creditLimit"`
		LimitType      string `json:"limitType"`
		IsBrandPartner bool   `json:"isBrandPartner"`
		ClosingDay     int    `json:"closingDay"`
		DueDay         int    `json:"dueDay"`
		AnnualFee      string `json:"annualFee"`
	}
	out := make([]cardEntry, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardEntry{
			CardType:       c.CardType,
			LastFive:       c.LastFive,
			IsPrimary:      c.IsPrimary,
			CreditLimit:    core.FormatUSD(c.CreditLimit),
			LimitType:      string(c.LimitType),
			IsBrandPartner: c.IsBrandPartner,
			ClosingDay:     c.ClosingDay,
			DueDay:         c.DueDay,
			AnnualFee:      core.FormatUSD(c.AnnualFee),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"cards": out, "count": len(out)})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.dashboard.Transactions(parseCriteria(r))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	type txEntry struct {
		Date          string `json:"date"`
		Description   string `json:"description"`
		Amount        string `json:"amount"`
		Account       string `json:"account"`
		LastFive      string `json:"lastFive,omitempty"`
		Category      string `json:"category,omitempty"`
		PointMultiple string `json:"pointMultiple"`
		IsCharge      bool   `json:"isCharge"`
	}
	out := make([]txEntry, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, txEntry{
			Date:          t.Date.String(),
			Description:   t.Description,
			Amount:        core.FormatUSD(t.Amount),
			Account:       t.AccountIdentifier,
			LastFive:      t.LastFive,
			Category:      t.Category,
			PointMultiple: t.PointMultiple.String(),
			IsCharge:      t.IsCharge(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": out, "count": len(out)})
}

func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := s.dashboard.Rewards(parseCriteria(r))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	type rewardEntry struct {
		Date          string `json:"date"`
		AwardCode     string `json:"awardCode,omitempty"`
		Card          string `json:"card"`
		LastFive      string `json:"lastFive,omitempty"`
		Description   string `json:"description,omitempty"`
		Points        int64  `json:"points"`
		RequiredSpend int64  `json:"requiredSpend,omitempty"`
	}
	out := make([]rewardEntry, 0, len(rewards))
	for _, rw := range rewards {
		out = append(out, rewardEntry{
			Date:          rw.Date.String(),
			AwardCode:     rw.AwardCode,
			Card:          rw.Card,
			LastFive:      rw.LastFive,
			Description:   rw.Description,
			Points:        rw.Points,
			RequiredSpend: rw.RequiredSpend,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"rewards": out, "count": len(out)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.dashboard.Summarize()
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	entries, err := s.dashboard.CategorySpend(parseCriteria(r))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}

	type categoryEntry struct {
		Category   string `json:"category"`
		Amount     string `json:"amount"`
		Percentage string `json:"percentage"`
	}
	out := make([]categoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, categoryEntry{
			Category:   e.Category,
			Amount:     core.FormatUSD(e.Amount),
			Percentage: e.Percentage.StringFixed(2),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": out, "count": len(out)})
}

func (s *Server) handleCardBreakdown(w http.ResponseWriter, r *http.Request) {
	entries, err := s.dashboard.CardBreakdown(parseCriteria(r))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": entries, "count": len(entries)})
}

func (s *Server) handleMaxMultiple(w http.ResponseWriter, r *http.Request) {
	result, ok, err := s.dashboard.MaxMultipleSpend(parseCriteria(r))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"available": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available": true,
		"multiple":  result.Multiple.String(),
		"spend":     core.FormatUSD(result.Spend),
		"count":     result.Transactions,
	})
}

type snapshotEntry struct {
	CardType          string `json:"cardType"`
	ExternalAccountID string `json:"externalAccountId,omitempty"`
	Balance           string `json:"balance"`
	CalculatedAt      string `json:"calculatedAt"`
}

func snapshotEntries(balances []core.CalculatedBalance) []snapshotEntry {
	out := make([]snapshotEntry, 0, len(balances))
	for _, b := range balances {
		out = append(out, snapshotEntry{
			CardType:          b.CardType,
			ExternalAccountID: b.ExternalAccountID,
			Balance:           core.FormatUSD(b.CurrentBalance),
			CalculatedAt:      b.LastCalculated.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return out
}

// handleSnapshots serves the last persisted run's balances, the audit
// counterpart of the live /api/balances view.
func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.dashboard.LatestSnapshots(r.Context())
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snapshotEntries(snapshots),
		"count":     len(snapshots),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	card := strings.TrimSpace(r.URL.Query().Get("card"))
	if card == "" {
		writeError(w, http.StatusBadRequest, "card parameter is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	history, err := s.dashboard.SnapshotHistory(r.Context(), card, limit)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"card":    card,
		"history": snapshotEntries(history),
		"count":   len(history),
	})
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	report, err := s.dashboard.ValidationReport()
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"clean":            report.Clean(),
		"unresolvedLabels": report.UnresolvedLabels,
		"inactiveCards":    report.InactiveCards,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	runID, err := s.dashboard.RequestRefresh(r.Context(), "api")
	if err != nil {
		slog.ErrorContext(r.Context(), "Refresh request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	s.responses.Purge()
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}

func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotReady) {
		writeError(w, http.StatusServiceUnavailable, "dashboard not initialized")
		return
	}
	if errors.Is(err, services.ErrNoSnapshotStore) {
		writeError(w, http.StatusNotFound, "snapshot store not configured")
		return
	}
	slog.ErrorContext(r.Context(), "Dashboard read failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
