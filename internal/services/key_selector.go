package services

import "assistant-api/internal/models"

// SelectUsableKeys returns the candidates still below the daily call limit for model,
// in their original order. Every candidate passes when the model has no limit.
func SelectUsableKeys(model string, candidates []string, ledger *models.UsageLedger, limits models.DailyLimits) []string {
	limit := limits.Limit(model)
	usable := make([]string, 0, len(candidates))
	for _, key := range candidates {
		if key == "" {
			continue
		}
		if limit == 0 || ledger == nil || ledger.CallCount(models.IdentifierFor(key), model) < limit {
			usable = append(usable, key)
		}
	}
	return usable
}
