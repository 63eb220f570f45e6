package service

import (
	"time"

	"autorenta/internal/errors"
	"autorenta/internal/utils"
)

// TotalPrice derives the immutable price of a reservation from its
// inclusive date range and the car's per-day rate. A same-day rental bills
// one day. Range validation upstream should already rule out non-positive
// results; the check here is the last line of defense.
func TotalPrice(start, end time.Time, perDayRate int) (int, error) {
	if end.Before(start) {
		return 0, errors.E(errors.KindInvalidRange, "end date before start date")
	}
	total := utils.BilledDays(start, end) * perDayRate
	if total <= 0 {
		return 0, errors.Ef(errors.KindInvalidRange, "computed price %d is not positive", total)
	}
	return total, nil
}
