package pricing

/* ===================== Pricing Table ===================== */
/* Static mapping duration (months) → total tuition in minor units.
   Two-installment model: 60% initial, 40% balance.
*/

var tuitionByDuration = map[int]int{
	4:  400_000,
	8:  800_000,
	12: 1_100_000,
}

// Tuition returns the total cost for a plan duration.
func Tuition(durationMonths int) (int, bool) {
	total, ok := tuitionByDuration[durationMonths]
	return total, ok
}

// Split derives the 60/40 installment shares. The initial share is
// round-half-up of 60% and the balance is the remainder, so the two always
// sum exactly to the total — no rounding drift between call sites.
func Split(total int) (initial, balance int) {
	initial = (total*6 + 5) / 10
	return initial, total - initial
}

// SupportedDurations lists the plan durations the table knows about.
func SupportedDurations() []int {
	return []int{4, 8, 12}
}
