// Package matcher provides pattern matching with a hard work budget.
//
// Search pages come from sites we do not control. A page that is malformed
// or deliberately hostile must not be able to keep a performer busy for an
// unbounded amount of time, so every Text carries a budget of rune reads
// (DefaultBudgetFactor times its length). Each read the regexp engine makes
// through the Text consumes one unit. When the budget is spent the current
// pass stops and ErrIterationExhausted is reported instead of a result.
//
// A Matcher reports the same matches as regexp.FindAll on the same text.
// Each match is searched for separately, so patterns that look at the rune
// before a match (^, \b, \B) are run through a variant that reads that
// rune too; this costs one extra read per match.
//
// Slices of a Text share the budget of the Text they were cut from, so
// repeated slicing cannot be used to obtain fresh budget.
//
// # Usage
//
//	text := matcher.New(page)
//	m := text.FindAll(rowPattern)
//	for m.Next() {
//	    row := m.Match()
//	    id := row.Named("id")
//	    ...
//	}
//	if err := m.Err(); err != nil {
//	    // page could not be parsed within budget
//	}
package matcher
