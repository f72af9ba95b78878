// Package types provides shared type definitions for lynxcheck.
//
// These are the values that flow between the checking core and its hosts:
// alerts reported by the checking service, check results cached per text,
// chunks produced by the splitter, and source fragments extracted from files.
//
// # Ranges
//
// Every position is a half-open byte range:
//
//	r := types.NewRange(3, 8)
//	r.Substring("// Short comment") // "Short"
//
// Alert ranges are expressed in the coordinates of the text that was sent for
// checking. Hosts translate them back into file coordinates before display.
//
// # Check Results
//
// CheckResult bundles the checked text, its alerts, and the raw service log.
// The zero value is EMPTY and means "nothing known yet". A failed check is
// distinguishable from an empty one:
//
//	res := types.FailedResult(text, err)
//	res.Failed() // true
//
// # Alerts
//
// Alerts render themselves for display:
//
//	alert.FullMessage() // "Grammar mistake: Missing article. Consider adding one."
//
// Group "Enhancement" reads as a suggestion rather than a mistake.
package types
