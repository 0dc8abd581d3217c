// Package event provides the event record type, the "is this today?" date classifier,
// and the aggregation that groups records by region and venue.
//
// Dates are kept as the free text found on the source page. Classification works on
// that text with two passes: a lenient pass (IsToday) that maximizes recall, and a
// strict pass (StrictIsToday) that trims obvious false positives before a record is
// allowed into the day's report.
package event
