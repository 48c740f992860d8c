// Package valuation rebuilds the day by day valuation history of a holding
// from its recorded activities. It is designed to be auditable: every derived
// value carries the trace of the steps that produced it.
//
// The core functionalities include:
//   - Adjustment Pipeline: an ordered list of strategies normalizing the
//     quantity and unit price of each activity (stock split restatement,
//     price back-filling from market data) while recording a trace.
//   - Snapshot Calculator: one snapshot per day between the first and the
//     last activity, carrying forward the last known market price and
//     converting amounts to a reporting currency.
//   - Exchange rates: in-memory rate tables and a caching decorator that
//     can be pre-warmed before valuing many holdings.
//   - Data Persistence: decoding holdings from JSON documents or streams and
//     encoding snapshots as JSONL.
//
// This package serves as the foundational logic for the `valuate`
// command-line tool.
package valuation
