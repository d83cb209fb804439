// Package record holds the pure rules applied to service records: the
// device count codec, expiration status derivation, phone formatting and
// calendar date handling. Nothing here touches the clock, the database or
// the network, so the same functions back list filters, per-row badges,
// the CSV importer and the CLI.
package record
