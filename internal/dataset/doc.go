// Package dataset reshapes extracted session tables between wide and tidy
// long layouts and joins measured values against prescriptive targets.
//
// The reshape is schema-driven: condition columns are carried by name, never
// by ordinal position, so tables whose files exercise different level sets
// melt and join without alignment tricks. All operations are pure functions
// over immutable inputs.
package dataset
