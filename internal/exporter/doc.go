// Package exporter writes extraction results to the reports directory.
//
// Four CSV reports are produced per run: the measured and target wide
// tables, the aided-SII scalar table, and the long measured-versus-target
// diff table. The same four tables can optionally be written as sheets of a
// single Excel workbook for spreadsheet users. Absent values render as
// empty cells, never zeros, so a blank cell in a report always means the
// instrument recorded nothing.
package exporter
