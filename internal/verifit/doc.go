// Package verifit extracts measurement data from Verifit fitting-session
// XML exports.
//
// Each session file carries measured speech curves, prescriptive target
// curves, and aided SII values, but the format declares no foreign key
// between them. The link is inferred: a measured curve's raw sample text is
// compared against the four internal curve slots until one matches, and the
// matching slot number derives the node names for the curve's target and
// aided-metric lookups. The package exposes that resolution as its own stage
// so it can be tested in isolation from node extraction.
//
// Files are independent. A batch run extracts them concurrently, skips files
// whose frequency grids are missing, and assembles results in filename order
// so repeated runs produce identical tables.
package verifit
