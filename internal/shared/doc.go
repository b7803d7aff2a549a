// Package shared holds cross-package helpers that belong to no single
// layer. Production code lives in the layer packages; shared carries
// only test support.
package shared
