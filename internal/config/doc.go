// Package config loads and validates the application configuration and
// resolves the on-disk directory layout.
//
// Configuration is assembled in three layers. Built-in defaults come
// first, a config.yaml found near the working directory overrides them
// key by key, and REM_* environment variables override both:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// LoadFrom does the same with an explicitly named file, for callers
// wired to a -config flag.
//
// Environment variables are namespaced by section, for example:
//
//	REM_SERVER_PORT=8080
//	REM_EXTRACTION_TEST_TYPE=on-ear
//	REM_EXTRACTION_WORKERS=4
//	REM_LOGGING_LEVEL=debug
//
// Validation runs on the merged result, so an impossible port or an
// unknown test type is rejected no matter which layer set it.
//
// File system locations live in the Paths type, resolved from the
// configured roots relative to the executable rather than the working
// directory:
//
//	paths, err := config.PathsFrom(cfg.Paths)
//	sessionPath := paths.GetSessionPath("left_only.xml")
//	reportPath := paths.GetMeasuredCSVPath()
package config
