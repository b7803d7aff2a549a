// Package files provides file system operations and discovery utilities
// for the REM session toolkit.
//
// This package contains two main components:
//
// Discovery: Provides file discovery operations such as finding session XML
// exports and generated reports, plus utilities for deriving a session's
// stem name and picking the most recently modified file. Session files are
// returned in lexical name order so batch output stays deterministic.
//
// Manager: Performs writes inside the data tree. Its MoveFile rename is
// what publishes a finished workbook atomically, and the server uses
// WriteFile and DeleteFile to probe directory writability at startup.
// Relative paths resolve against the configured directories.
//
// Example usage:
//
//	// Create a discovery instance
//	discovery := files.NewDiscovery("/path/to/base")
//
//	// Find all session exports
//	sessions, err := discovery.FindSessionFiles("data/sessions")
//
//	// Publish a finished artifact
//	manager := files.NewManager(paths)
//	err = manager.MoveFile(tmpPath, finalPath)
package files
