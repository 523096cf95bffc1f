// Package files provides file system operations and discovery utilities
// for the research toolkit: locating universe/report files on disk and
// moving them between the data, cache, and reports directories.
//
// This package contains two main components:
//
// Discovery: Provides file discovery operations such as finding Excel files,
// CSV files, and files matching specific patterns. It also includes utilities
// for filtering files by date range and finding the latest file.
//
// Manager: Provides basic file management operations such as copying, moving,
// deleting files, and ensuring directories exist. Paths resolve against the
// configured directory layout (config.Paths): a "reports/", "cache/" or
// "logs/" prefix selects that directory, any other relative path resolves
// under the data directory, and absolute paths are used as given.
//
// Example usage:
//
//	// Create a discovery instance
//	discovery := files.NewDiscovery("/path/to/base")
//	
//	// Find all Excel files
//	excelFiles, err := discovery.FindExcelFiles("reports")
//	
//	// Create a manager instance over the executable-relative layout
//	paths, err := config.GetPaths()
//	manager := files.NewManager(paths)
//
//	// Check if a file exists in the data directory
//	if manager.FileExists("report.csv") {
//	    // Process file
//	}
package files