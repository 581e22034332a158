// Command release-attrs collects IMDb release-date attributes for a CSV of
// titles and summarizes them.
//
// Usage:
//
//	release-attrs scrape --input movies.csv --output attributes.csv
//	release-attrs summarize --input attributes.csv --output counts.csv
//	release-attrs cache stats
//	release-attrs cache forget tt0111161
//	release-attrs config init
//
// Settings come from release-attrs.toml in the working directory (or the
// file named by --config) and RA_* environment variables.
package main
