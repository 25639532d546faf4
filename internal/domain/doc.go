// Package domain models Snow Survey of Great Britain (SSGB) observations and
// the per-date snowline results derived from them.
//
// # Data Source
//
// The SSGB is a daily record of whether snow is lying at a set of observing
// sites across Great Britain. Each site reports once per day; a typical day
// carries around 140 usable reports. The archive is distributed as CSV with
// one row per site per day.
//
// # SSGB Data Conventions
//
// Columns:
//
//	date          YYYY-MM-DD, the observation day (UTC calendar day)
//	site_id       station identifier, kept as a string (leading zeros matter)
//	latitude      WGS-84 decimal degrees, [-90, 90]
//	longitude     WGS-84 decimal degrees, [-180, 180]
//	snow_present  boolean: true/false, 1/0, yes/no, y/n (case-insensitive)
//	snow_depth    optional, centimetres; blank when not measured
//	elevation     optional, metres above sea level; blank when unknown
//
// When a file carries no snow_present column, presence is derived from
// snow_depth > 0. Rows with an empty snow_depth in that layout count as
// "no snow".
//
// # Snowline Status
//
// Every day in the configured range produces exactly one [SnowlineResult]:
//
//	ok                 mixed reports; geometry holds the extracted snowline
//	                   (nil when the boundary degenerated, see Detail)
//	no_snow            every report is snow-free
//	complete_snow      every report has snow lying
//	insufficient_data  fewer than 3 reports on a mixed day, collinear sites,
//	                   a timeout, or an unexpected extraction failure
//
// Uniform days never reach contouring: a constant field has no boundary.
//
// # Coordinates
//
// Geometry uses [github.com/paulmach/orb] types with X = longitude and
// Y = latitude, in the same CRS as the configured bounding box (EPSG:4326).
package domain
