// Package geometry post-processes assembled snowlines: joining fragments,
// removing grid-scale jaggedness and thinning vertices. Every function is
// pure, treats a nil MultiLineString as "no line" and never mutates its input.
package geometry
