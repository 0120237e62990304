// Package toggle provides the persisted recording switch and its status
// indicators.
package toggle
