// Package store exports offline scenario results as JSON, CSV or SVG.
package store
