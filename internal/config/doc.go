// Package config provides configuration structures and utilities for cvsync.
// It defines where the CV lives, how it is fetched, which elements of the
// site are patched, and which keywords delimit each section.
package config
