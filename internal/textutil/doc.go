// Package textutil derives filesystem-safe slugs from feed and episode titles.
package textutil
