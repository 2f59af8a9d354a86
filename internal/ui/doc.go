// Package ui holds the color themes shared by the CLI and the dashboard.
package ui
