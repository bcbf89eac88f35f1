// Package snchan contains channel-backed primitives
// shared by the swapnet packages.
package snchan
