// Package model holds the typed records exchanged with the store gateway and
// the error values shared by the allocation and crew components.
package model
