// Package logger provides a thin zerolog wrapper with component tagging
// and structured fields.
//
// The zero value is not usable; construct with New, NewDefault, or Nop.
// Libraries in this module default to Nop so that hosts opt in to output.
package logger
