// Package content is a client for the Zehnly Duo admin API: lesson words and
// the audio synthesis endpoints the bulk generator drives.
package content
