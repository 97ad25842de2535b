// Package logx is focusdesk's structured logger: a small value type over
// zerolog whose outputs and level can be swapped while the daemon runs.
//
// Console output goes to stderr in zerolog's console format with a short
// file:line caller. File output is JSON. stdout is never written, since the
// stdio ingress may own it.
package logx
