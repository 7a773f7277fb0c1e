// Package serialport provides raw, non-blocking access to Linux serial
// devices for the gateway's polled listener loop.
//
// The package deliberately avoids bufio and blocking reads: the listener
// loop calls ReadAvailable once per tick and must get control back
// immediately, with or without data. Framing is the caller's concern.
package serialport
