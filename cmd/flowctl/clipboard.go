package main

import "github.com/atotto/clipboard"

// Clipboard copies text to a clipboard.
type Clipboard interface {
	Copy(text string) error
}

// SystemClipboard uses the platform clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Copy(text string) error {
	return clipboard.WriteAll(text)
}

var systemClipboard Clipboard = SystemClipboard{}
