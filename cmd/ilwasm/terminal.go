package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// switchMode is the auto|on|off value shared by --ui and --color.
type switchMode string

const (
	modeAuto switchMode = "auto"
	modeOn   switchMode = "on"
	modeOff  switchMode = "off"
)

func readSwitch(flag, value string) (switchMode, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return modeAuto, nil
	case "on", "always":
		return modeOn, nil
	case "off", "never":
		return modeOff, nil
	default:
		return "", fmt.Errorf("invalid --%s value %q (expected auto|on|off)", flag, value)
	}
}

func readUIMode(value string) (switchMode, error) {
	return readSwitch("ui", value)
}

func shouldUseTUI(mode switchMode) bool {
	switch mode {
	case modeOn:
		return true
	case modeOff:
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

// applyColorMode configures fatih/color; auto keeps its own tty detection.
func applyColorMode(value string) error {
	mode, err := readSwitch("color", value)
	if err != nil {
		return err
	}
	switch mode {
	case modeOn:
		color.NoColor = false
	case modeOff:
		color.NoColor = true
	}
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
