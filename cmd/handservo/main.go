package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Run   RunCommand   `command:"run" description:"Track the hand and drive the arm, serving the dashboard"`
	Ports PortsCommand `command:"ports" description:"List serial ports"`
	Home  HomeCommand  `command:"home" description:"Send every servo to 90 degrees"`
	Play  PlayCommand  `command:"play" description:"Play a saved pose sequence"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "HandServo - drive a six-servo arm with hand gestures"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
